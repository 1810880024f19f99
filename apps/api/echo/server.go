package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/somo-lms/somo/core"
	"github.com/somo-lms/somo/core/comment"
	"github.com/somo-lms/somo/core/course"
	"github.com/somo-lms/somo/core/payment"
	"github.com/somo-lms/somo/core/review"
	"github.com/somo-lms/somo/core/user"
	"github.com/somo-lms/somo/realtime"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		UserSvc    user.Service
		CourseSvc  course.Service
		CommentSvc comment.Service
		ReviewSvc  review.Service
		PaymentSvc payment.Service
		Hub        *realtime.Hub
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf
	appJWTConfig.SigningKey = conf.SecretKey

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	// websocket gateway, authenticated during the HTTP upgrade
	gateway := realtime.NewGateway(realtime.GatewayDeps{
		Hub:          s.deps.Hub,
		CommentSvc:   s.deps.CommentSvc,
		Authenticate: NewAuthenticateFunc(s.deps.UserSvc),
		Logger:       s.deps.Logger,
		Validate:     s.deps.Validate,
		Translator:   s.deps.Translator,
	})
	s.app.GET("/ws/comments", echo.WrapHandler(gateway))

	api := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(api, jwt, s.deps.UserSvc, s.deps.Validate)
	registerCourseAPI(api, jwt, s.deps.CourseSvc, s.deps.UserSvc, s.deps.Validate)
	registerCommentAPI(api, jwt, s.deps.CommentSvc, s.deps.UserSvc, s.deps.Validate)
	registerReviewAPI(api, jwt, s.deps.ReviewSvc, s.deps.UserSvc, s.deps.Validate)
	registerPaymentAPI(api, jwt, s.deps.PaymentSvc, s.deps.UserSvc)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errs
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Somo API!")
}
