package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/somo-lms/somo/core"
	"github.com/somo-lms/somo/core/comment"
	"github.com/somo-lms/somo/core/course"
	"github.com/somo-lms/somo/core/user"
)

// AuthenticateFunc resolves a bearer token to an active user.
type AuthenticateFunc func(ctx context.Context, token string) (user.User, error)

type GatewayDeps struct {
	Hub          *Hub
	CommentSvc   comment.Service
	Authenticate AuthenticateFunc
	Logger       core.Logger
	Validate     *validator.Validate
	Translator   ut.Translator
}

// Gateway terminates websocket connections for the lesson comment feed.
// A connection's lifecycle: authenticate during the HTTP upgrade, register
// with the hub, then loop reading frames until the peer goes away. All
// inbound frames for one connection are handled in order on its read loop.
type Gateway struct {
	hub        *Hub
	commentSvc comment.Service
	auth       AuthenticateFunc
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
	upgrader   websocket.Upgrader
}

func NewGateway(deps GatewayDeps) *Gateway {
	return &Gateway{
		hub:        deps.Hub,
		commentSvc: deps.CommentSvc,
		auth:       deps.Authenticate,
		logger:     deps.Logger,
		validate:   deps.Validate,
		translator: deps.Translator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request. A missing or bad token is rejected before
// the upgrade; no unauthenticated connection ever reaches the hub.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	usr, err := g.auth(r.Context(), bearerToken(r))
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"` + errMsgUnauthorized + `"}`))
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn(fmt.Sprintf("websocket upgrade: %v", err))
		return
	}

	conn := newConnection(uuid.New().String(), ws)
	g.hub.bind(conn, usr)
	go g.readPump(conn)
}

// bearerToken pulls the JWT from the Authorization header, falling back to
// the "token" query param for browser websocket clients that cannot set
// headers.
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if tok := strings.TrimPrefix(auth, "Bearer "); tok != auth {
			return tok
		}
	}
	return r.URL.Query().Get("token")
}

func (g *Gateway) readPump(conn *connection) {
	defer g.hub.unbind(conn)

	conn.ws.SetReadLimit(maxMessageSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Debug(fmt.Sprintf("connection %s closed: %v", conn.id, err))
			}
			return
		}

		var frame inboundFrame
		if err = json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
			g.hub.sendTo(conn, errAck("", errMsgBadRequest))
			continue
		}
		g.dispatch(conn, frame)
	}
}

// dispatch routes one inbound frame. The identity lookup guards every event;
// a connection with no session entry gets an error envelope back but stays
// open.
func (g *Gateway) dispatch(conn *connection, frame inboundFrame) {
	usr, ok := g.hub.registry.Get(conn.id)
	if !ok {
		g.hub.sendTo(conn, errAck(frame.Event, errMsgUnauthorized))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch frame.Event {
	case EventJoinLesson:
		g.handleJoinLesson(conn, frame)
	case EventLeaveLesson:
		g.handleLeaveLesson(conn, frame)
	case EventNewComment:
		g.handleNewComment(ctx, conn, usr, frame)
	case EventNewReply:
		g.handleNewReply(ctx, conn, usr, frame)
	case EventGetComments:
		g.handleGetComments(ctx, conn, frame)
	default:
		g.hub.sendTo(conn, errAck(frame.Event, errMsgBadRequest))
	}
}

// handleJoinLesson adds the connection to the lesson's room. Joining twice
// is a no-op.
func (g *Gateway) handleJoinLesson(conn *connection, frame inboundFrame) {
	var data joinLessonData
	if err := json.Unmarshal(frame.Data, &data); err != nil || data.LessonID == "" {
		g.hub.sendTo(conn, errAck(frame.Event, errMsgBadRequest))
		return
	}

	g.hub.rooms.Join(conn.id, data.LessonID)
	a := okAck(frame.Event)
	a.LessonID = data.LessonID
	g.hub.sendTo(conn, a)
}

func (g *Gateway) handleLeaveLesson(conn *connection, frame inboundFrame) {
	var data joinLessonData
	if err := json.Unmarshal(frame.Data, &data); err != nil || data.LessonID == "" {
		g.hub.sendTo(conn, errAck(frame.Event, errMsgBadRequest))
		return
	}

	g.hub.rooms.Leave(conn.id, data.LessonID)
	a := okAck(frame.Event)
	a.LessonID = data.LessonID
	g.hub.sendTo(conn, a)
}

func (g *Gateway) handleNewComment(ctx context.Context, conn *connection, usr user.User, frame inboundFrame) {
	var nc comment.NewComment
	if err := json.Unmarshal(frame.Data, &nc); err != nil {
		g.hub.sendTo(conn, errAck(frame.Event, errMsgBadRequest))
		return
	}
	if err := nc.Validate(g.validate); err != nil {
		g.sendError(conn, frame.Event, err)
		return
	}

	cmt, err := g.commentSvc.Create(ctx, usr, nc)
	if err != nil {
		g.sendError(conn, frame.Event, err)
		return
	}

	a := okAck(frame.Event)
	a.Comment = &cmt
	g.hub.sendTo(conn, a)
}

func (g *Gateway) handleNewReply(ctx context.Context, conn *connection, usr user.User, frame inboundFrame) {
	var nr comment.NewReply
	if err := json.Unmarshal(frame.Data, &nr); err != nil {
		g.hub.sendTo(conn, errAck(frame.Event, errMsgBadRequest))
		return
	}
	if err := nr.Validate(g.validate); err != nil {
		g.sendError(conn, frame.Event, err)
		return
	}

	rep, err := g.commentSvc.CreateReply(ctx, usr, nr)
	if err != nil {
		g.sendError(conn, frame.Event, err)
		return
	}

	a := okAck(frame.Event)
	a.Reply = &rep
	g.hub.sendTo(conn, a)
}

func (g *Gateway) handleGetComments(ctx context.Context, conn *connection, frame inboundFrame) {
	var data getCommentsData
	if err := json.Unmarshal(frame.Data, &data); err != nil || data.LessonID == "" {
		g.hub.sendTo(conn, errAck(frame.Event, errMsgBadRequest))
		return
	}

	thread, err := g.commentSvc.GetThread(ctx, data.LessonID, data.Page, data.Limit)
	if err != nil {
		g.sendError(conn, frame.Event, err)
		return
	}

	g.hub.sendTo(conn, commentsLoaded{
		Event:      EventCommentsLoaded,
		Success:    true,
		LessonID:   data.LessonID,
		Comments:   thread.Comments,
		Pagination: thread.Pagination,
	})
}

// sendError maps a domain error to its wire form. Anything outside the known
// taxonomy is logged and reported as a generic server error.
func (g *Gateway) sendError(conn *connection, event string, err error) {
	switch origErr := errors.Cause(err); origErr {
	case comment.ErrNotFound, comment.ErrReplyNotFound, course.ErrNotFound, course.ErrLessonNotFound:
		g.hub.sendTo(conn, errAck(event, errMsgNotFound))
		return
	case comment.ErrNotEnrolled, comment.ErrNotAuthor:
		g.hub.sendTo(conn, errAck(event, errMsgForbidden))
		return
	}

	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		a := errAck(event, errMsgBadRequest)
		a.Fields = make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			a.Fields[vErr.Field()] = vErr.Translate(g.translator)
		}
		g.hub.sendTo(conn, a)
	case *core.ValidationError:
		a := errAck(event, origErr.Error())
		if origErr.Fields != nil {
			a.Fields = make(map[string]string, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				a.Fields[fErr.Field] = fErr.Error
			}
		}
		g.hub.sendTo(conn, a)
	default:
		g.logger.Error(fmt.Sprintf("handling %q: %v", event, err), err)
		g.hub.sendTo(conn, errAck(event, errMsgInternal))
	}
}
