package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/somo-lms/somo/core"
	"github.com/somo-lms/somo/core/comment"
	"github.com/somo-lms/somo/core/course"
	"github.com/somo-lms/somo/core/user"
	dummydb "github.com/somo-lms/somo/storage/database/dummy"
	testutil "github.com/somo-lms/somo/tests"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type gatewayFixture struct {
	hub     *Hub
	srv     *httptest.Server
	usrRepo user.Repository
	crsRepo course.Repository
	cmtRepo comment.Repository
	cmtSvc  comment.Service
	tokens  map[string]user.User
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	f := &gatewayFixture{
		usrRepo: dummydb.NewUserRepository(db),
		crsRepo: dummydb.NewCourseRepository(db),
		cmtRepo: dummydb.NewCommentRepository(db),
		tokens:  make(map[string]user.User),
	}

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)

	logger := nopLogger{}
	f.hub = NewHub(logger)
	courseSvc := course.NewService(f.crsRepo)
	f.cmtSvc = comment.NewService(f.cmtRepo, courseSvc, f.hub)

	gw := NewGateway(GatewayDeps{
		Hub:        f.hub,
		CommentSvc: f.cmtSvc,
		Authenticate: func(ctx context.Context, token string) (user.User, error) {
			if usr, ok := f.tokens[token]; ok {
				return usr, nil
			}
			return user.User{}, errors.New("bad token")
		},
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
	})

	f.srv = httptest.NewServer(gw)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *gatewayFixture) wsURL(token string) string {
	u := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/comments"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func (f *gatewayFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(f.wsURL(token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

// wire is loose enough to decode acks and broadcast envelopes alike.
type wire struct {
	Event    string                 `json:"event"`
	Success  bool                   `json:"success"`
	Error    string                 `json:"error"`
	Fields   map[string]string      `json:"fields"`
	LessonID string                 `json:"lesson_id"`
	Comment  *comment.Comment       `json:"comment"`
	Reply    *comment.Reply         `json:"reply"`
	Data     map[string]interface{} `json:"data"`
}

func readWire(t *testing.T, ws *websocket.Conn) wire {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)
	var msg wire
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func sendEvent(t *testing.T, ws *websocket.Conn, event string, data interface{}) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(Envelope{Event: event, Data: data}))
}

func joinLesson(t *testing.T, ws *websocket.Conn, lessonID string) {
	t.Helper()
	sendEvent(t, ws, EventJoinLesson, joinLessonData{LessonID: lessonID})
	msg := readWire(t, ws)
	require.True(t, msg.Success, "join_lesson ack: %+v", msg)
	require.Equal(t, lessonID, msg.LessonID)
}

func TestGatewayRejectsBadTokenBeforeUpgrade(t *testing.T) {
	f := newGatewayFixture(t)

	resp, err := http.Get(f.srv.URL + "?token=garbage")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "Unauthorized", body["error"])

	// a websocket dial fails the handshake the same way
	_, wsResp, err := websocket.DefaultDialer.Dial(f.wsURL("garbage"), nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, wsResp.StatusCode)

	if n := f.hub.SessionCount(); n != 0 {
		t.Errorf("sessions = %d; want 0", n)
	}
}

func TestGatewayDoubleJoinIsIdempotent(t *testing.T) {
	f := newGatewayFixture(t)
	usr := testutil.CreateUser(t, f.usrRepo, "Join User", "joinuser", "joinuser@test.cd", "", []string{user.RoleStudent}, true)
	f.tokens["tok-join"] = usr

	ws := f.dial(t, "tok-join")

	joinLesson(t, ws, "les-1")
	joinLesson(t, ws, "les-1")

	if n := f.hub.RoomCount(); n != 1 {
		t.Errorf("rooms = %d; want 1", n)
	}
	members := f.hub.rooms.MembersOf("les-1")
	if len(members) != 1 {
		t.Errorf("members = %v; want exactly one", members)
	}
}

func TestGatewayNewCommentBroadcastsToRoom(t *testing.T) {
	f := newGatewayFixture(t)

	teacher := testutil.CreateUser(t, f.usrRepo, "Ws Teacher", "wsteacher", "wsteacher@test.cd", "", []string{user.RoleTeacher}, true)
	author := testutil.CreateUser(t, f.usrRepo, "Ws Author", "wsauthor", "wsauthor@test.cd", "", []string{user.RoleStudent}, true)
	reader := testutil.CreateUser(t, f.usrRepo, "Ws Reader", "wsreader", "wsreader@test.cd", "", []string{user.RoleStudent}, true)
	loner := testutil.CreateUser(t, f.usrRepo, "Ws Loner", "wsloner", "wsloner@test.cd", "", []string{user.RoleStudent}, true)

	crs := testutil.CreateCourse(t, f.crsRepo, "Ws Course", teacher.ID, 0)
	les := testutil.CreateLesson(t, f.crsRepo, crs.ID, "Ws Lesson", 1)
	other := testutil.CreateLesson(t, f.crsRepo, crs.ID, "Other Lesson", 2)
	testutil.Enroll(t, f.crsRepo, author.ID, crs.ID)

	f.tokens["tok-author"] = author
	f.tokens["tok-reader"] = reader
	f.tokens["tok-loner"] = loner

	authorWs := f.dial(t, "tok-author")
	readerWs := f.dial(t, "tok-reader")
	lonerWs := f.dial(t, "tok-loner")

	joinLesson(t, authorWs, les.ID)
	joinLesson(t, readerWs, les.ID)
	joinLesson(t, lonerWs, other.ID)

	sendEvent(t, authorWs, EventNewComment, comment.NewComment{LessonID: les.ID, Content: "hello room"})

	// the author gets the ack and the room broadcast, in either order
	got := map[string]wire{}
	for i := 0; i < 2; i++ {
		msg := readWire(t, authorWs)
		got[msg.Event] = msg
	}
	ackMsg, ok := got[EventNewComment]
	require.True(t, ok, "missing ack: %v", got)
	require.True(t, ackMsg.Success)
	require.NotNil(t, ackMsg.Comment)
	require.Equal(t, "hello room", ackMsg.Comment.Content)

	bcast, ok := got[comment.EventCommentAdded]
	require.True(t, ok, "missing broadcast: %v", got)
	require.Equal(t, "hello room", bcast.Data["content"])

	// every other member of the room gets exactly the broadcast
	msg := readWire(t, readerWs)
	require.Equal(t, comment.EventCommentAdded, msg.Event)
	require.Equal(t, "hello room", msg.Data["content"])

	// a member of another room hears nothing
	_ = lonerWs.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := lonerWs.ReadMessage(); err == nil {
		t.Error("expected no message for another room's member")
	}
}

func TestGatewayUnenrolledCommentIsForbidden(t *testing.T) {
	f := newGatewayFixture(t)

	teacher := testutil.CreateUser(t, f.usrRepo, "Fb Teacher", "fbteacher", "fbteacher@test.cd", "", []string{user.RoleTeacher}, true)
	outsider := testutil.CreateUser(t, f.usrRepo, "Fb Outsider", "fboutsider", "fboutsider@test.cd", "", []string{user.RoleStudent}, true)

	crs := testutil.CreateCourse(t, f.crsRepo, "Fb Course", teacher.ID, 0)
	les := testutil.CreateLesson(t, f.crsRepo, crs.ID, "Fb Lesson", 1)

	f.tokens["tok-outsider"] = outsider
	ws := f.dial(t, "tok-outsider")
	joinLesson(t, ws, les.ID)

	sendEvent(t, ws, EventNewComment, comment.NewComment{LessonID: les.ID, Content: "let me in"})
	msg := readWire(t, ws)
	require.Equal(t, EventNewComment, msg.Event)
	require.False(t, msg.Success)
	require.Equal(t, "Forbidden", msg.Error)

	// nothing was persisted
	cmts, total, err := f.cmtRepo.QueryComments(context.Background(), les.ID, 10, 0)
	require.NoError(t, err)
	require.Empty(t, cmts)
	require.Zero(t, total)
}

func TestGatewayContentValidation(t *testing.T) {
	f := newGatewayFixture(t)

	teacher := testutil.CreateUser(t, f.usrRepo, "Val Teacher", "valteacher", "valteacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, f.usrRepo, "Val Student", "valstudent", "valstudent@test.cd", "", []string{user.RoleStudent}, true)

	crs := testutil.CreateCourse(t, f.crsRepo, "Val Course", teacher.ID, 0)
	les := testutil.CreateLesson(t, f.crsRepo, crs.ID, "Val Lesson", 1)
	testutil.Enroll(t, f.crsRepo, student.ID, crs.ID)

	f.tokens["tok-val"] = student
	ws := f.dial(t, "tok-val")

	// over the content limit
	sendEvent(t, ws, EventNewComment, comment.NewComment{LessonID: les.ID, Content: strings.Repeat("a", 1001)})
	msg := readWire(t, ws)
	require.False(t, msg.Success)
	require.NotEmpty(t, msg.Fields["content"])

	// garbage frame
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg = readWire(t, ws)
	require.Equal(t, "Invalid message", msg.Error)

	// unknown event
	sendEvent(t, ws, "dance", nil)
	msg = readWire(t, ws)
	require.Equal(t, "Invalid message", msg.Error)
}

func TestGatewayGetComments(t *testing.T) {
	f := newGatewayFixture(t)

	teacher := testutil.CreateUser(t, f.usrRepo, "Gc Teacher", "gcteacher", "gcteacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, f.usrRepo, "Gc Student", "gcstudent", "gcstudent@test.cd", "", []string{user.RoleStudent}, true)

	crs := testutil.CreateCourse(t, f.crsRepo, "Gc Course", teacher.ID, 0)
	les := testutil.CreateLesson(t, f.crsRepo, crs.ID, "Gc Lesson", 1)
	testutil.Enroll(t, f.crsRepo, student.ID, crs.ID)
	cmt := testutil.CreateComment(t, f.cmtRepo, les.ID, student.ID, "already here")
	testutil.CreateReply(t, f.cmtRepo, cmt.ID, student.ID, "me too")

	f.tokens["tok-gc"] = student
	ws := f.dial(t, "tok-gc")

	sendEvent(t, ws, EventGetComments, getCommentsData{LessonID: les.ID})

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg commentsLoaded
	require.NoError(t, ws.ReadJSON(&msg))
	require.Equal(t, EventCommentsLoaded, msg.Event)
	require.True(t, msg.Success)
	require.Len(t, msg.Comments, 1)
	require.Len(t, msg.Comments[0].Replies, 1)
	require.Equal(t, 1, msg.Pagination.Total)
}

func TestGatewayDisconnectCleansUp(t *testing.T) {
	f := newGatewayFixture(t)
	usr := testutil.CreateUser(t, f.usrRepo, "Bye User", "byeuser", "byeuser@test.cd", "", []string{user.RoleStudent}, true)
	f.tokens["tok-bye"] = usr

	ws := f.dial(t, "tok-bye")
	joinLesson(t, ws, "les-bye")

	require.Equal(t, 1, f.hub.SessionCount())
	require.Equal(t, 1, f.hub.RoomCount())

	require.NoError(t, ws.Close())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.hub.SessionCount() == 0 && f.hub.RoomCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("sessions = %d, rooms = %d; want both 0 after disconnect",
		f.hub.SessionCount(), f.hub.RoomCount())
}
