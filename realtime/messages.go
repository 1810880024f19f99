package realtime

import (
	"encoding/json"

	"github.com/somo-lms/somo/core"
	"github.com/somo-lms/somo/core/comment"
)

// Client -> server events.
const (
	EventJoinLesson  = "join_lesson"
	EventLeaveLesson = "leave_lesson"
	EventNewComment  = "new_comment"
	EventNewReply    = "new_reply"
	EventGetComments = "get_comments"
)

// Server -> client events not covered by the comment package's domain events.
const EventCommentsLoaded = "comments_loaded"

// Wire error strings. These are the full client-facing vocabulary; internal
// detail never leaks onto the socket.
const (
	errMsgUnauthorized = "Unauthorized"
	errMsgForbidden    = "Forbidden"
	errMsgNotFound     = "Not found"
	errMsgBadRequest   = "Invalid message"
	errMsgInternal     = "Something went wrong"
)

// Envelope is the frame shape in both directions: an event name plus an
// event-specific payload.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// inboundFrame is an Envelope whose payload is deferred until the event
// name says how to decode it.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type (
	joinLessonData struct {
		LessonID string `json:"lesson_id"`
	}

	getCommentsData struct {
		LessonID string `json:"lesson_id"`
		Page     int    `json:"page"`
		Limit    int    `json:"limit"`
	}

	// ack is the reply sent to the originating connection only.
	ack struct {
		Event    string            `json:"event"`
		Success  bool              `json:"success,omitempty"`
		Error    string            `json:"error,omitempty"`
		Fields   map[string]string `json:"fields,omitempty"`
		LessonID string            `json:"lesson_id,omitempty"`
		Comment  *comment.Comment  `json:"comment,omitempty"`
		Reply    *comment.Reply    `json:"reply,omitempty"`
	}

	commentsLoaded struct {
		Event      string            `json:"event"`
		Success    bool              `json:"success"`
		LessonID   string            `json:"lesson_id"`
		Comments   []comment.Comment `json:"comments"`
		Pagination core.Pagination   `json:"pagination"`
	}
)

func okAck(event string) ack       { return ack{Event: event, Success: true} }
func errAck(event, msg string) ack { return ack{Event: event, Error: msg} }
