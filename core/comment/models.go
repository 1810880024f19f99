package comment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/somo-lms/somo/core"
)

// MaxContentLen caps comment and reply bodies.
const MaxContentLen = 1000

// Realtime events emitted after a successful write.
const (
	EventCommentAdded   = "comment_added"
	EventReplyAdded     = "reply_added"
	EventCommentUpdated = "comment_updated"
	EventReplyUpdated   = "reply_updated"
	EventCommentDeleted = "comment_deleted"
	EventReplyDeleted   = "reply_deleted"
)

type Comment struct {
	ID        string    `json:"id"`
	LessonID  string    `json:"lesson_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
	Replies   []Reply   `json:"replies"`
}

type Reply struct {
	ID        string    `json:"id"`
	CommentID string    `json:"comment_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewComment contains information needed to create a top-level Comment.
type NewComment struct {
	LessonID string `json:"lesson_id" validate:"required"`
	Content  string `json:"content" validate:"required,max=1000"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	nc.LessonID = core.CleanString(nc.LessonID)
	nc.Content = core.CleanString(nc.Content)
	return validate.Struct(nc)
}

// NewReply contains information needed to reply to a Comment.
type NewReply struct {
	CommentID string `json:"comment_id" validate:"required"`
	Content   string `json:"content" validate:"required,max=1000"`
}

func (nr *NewReply) Validate(validate *validator.Validate) error {
	nr.CommentID = core.CleanString(nr.CommentID)
	nr.Content = core.CleanString(nr.Content)
	return validate.Struct(nr)
}

// UpdateContent carries a content edit for a Comment or a Reply.
type UpdateContent struct {
	Content string `json:"content" validate:"required,max=1000"`
}

func (uc *UpdateContent) Validate(validate *validator.Validate) error {
	uc.Content = core.CleanString(uc.Content)
	return validate.Struct(uc)
}

// Thread is one page of a lesson's active comments, newest first.
type Thread struct {
	Comments   []Comment       `json:"comments"`
	Pagination core.Pagination `json:"pagination"`
}

// Stats summarizes a lesson's comment activity.
type Stats struct {
	LessonID     string `json:"lesson_id"`
	CommentCount int    `json:"comment_count"`
	ReplyCount   int    `json:"reply_count"`
}

// DeletedEvent is the broadcast payload for soft deletions.
type DeletedEvent struct {
	ID        string `json:"id"`
	LessonID  string `json:"lesson_id"`
	CommentID string `json:"comment_id,omitempty"` // set for reply deletions
}
