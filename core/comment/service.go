package comment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/somo-lms/somo/core"
	"github.com/somo-lms/somo/core/course"
	"github.com/somo-lms/somo/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("comment not found")
	ErrReplyNotFound = errors.New("reply not found")
	ErrNotEnrolled   = errors.New("user is not enrolled in this course")
	ErrNotAuthor     = errors.New("only the author may modify this")
)

type (
	Repository interface {
		CreateComment(ctx context.Context, cmt Comment) (Comment, error)
		// QueryComments returns one page of a lesson's active comments, newest
		// first, each with its active replies (oldest first), plus the total
		// active comment count.
		QueryComments(ctx context.Context, lessonID string, limit, offset int) ([]Comment, int, error)
		GetCommentByID(ctx context.Context, id string) (Comment, error)
		UpdateComment(ctx context.Context, cmt Comment) (Comment, error)
		// SoftDeleteComment marks the comment and all of its replies inactive
		// in a single operation.
		SoftDeleteComment(ctx context.Context, id string) error

		CreateReply(ctx context.Context, rep Reply) (Reply, error)
		GetReplyByID(ctx context.Context, id string) (Reply, error)
		UpdateReply(ctx context.Context, rep Reply) (Reply, error)
		SoftDeleteReply(ctx context.Context, id string) error

		CountByLesson(ctx context.Context, lessonID string) (Stats, error)
	}

	// Courses is the slice of the course service the comment service needs.
	Courses interface {
		GetLesson(ctx context.Context, id string) (course.Lesson, error)
		IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
	}

	// Broadcaster delivers an event to every realtime connection in a
	// lesson's room. Implementations must not block on slow recipients.
	Broadcaster interface {
		Broadcast(lessonID, event string, payload interface{})
	}

	Service interface {
		Create(ctx context.Context, actor user.User, nc NewComment) (Comment, error)
		CreateReply(ctx context.Context, actor user.User, nr NewReply) (Reply, error)
		GetThread(ctx context.Context, lessonID string, page, limit int) (Thread, error)
		Get(ctx context.Context, id string) (Comment, error)
		Update(ctx context.Context, actor user.User, id string, uc UpdateContent) (Comment, error)
		UpdateReply(ctx context.Context, actor user.User, id string, uc UpdateContent) (Reply, error)
		Delete(ctx context.Context, actor user.User, id string) error
		DeleteReply(ctx context.Context, actor user.User, id string) error
		Stats(ctx context.Context, lessonID string) (Stats, error)
	}

	service struct {
		repo    Repository
		courses Courses
		caster  Broadcaster
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courses Courses, caster Broadcaster) Service {
	if caster == nil {
		caster = NopBroadcaster{}
	}
	return &service{repo: repo, courses: courses, caster: caster}
}

// NopBroadcaster discards events. Used where no realtime hub is wired (CLI, tests).
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(lessonID, event string, payload interface{}) {}

// authorizeComment checks the top-level comment rule: the lesson (and hence
// its course) must exist, and an enrollment must link the actor to the
// course. The enrollment check deliberately applies to every role here,
// unlike the reply path.
func (svc *service) authorizeComment(ctx context.Context, actor user.User, lessonID string) (course.Lesson, error) {
	les, err := svc.courses.GetLesson(ctx, lessonID)
	if err != nil {
		return course.Lesson{}, err
	}
	enrolled, err := svc.courses.IsEnrolled(ctx, actor.ID, les.CourseID)
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return course.Lesson{}, ErrNotEnrolled
	}
	return les, nil
}

// authorizeReply checks the reply rule: the parent comment must exist and
// students must be enrolled in the lesson's course. Teachers and admins
// reply without an enrollment.
func (svc *service) authorizeReply(ctx context.Context, actor user.User, commentID string) (Comment, error) {
	cmt, err := svc.repo.GetCommentByID(ctx, commentID)
	if err != nil {
		return Comment{}, err
	}
	if !actor.IsStudent() {
		return cmt, nil
	}

	les, err := svc.courses.GetLesson(ctx, cmt.LessonID)
	if err != nil {
		return Comment{}, err
	}
	enrolled, err := svc.courses.IsEnrolled(ctx, actor.ID, les.CourseID)
	if err != nil {
		return Comment{}, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return Comment{}, ErrNotEnrolled
	}
	return cmt, nil
}

func (svc *service) Create(ctx context.Context, actor user.User, nc NewComment) (Comment, error) {
	if _, err := svc.authorizeComment(ctx, actor, nc.LessonID); err != nil {
		return Comment{}, err
	}

	now := time.Now().UTC()
	cmt := Comment{
		LessonID:  nc.LessonID,
		UserID:    actor.ID,
		Content:   nc.Content,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		Replies:   []Reply{},
	}
	cmt, err := svc.repo.CreateComment(ctx, cmt)
	if err != nil {
		return Comment{}, err
	}

	// broadcast strictly after a confirmed persist, exactly once
	svc.caster.Broadcast(cmt.LessonID, EventCommentAdded, cmt)
	return cmt, nil
}

func (svc *service) CreateReply(ctx context.Context, actor user.User, nr NewReply) (Reply, error) {
	cmt, err := svc.authorizeReply(ctx, actor, nr.CommentID)
	if err != nil {
		return Reply{}, err
	}

	now := time.Now().UTC()
	rep := Reply{
		CommentID: nr.CommentID,
		UserID:    actor.ID,
		Content:   nr.Content,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rep, err = svc.repo.CreateReply(ctx, rep)
	if err != nil {
		return Reply{}, err
	}

	svc.caster.Broadcast(cmt.LessonID, EventReplyAdded, rep)
	return rep, nil
}

func (svc *service) GetThread(ctx context.Context, lessonID string, page, limit int) (Thread, error) {
	page, limit = core.CleanPageLimit(page, limit)

	comments, total, err := svc.repo.QueryComments(ctx, lessonID, limit, (page-1)*limit)
	if err != nil {
		return Thread{}, err
	}
	if comments == nil {
		comments = []Comment{}
	}
	return Thread{
		Comments:   comments,
		Pagination: core.NewPagination(page, limit, total),
	}, nil
}

func (svc *service) Get(ctx context.Context, id string) (Comment, error) {
	return svc.repo.GetCommentByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, actor user.User, id string, uc UpdateContent) (Comment, error) {
	cmt, err := svc.repo.GetCommentByID(ctx, id)
	if err != nil {
		return Comment{}, err
	}
	if cmt.UserID != actor.ID && !actor.IsAdmin() {
		return Comment{}, ErrNotAuthor
	}

	cmt.Content = uc.Content
	cmt.UpdatedAt = time.Now().UTC()
	cmt, err = svc.repo.UpdateComment(ctx, cmt)
	if err != nil {
		return Comment{}, err
	}

	svc.caster.Broadcast(cmt.LessonID, EventCommentUpdated, cmt)
	return cmt, nil
}

func (svc *service) UpdateReply(ctx context.Context, actor user.User, id string, uc UpdateContent) (Reply, error) {
	rep, err := svc.repo.GetReplyByID(ctx, id)
	if err != nil {
		return Reply{}, err
	}
	if rep.UserID != actor.ID && !actor.IsAdmin() {
		return Reply{}, ErrNotAuthor
	}

	cmt, err := svc.repo.GetCommentByID(ctx, rep.CommentID)
	if err != nil {
		return Reply{}, err
	}

	rep.Content = uc.Content
	rep.UpdatedAt = time.Now().UTC()
	rep, err = svc.repo.UpdateReply(ctx, rep)
	if err != nil {
		return Reply{}, err
	}

	svc.caster.Broadcast(cmt.LessonID, EventReplyUpdated, rep)
	return rep, nil
}

// Delete soft-deletes a comment and cascades to all of its replies; their
// visibility follows the parent while the rows remain.
func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	cmt, err := svc.repo.GetCommentByID(ctx, id)
	if err != nil {
		return err
	}
	if cmt.UserID != actor.ID && !actor.IsAdmin() {
		return ErrNotAuthor
	}

	if err = svc.repo.SoftDeleteComment(ctx, id); err != nil {
		return err
	}

	svc.caster.Broadcast(cmt.LessonID, EventCommentDeleted, DeletedEvent{ID: id, LessonID: cmt.LessonID})
	return nil
}

func (svc *service) DeleteReply(ctx context.Context, actor user.User, id string) error {
	rep, err := svc.repo.GetReplyByID(ctx, id)
	if err != nil {
		return err
	}
	if rep.UserID != actor.ID && !actor.IsAdmin() {
		return ErrNotAuthor
	}

	cmt, err := svc.repo.GetCommentByID(ctx, rep.CommentID)
	if err != nil {
		return err
	}

	if err = svc.repo.SoftDeleteReply(ctx, id); err != nil {
		return err
	}

	svc.caster.Broadcast(cmt.LessonID, EventReplyDeleted, DeletedEvent{ID: id, LessonID: cmt.LessonID, CommentID: cmt.ID})
	return nil
}

func (svc *service) Stats(ctx context.Context, lessonID string) (Stats, error) {
	return svc.repo.CountByLesson(ctx, lessonID)
}
