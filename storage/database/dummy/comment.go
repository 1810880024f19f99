package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/somo-lms/somo/core/comment"
)

type commentRepository struct {
	db *commentTable
}

var _ comment.Repository = (*commentRepository)(nil) // interface compliance check

func NewCommentRepository(db *DB) comment.Repository {
	return &commentRepository{db: db.comment}
}

func (repo *commentRepository) activeReplies(commentID string) []comment.Reply {
	replies := make([]comment.Reply, 0)
	for _, rep := range repo.db.replies {
		if rep.CommentID == commentID && rep.IsActive {
			replies = append(replies, *rep)
		}
	}
	sort.Slice(replies, func(i, j int) bool { return replies[i].CreatedAt.Before(replies[j].CreatedAt) })
	return replies
}

func (repo *commentRepository) CreateComment(ctx context.Context, cmt comment.Comment) (comment.Comment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cmt.ID = uuid.New().String()
	repo.db.comments[cmt.ID] = &cmt
	return cmt, nil
}

func (repo *commentRepository) QueryComments(ctx context.Context, lessonID string, limit, offset int) ([]comment.Comment, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	all := make([]comment.Comment, 0)
	for _, cmt := range repo.db.comments {
		if cmt.LessonID == lessonID && cmt.IsActive {
			c := *cmt
			c.Replies = repo.activeReplies(c.ID)
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return []comment.Comment{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (repo *commentRepository) GetCommentByID(ctx context.Context, id string) (comment.Comment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cmt, ok := repo.db.comments[id]
	if !ok || !cmt.IsActive {
		return comment.Comment{}, comment.ErrNotFound
	}
	c := *cmt
	c.Replies = repo.activeReplies(c.ID)
	return c, nil
}

func (repo *commentRepository) UpdateComment(ctx context.Context, cmt comment.Comment) (comment.Comment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.comments[cmt.ID]
	if !ok || !orig.IsActive {
		return comment.Comment{}, comment.ErrNotFound
	}
	orig.Content = cmt.Content
	orig.UpdatedAt = cmt.UpdatedAt
	return cmt, nil
}

func (repo *commentRepository) SoftDeleteComment(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cmt, ok := repo.db.comments[id]
	if !ok || !cmt.IsActive {
		return comment.ErrNotFound
	}
	cmt.IsActive = false
	for _, rep := range repo.db.replies {
		if rep.CommentID == id {
			rep.IsActive = false
		}
	}
	return nil
}

func (repo *commentRepository) CreateReply(ctx context.Context, rep comment.Reply) (comment.Reply, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rep.ID = uuid.New().String()
	repo.db.replies[rep.ID] = &rep
	return rep, nil
}

func (repo *commentRepository) GetReplyByID(ctx context.Context, id string) (comment.Reply, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rep, ok := repo.db.replies[id]
	if !ok || !rep.IsActive {
		return comment.Reply{}, comment.ErrReplyNotFound
	}
	return *rep, nil
}

func (repo *commentRepository) UpdateReply(ctx context.Context, rep comment.Reply) (comment.Reply, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.replies[rep.ID]
	if !ok || !orig.IsActive {
		return comment.Reply{}, comment.ErrReplyNotFound
	}
	orig.Content = rep.Content
	orig.UpdatedAt = rep.UpdatedAt
	return rep, nil
}

func (repo *commentRepository) SoftDeleteReply(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	rep, ok := repo.db.replies[id]
	if !ok || !rep.IsActive {
		return comment.ErrReplyNotFound
	}
	rep.IsActive = false
	return nil
}

func (repo *commentRepository) CountByLesson(ctx context.Context, lessonID string) (comment.Stats, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	stats := comment.Stats{LessonID: lessonID}
	for _, cmt := range repo.db.comments {
		if cmt.LessonID == lessonID && cmt.IsActive {
			stats.CommentCount++
			stats.ReplyCount += len(repo.activeReplies(cmt.ID))
		}
	}
	return stats, nil
}
