package dummydb

import (
	"context"
	"testing"
	"time"

	"github.com/somo-lms/somo/core/comment"
)

func TestCommentRepository_SoftDeleteCascade(t *testing.T) {
	db, err := Open()
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	repo := NewCommentRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	cmt, err := repo.CreateComment(ctx, comment.Comment{
		LessonID: "les1", UserID: "u1", Content: "question?",
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateComment() failed: %v", err)
	}
	var replies []comment.Reply
	for _, content := range []string{"answer one", "answer two"} {
		rep, err := repo.CreateReply(ctx, comment.Reply{
			CommentID: cmt.ID, UserID: "u2", Content: content,
			IsActive: true, CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("CreateReply() failed: %v", err)
		}
		replies = append(replies, rep)
	}

	if err := repo.SoftDeleteComment(ctx, cmt.ID); err != nil {
		t.Fatalf("SoftDeleteComment() failed: %v", err)
	}

	// the rows remain, flipped inactive; nothing is hard-deleted
	row, ok := db.comment.comments[cmt.ID]
	if !ok {
		t.Fatal("comment row was removed")
	}
	if row.IsActive {
		t.Error("comment row still active")
	}
	for _, rep := range replies {
		row, ok := db.comment.replies[rep.ID]
		if !ok {
			t.Errorf("reply row %s was removed", rep.ID)
			continue
		}
		if row.IsActive {
			t.Errorf("reply row %s still active", rep.ID)
		}
	}

	// the read surface no longer serves any of them
	if _, err := repo.GetCommentByID(ctx, cmt.ID); err != comment.ErrNotFound {
		t.Errorf("GetCommentByID() error = %v; want ErrNotFound", err)
	}
	for _, rep := range replies {
		if _, err := repo.GetReplyByID(ctx, rep.ID); err != comment.ErrReplyNotFound {
			t.Errorf("GetReplyByID() error = %v; want ErrReplyNotFound", err)
		}
	}
}
