package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/somo-lms/somo/core/comment"
	"github.com/somo-lms/somo/storage/database"
)

type commentRow struct {
	ID        string    `db:"id"`
	LessonID  string    `db:"lesson_id"`
	UserID    string    `db:"user_id"`
	Content   string    `db:"content"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row commentRow) comment() comment.Comment {
	return comment.Comment{
		ID:        row.ID,
		LessonID:  row.LessonID,
		UserID:    row.UserID,
		Content:   row.Content,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		Replies:   []comment.Reply{},
	}
}

type replyRow struct {
	ID        string    `db:"id"`
	CommentID string    `db:"comment_id"`
	UserID    string    `db:"user_id"`
	Content   string    `db:"content"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row replyRow) reply() comment.Reply {
	return comment.Reply(row)
}

type commentRepository struct {
	db *sqlx.DB
}

var _ comment.Repository = (*commentRepository)(nil) // interface compliance check

func NewCommentRepository(db *sqlx.DB) *commentRepository {
	return &commentRepository{db: db}
}

func (repo commentRepository) CreateComment(ctx context.Context, cmt comment.Comment) (comment.Comment, error) {
	cmt.ID = uuid.New().String()
	err := database.Retry(ctx, func() error {
		_, err := repo.db.ExecContext(ctx, `
			INSERT INTO comment (id, lesson_id, user_id, content, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			cmt.ID, cmt.LessonID, cmt.UserID, cmt.Content, cmt.IsActive, cmt.CreatedAt, cmt.UpdatedAt)
		return err
	})
	if err != nil {
		return comment.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return cmt, nil
}

func (repo commentRepository) QueryComments(ctx context.Context, lessonID string, limit, offset int) ([]comment.Comment, int, error) {
	var total int
	err := database.Retry(ctx, func() error {
		return repo.db.GetContext(ctx, &total,
			"SELECT COUNT(*) FROM comment WHERE lesson_id = $1 AND is_active", lessonID)
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting comments")
	}

	var rows []commentRow
	err = database.Retry(ctx, func() error {
		rows = rows[:0]
		return repo.db.SelectContext(ctx, &rows, `
			SELECT * FROM comment
			WHERE lesson_id = $1 AND is_active
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`,
			lessonID, limit, offset)
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying comments")
	}
	if len(rows) == 0 {
		return []comment.Comment{}, total, nil
	}

	comments := make([]comment.Comment, 0, len(rows))
	byID := make(map[string]int, len(rows))
	ids := make([]string, 0, len(rows))
	for i, row := range rows {
		comments = append(comments, row.comment())
		byID[row.ID] = i
		ids = append(ids, row.ID)
	}

	var repRows []replyRow
	err = database.Retry(ctx, func() error {
		repRows = repRows[:0]
		return repo.db.SelectContext(ctx, &repRows, `
			SELECT * FROM reply
			WHERE comment_id = ANY($1) AND is_active
			ORDER BY created_at`,
			pq.StringArray(ids))
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying replies")
	}
	for _, row := range repRows {
		if i, ok := byID[row.CommentID]; ok {
			comments[i].Replies = append(comments[i].Replies, row.reply())
		}
	}

	return comments, total, nil
}

func (repo commentRepository) GetCommentByID(ctx context.Context, id string) (comment.Comment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return comment.Comment{}, comment.ErrNotFound
	}

	var row commentRow
	err := database.Retry(ctx, func() error {
		return repo.db.GetContext(ctx, &row, "SELECT * FROM comment WHERE id = $1 AND is_active", id)
	})
	if err != nil {
		return comment.Comment{}, trapNoRowsErr(err, comment.ErrNotFound, "finding comment")
	}

	cmt := row.comment()
	var repRows []replyRow
	err = database.Retry(ctx, func() error {
		repRows = repRows[:0]
		return repo.db.SelectContext(ctx, &repRows,
			"SELECT * FROM reply WHERE comment_id = $1 AND is_active ORDER BY created_at", id)
	})
	if err != nil {
		return comment.Comment{}, errors.Wrap(err, "querying replies")
	}
	for _, repRow := range repRows {
		cmt.Replies = append(cmt.Replies, repRow.reply())
	}
	return cmt, nil
}

func (repo commentRepository) UpdateComment(ctx context.Context, cmt comment.Comment) (comment.Comment, error) {
	err := database.Retry(ctx, func() error {
		_, err := repo.db.ExecContext(ctx,
			"UPDATE comment SET content = $2, updated_at = $3 WHERE id = $1",
			cmt.ID, cmt.Content, cmt.UpdatedAt)
		return err
	})
	if err != nil {
		return comment.Comment{}, errors.Wrap(err, "updating comment")
	}
	return cmt, nil
}

// SoftDeleteComment deactivates the comment and all of its replies in one
// transaction so a reader never sees a half-deleted thread.
func (repo commentRepository) SoftDeleteComment(ctx context.Context, id string) error {
	return database.Retry(ctx, func() error {
		tx, err := repo.db.BeginTxx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "starting transaction")
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx, "UPDATE comment SET is_active = FALSE WHERE id = $1 AND is_active", id)
		if err != nil {
			return errors.Wrap(err, "deleting comment")
		}
		if cnt, _ := res.RowsAffected(); cnt == 0 {
			return comment.ErrNotFound
		}
		if _, err = tx.ExecContext(ctx, "UPDATE reply SET is_active = FALSE WHERE comment_id = $1", id); err != nil {
			return errors.Wrap(err, "deleting replies")
		}
		return errors.Wrap(tx.Commit(), "committing")
	})
}

func (repo commentRepository) CreateReply(ctx context.Context, rep comment.Reply) (comment.Reply, error) {
	rep.ID = uuid.New().String()
	err := database.Retry(ctx, func() error {
		_, err := repo.db.ExecContext(ctx, `
			INSERT INTO reply (id, comment_id, user_id, content, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rep.ID, rep.CommentID, rep.UserID, rep.Content, rep.IsActive, rep.CreatedAt, rep.UpdatedAt)
		return err
	})
	if err != nil {
		return comment.Reply{}, errors.Wrap(err, "inserting reply")
	}
	return rep, nil
}

func (repo commentRepository) GetReplyByID(ctx context.Context, id string) (comment.Reply, error) {
	if _, err := uuid.Parse(id); err != nil {
		return comment.Reply{}, comment.ErrReplyNotFound
	}

	var row replyRow
	err := database.Retry(ctx, func() error {
		return repo.db.GetContext(ctx, &row, "SELECT * FROM reply WHERE id = $1 AND is_active", id)
	})
	if err != nil {
		return comment.Reply{}, trapNoRowsErr(err, comment.ErrReplyNotFound, "finding reply")
	}
	return row.reply(), nil
}

func (repo commentRepository) UpdateReply(ctx context.Context, rep comment.Reply) (comment.Reply, error) {
	err := database.Retry(ctx, func() error {
		_, err := repo.db.ExecContext(ctx,
			"UPDATE reply SET content = $2, updated_at = $3 WHERE id = $1",
			rep.ID, rep.Content, rep.UpdatedAt)
		return err
	})
	if err != nil {
		return comment.Reply{}, errors.Wrap(err, "updating reply")
	}
	return rep, nil
}

func (repo commentRepository) SoftDeleteReply(ctx context.Context, id string) error {
	return database.Retry(ctx, func() error {
		res, err := repo.db.ExecContext(ctx, "UPDATE reply SET is_active = FALSE WHERE id = $1 AND is_active", id)
		if err != nil {
			return errors.Wrap(err, "deleting reply")
		}
		if cnt, _ := res.RowsAffected(); cnt == 0 {
			return comment.ErrReplyNotFound
		}
		return nil
	})
}

func (repo commentRepository) CountByLesson(ctx context.Context, lessonID string) (comment.Stats, error) {
	var counts struct {
		CommentCount int `db:"comment_count"`
		ReplyCount   int `db:"reply_count"`
	}
	err := database.Retry(ctx, func() error {
		return repo.db.GetContext(ctx, &counts, `
			SELECT
				(SELECT COUNT(*) FROM comment WHERE lesson_id = $1 AND is_active) AS comment_count,
				(SELECT COUNT(*) FROM reply r JOIN comment c ON r.comment_id = c.id
				 WHERE c.lesson_id = $1 AND r.is_active AND c.is_active) AS reply_count`,
			lessonID)
	})
	if err != nil {
		return comment.Stats{}, errors.Wrap(err, "counting comments")
	}
	return comment.Stats{
		LessonID:     lessonID,
		CommentCount: counts.CommentCount,
		ReplyCount:   counts.ReplyCount,
	}, nil
}
