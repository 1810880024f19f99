package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/somo-lms/somo/core"
	"github.com/somo-lms/somo/core/course"
	"github.com/somo-lms/somo/storage/database"
)

type courseRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Slug        string    `db:"slug"`
	Description string    `db:"description"`
	Price       int       `db:"price"`
	TeacherID   string    `db:"teacher_id"`
	IsPublished bool      `db:"is_published"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row courseRow) course() course.Course {
	return course.Course{
		ID:          row.ID,
		Title:       row.Title,
		Slug:        row.Slug,
		Description: row.Description,
		Price:       row.Price,
		TeacherID:   row.TeacherID,
		IsPublished: row.IsPublished,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type lessonRow struct {
	ID        string    `db:"id"`
	CourseID  string    `db:"course_id"`
	Title     string    `db:"title"`
	Position  int       `db:"position"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row lessonRow) lesson() course.Lesson {
	return course.Lesson(row)
}

type enrollmentRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	CourseID  string    `db:"course_id"`
	CreatedAt time.Time `db:"created_at"`
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	err := database.Retry(ctx, func() error {
		_, err := repo.db.ExecContext(ctx, `
			INSERT INTO course (id, title, slug, description, price, teacher_id, is_published, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			crs.ID, crs.Title, crs.Slug, crs.Description, crs.Price, crs.TeacherID, crs.IsPublished, crs.CreatedAt, crs.UpdatedAt)
		return err
	})
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	query := "SELECT * FROM course"
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			p1, p2 := arg(val), arg(val)
			conds = append(conds, "(title ILIKE "+p1+" OR description ILIKE "+p2+")")
		}
		if filter.TeacherID != "" {
			conds = append(conds, "teacher_id = "+arg(filter.TeacherID))
		}
		if filter.IsPublished != nil {
			conds = append(conds, "is_published = "+arg(*filter.IsPublished))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	} else {
		query += " ORDER BY created_at DESC"
	}

	var rows []courseRow
	err := database.Retry(ctx, func() error {
		rows = rows[:0]
		return repo.db.SelectContext(ctx, &rows, query, args...)
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.course())
	}
	return courses, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	return repo.getCourse(ctx, "SELECT * FROM course WHERE id = $1", id)
}

func (repo courseRepository) GetCourseBySlug(ctx context.Context, slug string) (course.Course, error) {
	return repo.getCourse(ctx, "SELECT * FROM course WHERE slug = $1", slug)
}

func (repo courseRepository) getCourse(ctx context.Context, query string, arg interface{}) (course.Course, error) {
	var row courseRow
	err := database.Retry(ctx, func() error {
		return repo.db.GetContext(ctx, &row, query, arg)
	})
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return row.course(), nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	err := database.Retry(ctx, func() error {
		_, err := repo.db.ExecContext(ctx, `
			UPDATE course
			SET title = $2, slug = $3, description = $4, price = $5, is_published = $6, updated_at = $7
			WHERE id = $1`,
			crs.ID, crs.Title, crs.Slug, crs.Description, crs.Price, crs.IsPublished, crs.UpdatedAt)
		return err
	})
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	return crs, nil
}

func (repo courseRepository) CreateLesson(ctx context.Context, les course.Lesson) (course.Lesson, error) {
	les.ID = uuid.New().String()
	err := database.Retry(ctx, func() error {
		_, err := repo.db.ExecContext(ctx, `
			INSERT INTO lesson (id, course_id, title, position, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			les.ID, les.CourseID, les.Title, les.Position, les.CreatedAt, les.UpdatedAt)
		return err
	})
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return les, nil
}

func (repo courseRepository) QueryLessons(ctx context.Context, courseID string) ([]course.Lesson, error) {
	var rows []lessonRow
	err := database.Retry(ctx, func() error {
		rows = rows[:0]
		return repo.db.SelectContext(ctx, &rows,
			"SELECT * FROM lesson WHERE course_id = $1 ORDER BY position, created_at", courseID)
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}

	lessons := make([]course.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, row.lesson())
	}
	return lessons, nil
}

func (repo courseRepository) GetLessonByID(ctx context.Context, id string) (course.Lesson, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Lesson{}, course.ErrLessonNotFound
	}

	var row lessonRow
	err := database.Retry(ctx, func() error {
		return repo.db.GetContext(ctx, &row, "SELECT * FROM lesson WHERE id = $1", id)
	})
	if err != nil {
		return course.Lesson{}, trapNoRowsErr(err, course.ErrLessonNotFound, "finding lesson")
	}
	return row.lesson(), nil
}

func (repo courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	enr.ID = uuid.New().String()
	err := database.Retry(ctx, func() error {
		_, err := repo.db.ExecContext(ctx, `
			INSERT INTO enrollment (id, user_id, course_id, created_at)
			VALUES ($1, $2, $3, $4)`,
			enr.ID, enr.UserID, enr.CourseID, enr.CreatedAt)
		return err
	})
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo courseRepository) EnrollmentExists(ctx context.Context, userID, courseID string) (bool, error) {
	var exists bool
	err := database.Retry(ctx, func() error {
		return repo.db.GetContext(ctx, &exists,
			"SELECT EXISTS (SELECT 1 FROM enrollment WHERE user_id = $1 AND course_id = $2)", userID, courseID)
	})
	if err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return exists, nil
}

func (repo courseRepository) QueryEnrollments(ctx context.Context, userID string) ([]course.Enrollment, error) {
	var rows []enrollmentRow
	err := database.Retry(ctx, func() error {
		rows = rows[:0]
		return repo.db.SelectContext(ctx, &rows,
			"SELECT * FROM enrollment WHERE user_id = $1 ORDER BY created_at DESC", userID)
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	enrs := make([]course.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, course.Enrollment(row))
	}
	return enrs, nil
}
