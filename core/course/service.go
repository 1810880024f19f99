package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/somo-lms/somo/core"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrLessonNotFound  = errors.New("lesson not found")
	ErrSlugExists      = errors.New("a course with this title already exists")
	ErrAlreadyEnrolled = errors.New("user is already enrolled in this course")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		GetCourseBySlug(ctx context.Context, slug string) (Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)

		CreateLesson(ctx context.Context, les Lesson) (Lesson, error)
		QueryLessons(ctx context.Context, courseID string) ([]Lesson, error)
		GetLessonByID(ctx context.Context, id string) (Lesson, error)

		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		EnrollmentExists(ctx context.Context, userID, courseID string) (bool, error)
		QueryEnrollments(ctx context.Context, userID string) ([]Enrollment, error)
	}

	Service interface {
		Create(ctx context.Context, teacherID string, nc NewCourse) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		GetBySlug(ctx context.Context, slug string) (Course, error)
		Update(ctx context.Context, id string, uc UpdateCourse) (Course, error)

		AddLesson(ctx context.Context, courseID string, nl NewLesson) (Lesson, error)
		QueryLessons(ctx context.Context, courseID string) ([]Lesson, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)

		Enroll(ctx context.Context, userID, courseID string) (Enrollment, error)
		IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
		QueryEnrollments(ctx context.Context, userID string) ([]Enrollment, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, teacherID string, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:       nc.Title,
		Slug:        Slugify(nc.Title),
		Description: nc.Description,
		Price:       nc.Price,
		TeacherID:   teacherID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := svc.repo.GetCourseBySlug(ctx, crs.Slug); err == nil {
		return Course{}, core.NewValidationError(ErrSlugExists, core.FieldError{Field: "title", Error: ErrSlugExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return Course{}, err
	}

	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) GetBySlug(ctx context.Context, slug string) (Course, error) {
	return svc.repo.GetCourseBySlug(ctx, core.CleanString(slug, true /* lower */))
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}

	if uc.Title != "" {
		crs.Title = uc.Title
		crs.Slug = Slugify(uc.Title)
	}
	if uc.Description != "" {
		crs.Description = uc.Description
	}
	if uc.Price != nil {
		crs.Price = *uc.Price
	}
	if uc.IsPublished != nil {
		crs.IsPublished = *uc.IsPublished
	}
	crs.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) AddLesson(ctx context.Context, courseID string, nl NewLesson) (Lesson, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return Lesson{}, err
	}

	now := time.Now().UTC()
	les := Lesson{
		CourseID:  courseID,
		Title:     nl.Title,
		Position:  nl.Position,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateLesson(ctx, les)
}

func (svc *service) QueryLessons(ctx context.Context, courseID string) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, courseID)
}

func (svc *service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

// Enroll links userID to courseID. Enrolling twice is a validation error.
func (svc *service) Enroll(ctx context.Context, userID, courseID string) (Enrollment, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return Enrollment{}, err
	}

	exists, err := svc.repo.EnrollmentExists(ctx, userID, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if exists {
		return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled)
	}

	enr := Enrollment{
		UserID:    userID,
		CourseID:  courseID,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateEnrollment(ctx, enr)
}

func (svc *service) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	return svc.repo.EnrollmentExists(ctx, userID, courseID)
}

func (svc *service) QueryEnrollments(ctx context.Context, userID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, userID)
}
