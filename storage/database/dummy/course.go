package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/somo-lms/somo/core"
	"github.com/somo-lms/somo/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs.ID = uuid.New().String()
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		courses = append(courses, *crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })

	if filter == nil {
		return courses, nil
	}

	if filter.Search != "" {
		var filtered []course.Course
		search := strings.ToLower(filter.Search)
		for _, crs := range courses {
			if strings.Contains(strings.ToLower(crs.Title), search) ||
				strings.Contains(strings.ToLower(crs.Description), search) {
				filtered = append(filtered, crs)
			}
		}
		courses = filtered
	}
	if filter.TeacherID != "" {
		var filtered []course.Course
		for _, crs := range courses {
			if crs.TeacherID == filter.TeacherID {
				filtered = append(filtered, crs)
			}
		}
		courses = filtered
	}
	if filter.IsPublished != nil {
		var filtered []course.Course
		for _, crs := range courses {
			if crs.IsPublished == *filter.IsPublished {
				filtered = append(filtered, crs)
			}
		}
		courses = filtered
	}

	return courses, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseBySlug(ctx context.Context, slug string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, crs := range repo.db.courses {
		if crs.Slug == slug {
			return *crs, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) CreateLesson(ctx context.Context, les course.Lesson) (course.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	les.ID = uuid.New().String()
	repo.db.lessons[les.ID] = &les
	return les, nil
}

func (repo *courseRepository) QueryLessons(ctx context.Context, courseID string) ([]course.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := make([]course.Lesson, 0)
	for _, les := range repo.db.lessons {
		if les.CourseID == courseID {
			lessons = append(lessons, *les)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].Position != lessons[j].Position {
			return lessons[i].Position < lessons[j].Position
		}
		return lessons[i].CreatedAt.Before(lessons[j].CreatedAt)
	})
	return lessons, nil
}

func (repo *courseRepository) GetLessonByID(ctx context.Context, id string) (course.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if les, ok := repo.db.lessons[id]; ok {
		return *les, nil
	}
	return course.Lesson{}, course.ErrLessonNotFound
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	enr.ID = uuid.New().String()
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *courseRepository) EnrollmentExists(ctx context.Context, userID, courseID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.UserID == userID && enr.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *courseRepository) QueryEnrollments(ctx context.Context, userID string) ([]course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrs := make([]course.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if enr.UserID == userID {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].CreatedAt.After(enrs[j].CreatedAt) })
	return enrs, nil
}
