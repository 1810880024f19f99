package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/somo-lms/somo/core/comment"
	"github.com/somo-lms/somo/core/course"
	"github.com/somo-lms/somo/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, title, teacherID string, price int) course.Course {
	t.Helper()

	now := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:       title,
		Slug:        course.Slugify(title),
		Price:       price,
		TeacherID:   teacherID,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateLesson(t *testing.T, repo course.Repository, courseID, title string, position int) course.Lesson {
	t.Helper()

	now := time.Now().UTC()
	les, err := repo.CreateLesson(context.Background(), course.Lesson{
		CourseID:  courseID,
		Title:     title,
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return les
}

func Enroll(t *testing.T, repo course.Repository, userID, courseID string) course.Enrollment {
	t.Helper()

	enr, err := repo.CreateEnrollment(context.Background(), course.Enrollment{
		UserID:    userID,
		CourseID:  courseID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

func CreateComment(t *testing.T, repo comment.Repository, lessonID, userID, content string) comment.Comment {
	t.Helper()

	now := time.Now().UTC()
	cmt, err := repo.CreateComment(context.Background(), comment.Comment{
		LessonID:  lessonID,
		UserID:    userID,
		Content:   content,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateComment() failed: %v", err)
	}
	return cmt
}

func CreateReply(t *testing.T, repo comment.Repository, commentID, userID, content string) comment.Reply {
	t.Helper()

	now := time.Now().UTC()
	rpl, err := repo.CreateReply(context.Background(), comment.Reply{
		CommentID: commentID,
		UserID:    userID,
		Content:   content,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateReply() failed: %v", err)
	}
	return rpl
}
