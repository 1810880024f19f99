package dummydb

import (
	"sync"

	"github.com/somo-lms/somo/core/comment"
	"github.com/somo-lms/somo/core/course"
	"github.com/somo-lms/somo/core/payment"
	"github.com/somo-lms/somo/core/review"
	"github.com/somo-lms/somo/core/user"
)

type (
	DB struct {
		user    *userTable
		course  *courseTable
		comment *commentTable
		review  *reviewTable
		payment *paymentTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		courses     map[string]*course.Course
		lessons     map[string]*course.Lesson
		enrollments map[string]*course.Enrollment
	}

	commentTable struct {
		sync.RWMutex
		comments map[string]*comment.Comment
		replies  map[string]*comment.Reply
	}

	reviewTable struct {
		sync.RWMutex
		table map[string]*review.Review
	}

	paymentTable struct {
		sync.RWMutex
		table map[string]*payment.Payment
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		course: &courseTable{
			courses:     make(map[string]*course.Course),
			lessons:     make(map[string]*course.Lesson),
			enrollments: make(map[string]*course.Enrollment),
		},
		comment: &commentTable{
			comments: make(map[string]*comment.Comment),
			replies:  make(map[string]*comment.Reply),
		},
		review:  &reviewTable{table: make(map[string]*review.Review)},
		payment: &paymentTable{table: make(map[string]*payment.Payment)},
	}
	return db, nil
}
