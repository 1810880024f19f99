package course

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/somo-lms/somo/core"
)

type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Price       int       `json:"price"` // cents; 0 = free
	TeacherID   string    `json:"teacher_id"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (c *Course) IsFree() bool { return c.Price == 0 }

type Lesson struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Enrollment links a student to a course, granting comment-write access.
type Enrollment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	Price       int    `json:"price" validate:"omitempty,min=0"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title       string `json:"title" validate:"omitempty,max=200"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	Price       *int   `json:"price" validate:"omitempty,min=0"`
	IsPublished *bool  `json:"is_published"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	uc.Description = core.CleanString(uc.Description)
	return validate.Struct(uc)
}

// NewLesson contains information needed to add a Lesson to a Course.
type NewLesson struct {
	Title    string `json:"title" validate:"required,max=200"`
	Position int    `json:"position" validate:"omitempty,min=0"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	return validate.Struct(nl)
}

type QueryFilter struct {
	Search      string `query:"search"`
	TeacherID   string `query:"teacher_id"`
	IsPublished *bool  `query:"is_published"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

var slugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a course title.
func Slugify(title string) string {
	slug := slugRegex.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}
