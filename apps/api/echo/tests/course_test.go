package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/somo-lms/somo/core/course"
	"github.com/somo-lms/somo/core/user"
	testutil "github.com/somo-lms/somo/tests"
)

func Test_courseApi_create(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "Crs Teacher", "crsteacher", "crsteacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Crs Student", "crsstudent", "crsstudent@test.cd", "", []string{user.RoleStudent}, true)

	tests := []httpTest{
		{
			name: "teacher creates a course", method: http.MethodPost, path: "/api/courses",
			body:  marchallObj(t, course.NewCourse{Title: "Intro to Go", Description: "Channels and friends", Price: 2500}),
			token: getToken(t, teacher), wantCode: http.StatusCreated,
		},
		{
			name: "student is forbidden", method: http.MethodPost, path: "/api/courses",
			body:  marchallObj(t, course.NewCourse{Title: "Sneaky Course"}),
			token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "duplicate title is rejected", method: http.MethodPost, path: "/api/courses",
			body:  marchallObj(t, course.NewCourse{Title: "Intro to Go"}),
			token: getToken(t, teacher), wantCode: http.StatusBadRequest,
		},
		{
			name: "missing title", method: http.MethodPost, path: "/api/courses",
			body:  marchallObj(t, course.NewCourse{Description: "no title"}),
			token: getToken(t, teacher), wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body = %v", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if tt.wantCode == http.StatusCreated {
				var crs course.Course
				if err := json.Unmarshal(rec.Body.Bytes(), &crs); err != nil {
					t.Fatalf("unmarshalling Course: %v", err)
				}
				if crs.Slug != "intro-to-go" {
					t.Errorf("slug = %q; want %q", crs.Slug, "intro-to-go")
				}
				if crs.TeacherID != teacher.ID {
					t.Errorf("teacherID = %q; want %q", crs.TeacherID, teacher.ID)
				}
			}
		})
	}
}

func Test_courseApi_retrieve(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "Ret Teacher", "retteacher", "retteacher@test.cd", "", []string{user.RoleTeacher}, true)
	crs := testutil.CreateCourse(t, courseRepo, "Retrieve Me", teacher.ID, 0)

	tests := []httpTest{
		{
			name: "by ID", method: http.MethodGet, path: "/api/courses/" + crs.ID,
			wantCode: http.StatusOK, wantData: marchallObj(t, crs),
		},
		{
			name: "by slug", method: http.MethodGet, path: "/api/courses/slug/" + crs.Slug,
			wantCode: http.StatusOK, wantData: marchallObj(t, crs),
		},
		{
			name: "unknown ID", method: http.MethodGet, path: "/api/courses/deadbeef",
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_lessons(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "Les Teacher", "lesteacher", "lesteacher@test.cd", "", []string{user.RoleTeacher}, true)
	intruder := testutil.CreateUser(t, usrRepo, "Les Intruder", "lesintruder", "lesintruder@test.cd", "", []string{user.RoleTeacher}, true)
	crs := testutil.CreateCourse(t, courseRepo, "With Lessons", teacher.ID, 0)

	// only the owning teacher may add lessons
	body := marchallObj(t, course.NewLesson{Title: "Lesson One", Position: 1})
	req, rec := newAuthRequest(http.MethodPost, "/api/courses/"+crs.ID+"/lessons", getToken(t, intruder), body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("intruder: code = %v; wantCode %v", rec.Code, http.StatusForbidden)
	}

	req, rec = newAuthRequest(http.MethodPost, "/api/courses/"+crs.ID+"/lessons", getToken(t, teacher), body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("owner: code = %v; wantCode %v; body = %v", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var les course.Lesson
	if err := json.Unmarshal(rec.Body.Bytes(), &les); err != nil {
		t.Fatalf("unmarshalling Lesson: %v", err)
	}

	// lesson listing is public
	req, rec = newRequest(http.MethodGet, "/api/courses/"+crs.ID+"/lessons")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("listing: code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
	var lessons []course.Lesson
	if err := json.Unmarshal(rec.Body.Bytes(), &lessons); err != nil {
		t.Fatalf("unmarshalling []Lesson: %v", err)
	}
	if len(lessons) != 1 || lessons[0].ID != les.ID {
		t.Errorf("lessons = %v; want [%v]", lessons, les.ID)
	}

	// lesson detail
	req, rec = newRequest(http.MethodGet, "/api/lessons/"+les.ID)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("detail: code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
}

func Test_courseApi_enroll(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "Enr Teacher", "enrteacher", "enrteacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Enr Student", "enrstudent", "enrstudent@test.cd", "", []string{user.RoleStudent}, true)
	free := testutil.CreateCourse(t, courseRepo, "Free Course", teacher.ID, 0)
	paid := testutil.CreateCourse(t, courseRepo, "Paid Course", teacher.ID, 5000)

	token := getToken(t, student)

	// free course enrolls directly
	req, rec := newAuthRequest(http.MethodPost, "/api/courses/"+free.ID+"/enroll", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("free: code = %v; wantCode %v; body = %v", rec.Code, http.StatusCreated, rec.Body.String())
	}

	// enrolling twice is rejected
	req, rec = newAuthRequest(http.MethodPost, "/api/courses/"+free.ID+"/enroll", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate: code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// paid course must go through checkout
	req, rec = newAuthRequest(http.MethodPost, "/api/courses/"+paid.ID+"/enroll", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("paid: code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// enrollment listing
	req, rec = newAuthRequest(http.MethodGet, "/api/enrollments", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("listing: code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
	var enrollments []course.Enrollment
	if err := json.Unmarshal(rec.Body.Bytes(), &enrollments); err != nil {
		t.Fatalf("unmarshalling []Enrollment: %v", err)
	}
	if len(enrollments) != 1 || enrollments[0].CourseID != free.ID {
		t.Errorf("enrollments = %v; want one for course %v", enrollments, free.ID)
	}
}

func Test_courseApi_queryVisibility(t *testing.T) {
	owner := testutil.CreateUser(t, usrRepo, "Vis Owner", "visowner", "visowner@test.cd", "", []string{user.RoleTeacher}, true)
	other := testutil.CreateUser(t, usrRepo, "Vis Other", "visother", "visother@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Vis Student", "visstudent", "visstudent@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Vis Admin", "visadmin", "visadmin@test.cd", "", user.AllRoles, true)

	published := testutil.CreateCourse(t, courseRepo, "VisQuery Published", owner.ID, 0)

	now := time.Now().UTC()
	draft, err := courseRepo.CreateCourse(context.Background(), course.Course{
		Title:     "VisQuery Draft",
		Slug:      course.Slugify("VisQuery Draft"),
		TeacherID: owner.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("creating draft: %v", err)
	}

	listIDs := func(t *testing.T, path, token string) map[string]bool {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; wantCode %v; body = %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var courses []course.Course
		if err := json.Unmarshal(rec.Body.Bytes(), &courses); err != nil {
			t.Fatalf("unmarshalling []Course: %v", err)
		}
		ids := make(map[string]bool, len(courses))
		for _, crs := range courses {
			ids[crs.ID] = true
		}
		return ids
	}
	path := "/api/courses?search=visquery"

	tests := []struct {
		name      string
		token     string
		wantDraft bool
	}{
		{name: "anonymous sees published only"},
		{name: "student sees published only", token: getToken(t, student)},
		{name: "other teacher does not see the draft", token: getToken(t, other)},
		{name: "owning teacher sees their draft", token: getToken(t, owner), wantDraft: true},
		{name: "admin sees the draft", token: getToken(t, admin), wantDraft: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := listIDs(t, path, tt.token)
			if !ids[published.ID] {
				t.Errorf("published course missing from listing")
			}
			if ids[draft.ID] != tt.wantDraft {
				t.Errorf("draft listed = %v; want %v", ids[draft.ID], tt.wantDraft)
			}
		})
	}

	// an explicit is_published=false filter cannot expose drafts either
	t.Run("anonymous filter override", func(t *testing.T) {
		ids := listIDs(t, path+"&is_published=false", "")
		if ids[draft.ID] {
			t.Error("draft listed for anonymous is_published=false query")
		}
	})
}
