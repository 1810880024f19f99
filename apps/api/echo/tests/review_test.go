package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/somo-lms/somo/core/review"
	"github.com/somo-lms/somo/core/user"
	testutil "github.com/somo-lms/somo/tests"
)

func Test_reviewApi(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "Rev Teacher", "revteacher", "revteacher@test.cd", "", []string{user.RoleTeacher}, true)
	fan := testutil.CreateUser(t, usrRepo, "Rev Fan", "revfan", "revfan@test.cd", "", []string{user.RoleStudent}, true)
	critic := testutil.CreateUser(t, usrRepo, "Rev Critic", "revcritic", "revcritic@test.cd", "", []string{user.RoleStudent}, true)
	outsider := testutil.CreateUser(t, usrRepo, "Rev Outsider", "revoutsider", "revoutsider@test.cd", "", []string{user.RoleStudent}, true)

	crs := testutil.CreateCourse(t, courseRepo, "Reviewed Course", teacher.ID, 0)
	testutil.Enroll(t, courseRepo, fan.ID, crs.ID)
	testutil.Enroll(t, courseRepo, critic.ID, crs.ID)

	post := func(t *testing.T, token string, body []byte) {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, "/api/courses/"+crs.ID+"/reviews", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create: code = %v; wantCode %v; body = %v", rec.Code, http.StatusCreated, rec.Body.String())
		}
	}

	post(t, getToken(t, fan), marchallObj(t, review.NewReview{Rating: 5, Content: "loved it"}))
	post(t, getToken(t, critic), marchallObj(t, review.NewReview{Rating: 2, Content: "meh"}))

	// not enrolled
	req, rec := newAuthRequest(http.MethodPost, "/api/courses/"+crs.ID+"/reviews", getToken(t, outsider),
		marchallObj(t, review.NewReview{Rating: 4}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("outsider: code = %v; wantCode %v", rec.Code, http.StatusForbidden)
	}

	// one review per user per course
	req, rec = newAuthRequest(http.MethodPost, "/api/courses/"+crs.ID+"/reviews", getToken(t, fan),
		marchallObj(t, review.NewReview{Rating: 1}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate: code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// rating out of range
	req, rec = newAuthRequest(http.MethodPost, "/api/courses/"+crs.ID+"/reviews", getToken(t, critic),
		marchallObj(t, review.NewReview{Rating: 6}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad rating: code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// listing is public
	req, rec = newRequest(http.MethodGet, "/api/courses/"+crs.ID+"/reviews")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("listing: code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
	var page review.Page
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshalling Page: %v", err)
	}
	if len(page.Reviews) != 2 {
		t.Errorf("reviews = %v; want 2", len(page.Reviews))
	}

	// aggregated rating
	req, rec = newRequest(http.MethodGet, "/api/courses/"+crs.ID+"/rating")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("rating: code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
	var rating review.CourseRating
	if err := json.Unmarshal(rec.Body.Bytes(), &rating); err != nil {
		t.Fatalf("unmarshalling CourseRating: %v", err)
	}
	if rating.Count != 2 || rating.Average != 3.5 {
		t.Errorf("rating = %+v; want count 2 average 3.5", rating)
	}

	// only the author may delete
	var fanReview review.Review
	for _, rev := range page.Reviews {
		if rev.UserID == fan.ID {
			fanReview = rev
		}
	}
	req, rec = newAuthRequest(http.MethodDelete, "/api/reviews/"+fanReview.ID, getToken(t, critic))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-author delete: code = %v; wantCode %v", rec.Code, http.StatusForbidden)
	}

	req, rec = newAuthRequest(http.MethodDelete, "/api/reviews/"+fanReview.ID, getToken(t, fan))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("author delete: code = %v; wantCode %v; body = %v", rec.Code, http.StatusNoContent, rec.Body.String())
	}
}
