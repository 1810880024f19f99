package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/somo-lms/somo/apps/api/echo"
	"github.com/somo-lms/somo/core/user"
	testutil "github.com/somo-lms/somo/tests"
)

func Test_userApi_login(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "Jim Hal", "jimhal", "jimhal@test.cd", "LePassw0rd!", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, usrRepo, "Sleepy", "sleepy", "sleepy@test.cd", "LePassw0rd!", []string{user.RoleStudent}, false)

	tests := []httpTest{
		{
			name: "valid credentials return a token", method: http.MethodPost, path: "/api/users/login",
			body: marchallObj(t, echoapi.LoginRequest{Username: usr.Username, Password: "LePassw0rd!"}), wantCode: http.StatusOK,
		},
		{
			name: "login with email", method: http.MethodPost, path: "/api/users/login",
			body: marchallObj(t, echoapi.LoginRequest{Username: usr.Email, Password: "LePassw0rd!"}), wantCode: http.StatusOK,
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/api/users/login",
			body:     marchallObj(t, echoapi.LoginRequest{Username: "nobody", Password: "LePassw0rd!"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/api/users/login",
			body:     marchallObj(t, echoapi.LoginRequest{Username: usr.Username, Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", method: http.MethodPost, path: "/api/users/login",
			body:     marchallObj(t, echoapi.LoginRequest{Username: "sleepy", Password: "LePassw0rd!"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "missing fields", method: http.MethodPost, path: "/api/users/login",
			body: marchallObj(t, echoapi.LoginRequest{}), wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body = %v", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			} else if tt.wantCode == http.StatusOK {
				var resp echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshalling LoginResponse: %v", err)
				}
				if resp.Token == "" {
					t.Error("expected a token; got none")
				}
			}
		})
	}
}

func Test_userApi_register(t *testing.T) {
	body := marchallObj(t, user.NewUser{
		Name:            "New Student",
		Username:        "newstudent",
		Email:           "newstudent@test.cd",
		Password:        "v3ry$ecretWord",
		PasswordConfirm: "v3ry$ecretWord",
	})
	req, rec := newRequest(http.MethodPost, "/api/users/register", body)
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; wantCode %v; body = %v", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var usr user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
		t.Fatalf("unmarshalling User: %v", err)
	}
	if usr.Username != "newstudent" {
		t.Errorf("username = %q; want %q", usr.Username, "newstudent")
	}
	if !usr.IsStudent() {
		t.Errorf("roles = %v; want student", usr.Roles)
	}

	// password mismatch is rejected
	body = marchallObj(t, user.NewUser{
		Name:            "Other",
		Username:        "otherstudent",
		Email:           "otherstudent@test.cd",
		Password:        "v3ry$ecretWord",
		PasswordConfirm: "different",
	})
	req, rec = newRequest(http.MethodPost, "/api/users/register", body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}
}

func Test_userApi_query(t *testing.T) {
	student := testutil.CreateUser(t, usrRepo, "Query Student", "qstudent", "qstudent@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Query Admin", "qadmin", "qadmin@test.cd", "", []string{user.RoleAdmin}, true)

	tests := []httpTest{
		{
			name: "no token", method: http.MethodGet, path: "/api/users",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "student is forbidden", method: http.MethodGet, path: "/api/users", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "admin queries users", method: http.MethodGet, path: "/api/users", token: getToken(t, admin),
			wantCode: http.StatusOK,
		},
		{
			name: "admin filters by search", method: http.MethodGet, path: "/api/users?search=qstudent", token: getToken(t, admin),
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body = %v", rec.Code, tt.wantCode, rec.Body.String())
			}
			var users []user.User
			if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
				t.Fatalf("unmarshalling []User: %v", err)
			}
			if len(users) == 0 {
				t.Error("expected users; got none")
			}
		})
	}
}

func Test_userApi_retrieve(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "Self", "selfusr", "selfusr@test.cd", "", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "otherusr", "otherusr@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Retr Admin", "radmin", "radmin@test.cd", "", []string{user.RoleAdmin}, true)

	tests := []httpTest{
		{
			name: "user retrieves self", method: http.MethodGet, path: "/api/users/" + usr.ID,
			token: getToken(t, usr), wantCode: http.StatusOK, wantData: marchallObj(t, usr),
		},
		{
			name: "user cannot see another user", method: http.MethodGet, path: "/api/users/" + other.ID,
			token: getToken(t, usr), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "admin retrieves any user", method: http.MethodGet, path: "/api/users/" + other.ID,
			token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, other),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_tokenRefresh(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "Fresh", "freshusr", "freshusr@test.cd", "", []string{user.RoleStudent}, true)

	req, rec := newAuthRequest(http.MethodPost, "/api/users/token-refresh", getToken(t, usr))
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v; body = %v", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp echoapi.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshalling LoginResponse: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a refreshed token; got none")
	}
}
