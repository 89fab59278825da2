package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/scanlab/scanlab/core/user"
	emailsvc "github.com/scanlab/scanlab/services/email"
)

func Test_userApi_register(t *testing.T) {
	env := newTestEnv(t)

	t.Run("new student", func(t *testing.T) {
		body := marshallObj(t, map[string]interface{}{
			"name":             "John Doe",
			"username":         "johndoe",
			"email":            "john@test.cd",
			"password":         "V3ry$trongPwd",
			"password_confirm": "V3ry$trongPwd",
		})
		req, rec := newRequest(http.MethodPost, "/v1/users/register", body)
		env.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var usr user.User
		decodeBody(t, rec, &usr)
		if !usr.IsStudent() {
			t.Errorf("roles = %v; want student", usr.Roles)
		}
	})

	t.Run("roles are not caller-controlled", func(t *testing.T) {
		body := marshallObj(t, map[string]interface{}{
			"name":             "Sneaky",
			"username":         "sneaky01",
			"email":            "sneaky@test.cd",
			"password":         "V3ry$trongPwd",
			"password_confirm": "V3ry$trongPwd",
			"roles":            []string{user.RoleAdmin},
		})
		req, rec := newRequest(http.MethodPost, "/v1/users/register", body)
		env.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var usr user.User
		decodeBody(t, rec, &usr)
		if usr.IsAdmin() {
			t.Errorf("roles = %v; admin role must not be settable on signup", usr.Roles)
		}
		if !usr.IsStudent() {
			t.Errorf("roles = %v; want student", usr.Roles)
		}
	})

	t.Run("password mismatch", func(t *testing.T) {
		body := marshallObj(t, map[string]interface{}{
			"name":             "Jane Doe",
			"username":         "janedoe",
			"email":            "jane@test.cd",
			"password":         "V3ry$trongPwd",
			"password_confirm": "oops",
		})
		req, rec := newRequest(http.MethodPost, "/v1/users/register", body)
		env.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
		var fldErrs map[string]string
		decodeBody(t, rec, &fldErrs)
		if _, ok := fldErrs["password_confirm"]; !ok {
			t.Errorf("field errors = %v; want password_confirm error", fldErrs)
		}
	})
}

func Test_userApi_login(t *testing.T) {
	env := newTestEnv(t)
	usr := env.createUser(t, "Hero", "hero01", "hero@test.cd", []string{user.RoleStudent}, true)
	naughty := env.createUser(t, "N Dog", "ndog01", "ndog@test.cd", []string{user.RoleStudent}, false)

	t.Run("ok", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"username": "hero01", "password": "Str0ng!Pass"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		env.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var res struct {
			Token string `json:"token"`
		}
		decodeBody(t, rec, &res)
		if res.Token == "" {
			t.Error("token is empty")
		}
	})

	t.Run("by email", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"username": usr.Email, "password": "Str0ng!Pass"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %v; want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"username": "hero01", "password": "nope"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		}, rec)
	})

	t.Run("unknown user", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"username": "ghost", "password": "nope"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		}, rec)
	})

	t.Run("deactivated account", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"username": naughty.Username, "password": "Str0ng!Pass"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
		}, rec)
	})
}

func Test_userApi_tokenRefresh(t *testing.T) {
	env := newTestEnv(t)
	usr := env.createUser(t, "Hero", "hero01", "hero@test.cd", []string{user.RoleStudent}, true)

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/token-refresh")
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errMissingToken),
		}, rec)
	})

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", env.getToken(t, usr))
		env.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var res struct {
			Token string `json:"token"`
		}
		decodeBody(t, rec, &res)
		if res.Token == "" {
			t.Error("token is empty")
		}
	})
}

func Test_userApi_query(t *testing.T) {
	env := newTestEnv(t)
	student := env.createUser(t, "Hero", "hero01", "hero@test.cd", []string{user.RoleStudent}, true)
	lecturer := env.createUser(t, "Prof", "prof01", "prof@test.cd", []string{user.RoleLecturer}, true)
	admin := env.createUser(t, "Admin", "admin01", "admin@test.cd", []string{user.RoleAdmin}, true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "Admin required", token: env.getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Lecturer is not admin", token: env.getToken(t, lecturer), wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Get all", token: env.getToken(t, admin), wantCode: http.StatusOK,
			wantData: marshallList(t, student, lecturer, admin),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users", tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_detail(t *testing.T) {
	env := newTestEnv(t)
	student := env.createUser(t, "Hero", "hero01", "hero@test.cd", []string{user.RoleStudent}, true)
	other := env.createUser(t, "Other", "other01", "other@test.cd", []string{user.RoleStudent}, true)
	admin := env.createUser(t, "Admin", "admin01", "admin@test.cd", []string{user.RoleAdmin}, true)

	studentToken := env.getToken(t, student)
	adminToken := env.getToken(t, admin)

	t.Run("own detail", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+student.ID, studentToken)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, student)}, rec)
	})

	t.Run("someone else's detail is hidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, studentToken)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "not found"}),
		}, rec)
	})

	t.Run("admin sees anyone", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, adminToken)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, other)}, rec)
	})

	t.Run("update own name", func(t *testing.T) {
		body := marshallObj(t, map[string]string{"name": "Hero Reborn"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+student.ID, studentToken, body)
		env.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var usr user.User
		decodeBody(t, rec, &usr)
		if usr.Name != "Hero Reborn" {
			t.Errorf("name = %v; want Hero Reborn", usr.Name)
		}
	})

	t.Run("non-admin cannot change roles", func(t *testing.T) {
		body := marshallObj(t, map[string]interface{}{"roles": []string{user.RoleAdmin}})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+student.ID, studentToken, body)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("destroy requires admin", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+student.ID, studentToken)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("admin cannot destroy self", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+admin.ID, adminToken)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("admin destroys other", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+other.ID, adminToken)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusNoContent, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, adminToken)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_userApi_passwordReset(t *testing.T) {
	env := newTestEnv(t)
	usr := env.createUser(t, "Hero", "hero01", "hero@test.cd", []string{user.RoleStudent}, true)

	successBody := marshallObj(t, map[string]string{
		"success": "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})

	t.Run("unknown email still succeeds", func(t *testing.T) {
		emailsvc.ClearSentMessages()

		body := marshallObj(t, map[string]string{"email": "ghost@test.cd"})
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", body)
		env.app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: successBody}, rec)
		if n := len(emailsvc.SentMessages); n != 0 {
			t.Errorf("sent messages = %v; want 0", n)
		}
	})

	t.Run("known email gets a reset mail", func(t *testing.T) {
		emailsvc.ClearSentMessages()

		body := marshallObj(t, map[string]string{"email": usr.Email})
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", body)
		env.app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: successBody}, rec)
		if n := len(emailsvc.SentMessages); n != 1 {
			t.Fatalf("sent messages = %v; want 1", n)
		}
		if subj := emailsvc.SentMessages[0].Subject; subj != "Password Reset" {
			t.Errorf("subject = %v; want Password Reset", subj)
		}
	})

	t.Run("confirm with valid token", func(t *testing.T) {
		token, err := user.MakeToken(usr)
		if err != nil {
			t.Fatalf("MakeToken(): %v", err)
		}
		body := marshallObj(t, map[string]string{
			"uid":              user.EncodeUID(usr),
			"token":            token,
			"password":         "N3w$trongPwd",
			"password_confirm": "N3w$trongPwd",
		})
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset-confirm", body)
		env.app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marshallObj(t, map[string]string{"success": "Password has been reset with the new password."}),
		}, rec)

		// the old password no longer works
		loginBody := marshallObj(t, map[string]string{"username": usr.Username, "password": "Str0ng!Pass"})
		req, rec = newRequest(http.MethodPost, "/v1/users/login", loginBody)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("old password login code = %v; want %v", rec.Code, http.StatusBadRequest)
		}

		loginBody = marshallObj(t, map[string]string{"username": usr.Username, "password": "N3w$trongPwd"})
		req, rec = newRequest(http.MethodPost, "/v1/users/login", loginBody)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("new password login code = %v; want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("confirm with tampered token", func(t *testing.T) {
		body := marshallObj(t, map[string]string{
			"uid":              user.EncodeUID(usr),
			"token":            "bogus-token",
			"password":         "N3w$trongPwd",
			"password_confirm": "N3w$trongPwd",
		})
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset-confirm", body)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "invalid token"}),
		}, rec)
	})
}
