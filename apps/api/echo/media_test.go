package echoapi_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/scanlab/scanlab/core/media"
	"github.com/scanlab/scanlab/core/user"
)

func newMediaUploadRequest(t *testing.T, token string, fields map[string]string, filename string, file []byte) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(%s): %v", k, err)
		}
	}
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile(): %v", err)
	}
	if _, err := fw.Write(file); err != nil {
		t.Fatalf("writing file part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/media", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func Test_mediaApi(t *testing.T) {
	env := newTestEnv(t)
	student := env.createUser(t, "Alice", "alice01", "alice@test.cd", []string{user.RoleStudent}, true)
	admin := env.createUser(t, "Admin", "admin01", "admin@test.cd", []string{user.RoleAdmin}, true)
	studentToken := env.getToken(t, student)
	adminToken := env.getToken(t, admin)

	fileBytes := []byte("not really a png")

	t.Run("upload requires admin", func(t *testing.T) {
		req, rec := newMediaUploadRequest(t, studentToken, map[string]string{
			"name": "Brain Axial", "category": "Brain", "mediaType": "image",
		}, "brain.png", fileBytes)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	var brain media.Media
	t.Run("upload image", func(t *testing.T) {
		req, rec := newMediaUploadRequest(t, adminToken, map[string]string{
			"name":        "Brain Axial",
			"description": "T1 axial reference scan",
			"category":    "Brain",
			"mediaType":   "image",
			"parameters":  `{"sequence":{"tr":500,"te":20}}`,
		}, "brain.png", fileBytes)
		env.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		decodeBody(t, rec, &brain)
		if brain.StoragePath != "brain" {
			t.Errorf("storage_path = %q; want brain", brain.StoragePath)
		}
		if !strings.HasPrefix(brain.Filename, "brain/") || !strings.HasSuffix(brain.Filename, ".png") {
			t.Errorf("filename = %q; want brain/<uuid>.png", brain.Filename)
		}
		if tr := brain.Parameters.Sequence.TR; !tr.Valid || tr.Float64 != 500 {
			t.Errorf("preset tr = %+v; want 500", tr)
		}
	})

	t.Run("upload video groups under video", func(t *testing.T) {
		req, rec := newMediaUploadRequest(t, adminToken, map[string]string{
			"name": "Positioning Tutorial", "category": "Spine", "mediaType": "video",
		}, "tutorial.mp4", fileBytes)
		env.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var vid media.Media
		decodeBody(t, rec, &vid)
		if vid.StoragePath != "video" {
			t.Errorf("storage_path = %q; want video", vid.StoragePath)
		}
	})

	t.Run("invalid category", func(t *testing.T) {
		req, rec := newMediaUploadRequest(t, adminToken, map[string]string{
			"name": "Knee Axial", "category": "Knee", "mediaType": "image",
		}, "knee.png", fileBytes)
		env.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
		var fldErrs map[string]string
		decodeBody(t, rec, &fldErrs)
		if _, ok := fldErrs["category"]; !ok {
			t.Errorf("field errors = %v; want category error", fldErrs)
		}
	})

	t.Run("query all", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/media", studentToken)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var medias []media.Media
		decodeBody(t, rec, &medias)
		if len(medias) != 2 {
			t.Errorf("media count = %v; want 2", len(medias))
		}
	})

	t.Run("query by category", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/media?category=Brain", studentToken)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var medias []media.Media
		decodeBody(t, rec, &medias)
		if len(medias) != 1 || medias[0].Category != "Brain" {
			t.Errorf("media = %+v; want the single Brain entry", medias)
		}
	})

	t.Run("download", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/media/"+brain.ID+"/file", studentToken)
		env.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %s", rec.Code, rec.Body.String())
		}
		if !bytes.Equal(rec.Body.Bytes(), fileBytes) {
			t.Errorf("file bytes differ: got %q", rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "image/png") {
			t.Errorf("content type = %q; want image/png", ct)
		}
	})

	t.Run("delete requires admin", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/media/"+brain.ID, studentToken)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/media/"+brain.ID, adminToken)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; body = %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/media/"+brain.ID, studentToken)
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "media not found"}),
		}, rec)
	})
}
