package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	echoapi "github.com/scanlab/scanlab/apps/api/echo"
	"github.com/scanlab/scanlab/core"
	"github.com/scanlab/scanlab/core/assistant"
	"github.com/scanlab/scanlab/core/media"
	"github.com/scanlab/scanlab/core/notification"
	"github.com/scanlab/scanlab/core/simulation"
	"github.com/scanlab/scanlab/core/user"
	directorysvc "github.com/scanlab/scanlab/services/directory"
	emailsvc "github.com/scanlab/scanlab/services/email"
	inmemdb "github.com/scanlab/scanlab/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// testEnv wires a full API server on in-memory storage. Each test gets its
// own env so there is no state to reset between tests.
type testEnv struct {
	app      echoapi.Server
	conf     *core.Config
	usrSvc   *user.Service
	simSvc   *simulation.Service
	notifSvc *notification.Service
	mediaSvc *media.Service
	store    *memStore
	gen      *stubGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conf := &core.Config{
		TestMode:                  true,
		Env:                       "TEST",
		AppName:                   "ScanLab",
		SecretKey:                 []byte("test-secret-key"),
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Address: "noreply@test.local"},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Groq: core.GroqConfig{
			Model:         "primary-model",
			FallbackModel: "fallback-model",
		},
	}

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	db := inmemdb.NewDB()
	mailSvc := emailsvc.NewConsoleService(conf, true /* disableOutput */)
	usrSvc := user.NewService(inmemdb.NewUserRepository(db), mailSvc, conf)
	dir := directorysvc.NewUserDirectory(usrSvc)
	simSvc := simulation.NewService(inmemdb.NewRecordRepository(db), dir, validate)
	notifSvc := notification.NewService(inmemdb.NewNotificationRepository(db), dir, mailSvc, conf)
	store := newMemStore()
	mediaSvc := media.NewService(inmemdb.NewMediaRepository(db), store, validate)
	gen := &stubGenerator{replies: make(map[string]string)}
	assistantSvc := assistant.NewService(gen, conf, nopLogger{})

	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:            conf,
		Logger:          nopLogger{},
		UserSvc:         usrSvc,
		SimulationSvc:   simSvc,
		AssistantSvc:    assistantSvc,
		NotificationSvc: notifSvc,
		MediaSvc:        mediaSvc,
		Validate:        validate,
		Translator:      translator,
		DisableReqLogs:  true,
	})

	emailsvc.ClearSentMessages()

	return &testEnv{
		app:      app,
		conf:     conf,
		usrSvc:   usrSvc,
		simSvc:   simSvc,
		notifSvc: notifSvc,
		mediaSvc: mediaSvc,
		store:    store,
		gen:      gen,
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func (env *testEnv) createUser(t *testing.T, name, uname, email string, roles []string, active bool) user.User {
	t.Helper()
	usr, err := env.usrSvc.Create(context.Background(), user.NewUser{
		Name:     name,
		Username: uname,
		Email:    email,
		Password: "Str0ng!Pass",
		Roles:    roles,
	})
	if err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	if !active {
		usr.SetActive(false)
		usr, err = env.usrSvc.Update(context.Background(), usr.ID, user.UpdateUser{
			Name: usr.Name, Username: usr.Username, Email: usr.Email, IsActive: usr.IsActive,
		})
		if err != nil {
			t.Fatalf("createUser(): deactivating: %v", err)
		}
	}
	return usr
}

func (env *testEnv) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(echoapi.GetUserClaims(env.conf, usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

// Fakes

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// stubGenerator replies per model; models without a canned reply fail.
type stubGenerator struct {
	mu      sync.Mutex
	replies map[string]string
	prompts []assistant.Prompt
}

func (g *stubGenerator) Generate(_ context.Context, p assistant.Prompt) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, p)
	if reply, ok := g.replies[p.Model]; ok {
		return reply, nil
	}
	return "", errors.New("model unavailable")
}

type memStore struct {
	mu   sync.Mutex
	objs map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objs: make(map[string][]byte)}
}

func (s *memStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objs[key] = data
	return nil
}

func (s *memStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objs[key]
	if !ok {
		return nil, errors.Errorf("object %q not found", key)
	}
	return ioutil.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objs, key)
	return nil
}

var _ media.FileStore = (*memStore)(nil)

// Request helpers

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func marshallList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decodeBody(): %v; body = %s", err, rec.Body.String())
	}
}
