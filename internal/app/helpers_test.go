package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"notespace/api/internal/authpw"
	"notespace/api/internal/config"
	"notespace/api/internal/storage"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:         "test-secret",
		AccessTTL:         15 * time.Minute,
		RefreshTTL:        24 * time.Hour,
		AppBaseURL:        "http://app.test",
		CORSOrigin:        "*",
		AuthRatePerSecond: 1000,
		AuthRateBurst:     1000,
	}
}

type fakeMailer struct {
	mu         sync.Mutex
	configured bool
	sent       []string
}

func (f *fakeMailer) IsConfigured() bool { return f.configured }

func (f *fakeMailer) record(kind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, kind)
	return nil
}

func (f *fakeMailer) SendTwoFactorCode(string, string, string, int) error {
	return f.record("two_factor")
}

func (f *fakeMailer) SendPasswordResetEmail(string, string, string) error {
	return f.record("password_reset")
}

func (f *fakeMailer) SendPageSharedEmail(string, string, string, string, string) error {
	return f.record("page_shared")
}

func (f *fakeMailer) SendInvitationEmail(string, string, string, string) error {
	return f.record("invitation")
}

func (f *fakeMailer) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// memObjects is an in-memory storage.ObjectStore.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}}
}

func (m *memObjects) Put(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = data
	return nil
}

func (m *memObjects) Open(_ context.Context, name string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjects) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}

func (m *memObjects) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type testEnv struct {
	store   *memStore
	mailer  *fakeMailer
	objects *memObjects
	service *Service
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithConfig(t, testConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   newMemStore(),
		mailer:  &fakeMailer{},
		objects: newMemObjects(),
	}
	env.service = New(cfg, Deps{
		Store:   env.store,
		Mailer:  env.mailer,
		Objects: env.objects,
		Logger:  zerolog.Nop(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	env.handler = NewHTTPServer(ctx, env.service, zerolog.Nop()).Handler()
	return env
}

// register signs a user up and returns its session.
func (e *testEnv) register(t *testing.T, username string) Session {
	t.Helper()
	_, current, err := e.service.Register(context.Background(), authpw.SignUpRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return current
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func ptr[T any](v T) *T { return &v }
