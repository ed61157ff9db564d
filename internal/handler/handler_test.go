package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randstring/randstring-go/internal/clipboard"
	"github.com/randstring/randstring-go/internal/middleware"
	"github.com/randstring/randstring-go/internal/model"
	"github.com/randstring/randstring-go/internal/repository"
	"github.com/randstring/randstring-go/internal/service"
)

const testSecret = "test-secret"

type testAPI struct {
	handler http.Handler
	repo    *repository.SessionRepository
}

func newTestAPI(t *testing.T, limiter *middleware.IPRateLimiter) *testAPI {
	t.Helper()

	repo := repository.NewSessionRepository(time.Hour, func() (*service.Generator, error) {
		opts := service.DefaultGeneratorOptions()
		opts.AutoPeriod = 20 * time.Millisecond
		opts.Clipboard = clipboard.NewMemory(time.Hour)
		return service.NewGenerator(opts)
	})
	t.Cleanup(repo.Close)

	h := NewRouter(RouterConfig{
		Logger:        zerolog.Nop(),
		Generator:     NewGeneratorHandler(service.NewGeneratorService(nil)),
		Sessions:      NewSessionHandler(repo, testSecret, time.Hour),
		SessionSecret: testSecret,
		RateLimiter:   limiter,
	})
	return &testAPI{handler: h, repo: repo}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
		reader = &buf
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) createSession(t *testing.T) model.SessionResponse {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/v1/sessions", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp model.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, nil)
	rec := api.do(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHandleGenerate(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, nil)
	f := false

	tests := []struct {
		name       string
		body       any
		wantStatus int
		check      func(t *testing.T, resp model.GenerateResponse)
	}{
		{
			name:       "empty body uses defaults",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp model.GenerateResponse) {
				assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9]{12}$`), resp.Value)
				assert.True(t, resp.Copyable)
			},
		},
		{
			name:       "lowercase and numbers",
			body:       model.GenerateRequest{Length: 10, Uppercase: &f},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp model.GenerateResponse) {
				assert.Regexp(t, regexp.MustCompile(`^[a-z0-9]{10}$`), resp.Value)
			},
		},
		{
			name:       "no classes",
			body:       model.GenerateRequest{Uppercase: &f, Lowercase: &f, Numbers: &f, Symbols: &f},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp model.GenerateResponse) {
				assert.Equal(t, service.NoSelectionMessage, resp.Value)
				assert.False(t, resp.Copyable)
			},
		},
		{
			name:       "length out of range",
			body:       model.GenerateRequest{Length: 51},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       "not an object",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := api.do(t, http.MethodPost, "/api/v1/generate", "", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, decode[model.GenerateResponse](t, rec))
			}
		})
	}
}

func TestHandleGenerateBodyTooLarge(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, nil)
	body := `{"length": 12, "pad": "` + strings.Repeat("x", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, nil)
	session := api.createSession(t)

	assert.NotEmpty(t, session.Token)
	assert.Len(t, session.SessionID, 21)
	assert.True(t, session.State.Copyable)
	assert.Len(t, session.State.History, 1)

	rec := api.do(t, http.MethodGet, "/api/v1/session", session.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.State.Value, decode[model.Snapshot](t, rec).Value)

	rec = api.do(t, http.MethodPost, "/api/v1/session/generate", session.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[model.Snapshot](t, rec).History, 2)

	rec = api.do(t, http.MethodDelete, "/api/v1/session", session.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/session", session.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionRequiresToken(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodGet, "/api/v1/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/session", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionSetLength(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, nil)
	session := api.createSession(t)

	rec := api.do(t, http.MethodPut, "/api/v1/session/length", session.Token, model.LengthRequest{Length: 30})
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[model.Snapshot](t, rec)
	assert.Equal(t, 30, snap.Length)
	assert.Len(t, snap.Value, 30)

	rec = api.do(t, http.MethodPut, "/api/v1/session/length", session.Token, model.LengthRequest{Length: 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPut, "/api/v1/session/length", session.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionClassesAndCopy(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, nil)
	session := api.createSession(t)
	off := false

	for _, class := range []string{"uppercase", "lowercase", "numbers"} {
		rec := api.do(t, http.MethodPut, "/api/v1/session/classes/"+class, session.Token, model.ToggleRequest{Enabled: &off})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := api.do(t, http.MethodGet, "/api/v1/session", session.Token, nil)
	snap := decode[model.Snapshot](t, rec)
	assert.Equal(t, service.NoSelectionMessage, snap.Value)
	assert.False(t, snap.Copyable)
	assert.Len(t, snap.History, 3)

	rec = api.do(t, http.MethodPost, "/api/v1/session/copy", session.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	idx := 2
	rec = api.do(t, http.MethodPost, "/api/v1/session/copy", session.Token, model.CopyRequest{HistoryIndex: &idx})
	require.Equal(t, http.StatusOK, rec.Code)
	copied := decode[model.CopyResponse](t, rec)
	assert.True(t, copied.Copied)
	assert.Equal(t, session.State.Value, copied.Value)

	idx = 9
	rec = api.do(t, http.MethodPost, "/api/v1/session/copy", session.Token, model.CopyRequest{HistoryIndex: &idx})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPut, "/api/v1/session/classes/emoji", session.Token, model.ToggleRequest{Enabled: &off})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPut, "/api/v1/session/classes/symbols", session.Token, model.ToggleRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionCopyCurrent(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, nil)
	session := api.createSession(t)

	rec := api.do(t, http.MethodPost, "/api/v1/session/copy", session.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.State.Value, decode[model.CopyResponse](t, rec).Value)

	rec = api.do(t, http.MethodGet, "/api/v1/session", session.Token, nil)
	assert.True(t, decode[model.Snapshot](t, rec).Copied)
}

func TestSessionAutoGenerate(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, nil)
	session := api.createSession(t)
	on, off := true, false

	rec := api.do(t, http.MethodPut, "/api/v1/session/auto", session.Token, model.ToggleRequest{Enabled: &on})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[model.Snapshot](t, rec).AutoGenerate)

	assert.Eventually(t, func() bool {
		rec := api.do(t, http.MethodGet, "/api/v1/session", session.Token, nil)
		return decode[model.Snapshot](t, rec).Generation >= 3
	}, 2*time.Second, 10*time.Millisecond)

	rec = api.do(t, http.MethodPut, "/api/v1/session/auto", session.Token, model.ToggleRequest{Enabled: &off})
	require.Equal(t, http.StatusOK, rec.Code)
	stopped := decode[model.Snapshot](t, rec)
	assert.False(t, stopped.AutoGenerate)

	time.Sleep(100 * time.Millisecond)
	rec = api.do(t, http.MethodGet, "/api/v1/session", session.Token, nil)
	assert.Equal(t, stopped.Generation, decode[model.Snapshot](t, rec).Generation)
}

func TestRateLimitedSessionCreation(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, middleware.NewIPRateLimiter(0.001, 1))

	rec := api.do(t, http.MethodPost, "/api/v1/sessions", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/sessions", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 1, api.repo.Len())
}

func readEvent(t *testing.T, r *bufio.Reader) (string, model.Snapshot) {
	t.Helper()

	var (
		name string
		snap model.Snapshot
	)
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")

		switch {
		case line == "" && name != "":
			return name, snap
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && name == "state":
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap))
		}
	}
}

func TestSessionEvents(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, nil)
	srv := httptest.NewServer(api.handler)
	defer srv.Close()

	session := api.createSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/session/events?token="+session.Token, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	name, snap := readEvent(t, reader)
	assert.Equal(t, "state", name)
	assert.Equal(t, session.State.Value, snap.Value)

	rec := api.do(t, http.MethodPost, "/api/v1/session/generate", session.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	generated := decode[model.Snapshot](t, rec)

	name, snap = readEvent(t, reader)
	assert.Equal(t, "state", name)
	assert.Equal(t, generated.Generation, snap.Generation)
	assert.Equal(t, generated.Value, snap.Value)

	rec = api.do(t, http.MethodDelete, "/api/v1/session", session.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	name, _ = readEvent(t, reader)
	assert.Equal(t, "closed", name)
}

func TestSessionEventsKeepSessionAlive(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, nil)
	srv := httptest.NewServer(api.handler)
	defer srv.Close()

	session := api.createSession(t)
	on := true
	rec := api.do(t, http.MethodPut, "/api/v1/session/auto", session.Token, model.ToggleRequest{Enabled: &on})
	require.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/session/events?token="+session.Token, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	name, first := readEvent(t, reader)
	require.Equal(t, "state", name)

	assert.Zero(t, api.repo.Sweep(time.Now().Add(2*time.Hour)))
	assert.Equal(t, 1, api.repo.Len())

	name, next := readEvent(t, reader)
	assert.Equal(t, "state", name)
	assert.Greater(t, next.Generation, first.Generation)

	rec = api.do(t, http.MethodGet, "/api/v1/session", session.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionRefreshToken(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, nil)
	session := api.createSession(t)

	rec := api.do(t, http.MethodPost, "/api/v1/session/token", session.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	refreshed := decode[model.TokenResponse](t, rec)
	require.NotEmpty(t, refreshed.Token)

	rec = api.do(t, http.MethodGet, "/api/v1/session", refreshed.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.State.Value, decode[model.Snapshot](t, rec).Value)

	rec = api.do(t, http.MethodPost, "/api/v1/session/token", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
