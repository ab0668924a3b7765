package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/framebridge/internal/metrics"
	"github.com/shehryarbajwa/framebridge/internal/proxy"
	"github.com/shehryarbajwa/framebridge/internal/ratelimit"
	"github.com/shehryarbajwa/framebridge/internal/session"
	"github.com/shehryarbajwa/framebridge/pkg/models"
)

type testServer struct {
	*httptest.Server
	sessions *session.Manager
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) *testServer {
	t.Helper()

	m := metrics.New()
	sessions := session.NewManager(session.Config{MaxWindowsPerTop: 3}, m, nil)
	relay := proxy.NewServer(sessions, nil, m, nil)
	router := NewHandler(sessions, nil).SetupRoutes(relay, limiter, m)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, sessions: sessions}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header http.Header) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (s *testServer) register(t *testing.T, req models.RegisterWindowRequest) models.WindowInfo {
	t.Helper()
	resp := s.do(t, "POST", "/v1/windows", req, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[models.WindowInfo](t, resp)
}

func TestRegisterAndGet(t *testing.T) {
	s := newTestServer(t, nil)

	page := s.register(t, models.RegisterWindowRequest{Name: "page"})
	assert.NotEmpty(t, page.ID)
	assert.Equal(t, models.StatusOpen, page.Status)

	resp := s.do(t, "GET", "/v1/windows/"+page.ID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, page.ID, decode[models.WindowInfo](t, resp).ID)

	resp = s.do(t, "GET", "/v1/windows/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegisterErrors(t *testing.T) {
	s := newTestServer(t, nil)

	resp := s.do(t, "POST", "/v1/windows", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, "POST", "/v1/windows", models.RegisterWindowRequest{ParentID: "missing"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	page := s.register(t, models.RegisterWindowRequest{Name: "page"})
	s.register(t, models.RegisterWindowRequest{ParentID: page.ID})
	s.register(t, models.RegisterWindowRequest{ParentID: page.ID})
	resp = s.do(t, "POST", "/v1/windows", models.RegisterWindowRequest{ParentID: page.ID}, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestListWindows(t *testing.T) {
	s := newTestServer(t, nil)

	resp := s.do(t, "GET", "/v1/windows", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.WindowInfo](t, resp))

	a := s.register(t, models.RegisterWindowRequest{Name: "a"})
	b := s.register(t, models.RegisterWindowRequest{Name: "b"})
	require.Equal(t, http.StatusNoContent, s.do(t, "DELETE", "/v1/windows/"+a.ID, nil, nil).StatusCode)

	all := decode[[]models.WindowInfo](t, s.do(t, "GET", "/v1/windows", nil, nil))
	assert.Len(t, all, 2)

	open := decode[[]models.WindowInfo](t, s.do(t, "GET", "/v1/windows?status=OPEN", nil, nil))
	require.Len(t, open, 1)
	assert.Equal(t, b.ID, open[0].ID)
}

func TestCloseWindow(t *testing.T) {
	s := newTestServer(t, nil)

	page := s.register(t, models.RegisterWindowRequest{Name: "page"})
	frame := s.register(t, models.RegisterWindowRequest{Name: "frame", ParentID: page.ID})

	resp := s.do(t, "DELETE", "/v1/windows/"+page.ID, nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	got := decode[models.WindowInfo](t, s.do(t, "GET", "/v1/windows/"+frame.ID, nil, nil))
	assert.Equal(t, models.StatusClosed, got.Status)

	resp = s.do(t, "DELETE", "/v1/windows/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetFrame(t *testing.T) {
	s := newTestServer(t, nil)

	page := s.register(t, models.RegisterWindowRequest{Name: "page"})
	name := "xcomponent_login_eyJpZCI6ImEvYiJ9+/"
	frame := s.register(t, models.RegisterWindowRequest{Name: name, ParentID: page.ID})

	resp := s.do(t, "GET", "/v1/windows/"+page.ID+"/frames/"+url.PathEscape(name), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, frame.ID, decode[models.WindowInfo](t, resp).ID)

	resp = s.do(t, "GET", "/v1/windows/"+page.ID+"/frames/other", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResizeAndFocus(t *testing.T) {
	s := newTestServer(t, nil)
	page := s.register(t, models.RegisterWindowRequest{Name: "page"})

	resp := s.do(t, "POST", "/v1/windows/"+page.ID+"/resize", models.ResizeWindowRequest{Width: 640, Height: 480}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[models.WindowInfo](t, resp)
	assert.Equal(t, 640, got.Width)
	assert.Equal(t, 480, got.Height)

	resp = s.do(t, "POST", "/v1/windows/"+page.ID+"/resize", models.ResizeWindowRequest{Width: -1, Height: 480}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, "POST", "/v1/windows/"+page.ID+"/focus", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[models.WindowInfo](t, resp).Focused)

	require.Equal(t, http.StatusNoContent, s.do(t, "DELETE", "/v1/windows/"+page.ID, nil, nil).StatusCode)
	resp = s.do(t, "POST", "/v1/windows/"+page.ID+"/focus", nil, nil)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, ratelimit.NewLimiter(ratelimit.PerHour(1), 2))
	page := s.register(t, models.RegisterWindowRequest{Name: "page"})

	path := "/v1/windows/" + page.ID + "/focus"
	resp := s.do(t, "POST", path, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Remaining"))

	require.Equal(t, http.StatusOK, s.do(t, "POST", path, nil, nil).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, s.do(t, "POST", path, nil, nil).StatusCode)

	// lookups are never limited
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, s.do(t, "GET", "/v1/windows/"+page.ID, nil, nil).StatusCode)
	}

	header := http.Header{WindowHeader: []string{"caller"}}
	s.do(t, "POST", "/v1/windows", models.RegisterWindowRequest{}, header)
	s.do(t, "POST", "/v1/windows", models.RegisterWindowRequest{}, header)
	assert.Equal(t, http.StatusTooManyRequests, s.do(t, "POST", "/v1/windows", models.RegisterWindowRequest{}, header).StatusCode)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, nil)

	resp := s.do(t, "OPTIONS", "/v1/windows", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), WindowHeader)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, models.RegisterWindowRequest{Name: "page"})

	resp := s.do(t, "GET", "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "framebridge_windows_open 1")
	assert.True(t, strings.Contains(string(body), `route="/v1/windows"`))
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.do(t, "GET", "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
