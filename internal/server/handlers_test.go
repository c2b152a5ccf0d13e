package server

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnthonyMosley/OpenStreamKit/internal/app"
	"github.com/AnthonyMosley/OpenStreamKit/internal/config"
	"github.com/AnthonyMosley/OpenStreamKit/internal/kick"
	"github.com/AnthonyMosley/OpenStreamKit/internal/obs"
)

// --- mocks ---

type mockApp struct {
	authURL     string
	startErr    error
	outcome     *app.LoginOutcome
	completeErr error
	subResult   *kick.SubscriptionResult
	subErr      error
	hasToken    bool

	gotCode    string
	gotState   string
	gotPayload map[string]any
}

func (m *mockApp) StartLogin() (string, error) {
	return m.authURL, m.startErr
}

func (m *mockApp) CompleteLogin(_ context.Context, code, state string) (*app.LoginOutcome, error) {
	m.gotCode = code
	m.gotState = state
	return m.outcome, m.completeErr
}

func (m *mockApp) Subscribe(_ context.Context) (*kick.SubscriptionResult, error) {
	return m.subResult, m.subErr
}

func (m *mockApp) HandleWebhook(_ context.Context, payload map[string]any) kick.EventKind {
	m.gotPayload = payload
	return kick.Classify(payload)
}

func (m *mockApp) HasToken() bool {
	return m.hasToken
}

type mockScenes struct {
	scenes   []obs.Scene
	setScene string
	err      error
}

func (m *mockScenes) Scenes() ([]obs.Scene, error) {
	return m.scenes, m.err
}

func (m *mockScenes) SetScene(name string) error {
	m.setScene = name
	return m.err
}

func newTestServer(t *testing.T, svc appService, opts ...func(*Server)) *Server {
	t.Helper()

	loginTmpl := template.Must(template.New("login.html").Parse(`Login {{.AuthURL}}`))
	resultTmpl := template.Must(template.New("result.html").Parse(`Result {{.Message}} {{.WebhookURL}}`))

	srv := &Server{
		echo: echo.New(),
		config: &config.Config{
			KickWebhookPublicURL: "https://example.com",
			Port:                 "8000",
		},
		app:            svc,
		loginTemplate:  loginTmpl,
		resultTemplate: resultTmpl,
		startTime:      time.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()
	return srv
}

func doRequest(srv *Server, method, target string, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

// --- /login ---

func TestLogin_RendersAuthURL(t *testing.T) {
	srv := newTestServer(t, &mockApp{authURL: "https://id.kick.com/oauth/authorize?state=s1"})

	rec := doRequest(srv, http.MethodGet, "/login", "", nil)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://id.kick.com/oauth/authorize?state=s1")
}

func TestLogin_JSONResponse(t *testing.T) {
	srv := newTestServer(t, &mockApp{authURL: "https://id.kick.com/oauth/authorize?state=s1"})

	rec := doRequest(srv, http.MethodGet, "/login", "", map[string]string{"Accept": "application/json"})

	assert.Equal(t, 200, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "https://id.kick.com/oauth/authorize?state=s1", body["authorization_url"])
}

// --- /callback ---

func TestCallback_MissingParams(t *testing.T) {
	svc := &mockApp{}
	srv := newTestServer(t, svc)

	rec := doRequest(srv, http.MethodGet, "/callback?code=only-code", "", nil)

	assert.Equal(t, 400, rec.Code)
	// CompleteLogin must not run without both params.
	assert.Empty(t, svc.gotCode)
}

func TestCallback_UnknownState(t *testing.T) {
	svc := &mockApp{completeErr: app.ErrUnknownState}
	srv := newTestServer(t, svc)

	rec := doRequest(srv, http.MethodGet, "/callback?code=c&state=never-issued", "", nil)

	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), "Restart login")
}

func TestCallback_ExchangeFailureHidesUpstreamDetail(t *testing.T) {
	svc := &mockApp{completeErr: &kick.TokenExchangeError{StatusCode: 400, Body: `{"error":"invalid_grant","secret":"leaky"}`}}
	srv := newTestServer(t, svc)

	rec := doRequest(srv, http.MethodGet, "/callback?code=c&state=s", "", nil)

	assert.Equal(t, 502, rec.Code)
	// The raw upstream body must never reach the browser.
	assert.NotContains(t, rec.Body.String(), "leaky")
	assert.Contains(t, rec.Body.String(), "Failed to authenticate")
}

func TestCallback_Success(t *testing.T) {
	svc := &mockApp{outcome: &app.LoginOutcome{
		Subscription: &kick.SubscriptionResult{StatusCode: 200},
	}}
	srv := newTestServer(t, svc)

	rec := doRequest(srv, http.MethodGet, "/callback?code=c&state=s", "", nil)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "c", svc.gotCode)
	assert.Equal(t, "s", svc.gotState)
	assert.Contains(t, rec.Body.String(), "subscribed")
	assert.Contains(t, rec.Body.String(), "https://example.com/kick/webhook")
}

func TestCallback_PartialSuccess(t *testing.T) {
	svc := &mockApp{outcome: &app.LoginOutcome{
		Subscription: &kick.SubscriptionResult{StatusCode: 500, Text: "boom"},
	}}
	srv := newTestServer(t, svc)

	rec := doRequest(srv, http.MethodGet, "/callback?code=c&state=s", "", nil)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "subscription failed")
}

// --- /subscribe ---

func TestSubscribe_NoToken(t *testing.T) {
	srv := newTestServer(t, &mockApp{hasToken: false})

	rec := doRequest(srv, http.MethodPost, "/subscribe", "", nil)

	assert.Equal(t, 401, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "no token", body["error"])
}

func TestSubscribe_ReturnsUpstreamStatus(t *testing.T) {
	svc := &mockApp{
		hasToken:  true,
		subResult: &kick.SubscriptionResult{StatusCode: 500, Text: "boom"},
	}
	srv := newTestServer(t, svc)

	rec := doRequest(srv, http.MethodPost, "/subscribe", "", nil)

	assert.Equal(t, 200, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(500), body["status_code"])
	assert.Equal(t, "boom", body["response"])
}

func TestSubscribe_TransportFailure(t *testing.T) {
	svc := &mockApp{hasToken: true, subErr: errors.New("connection refused")}
	srv := newTestServer(t, svc)

	rec := doRequest(srv, http.MethodPost, "/subscribe", "", nil)

	assert.Equal(t, 502, rec.Code)
}

// --- /kick/webhook ---

func TestWebhook_ChatAcknowledged(t *testing.T) {
	svc := &mockApp{}
	srv := newTestServer(t, svc)

	body := `{"message_id":"1","sender":{"username":"alice"},"content":"hi"}`
	rec := doRequest(srv, http.MethodPost, "/kick/webhook", body, map[string]string{"Content-Type": "application/json"})

	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, kick.EventChat, kick.Classify(svc.gotPayload))
}

func TestWebhook_FollowAcknowledged(t *testing.T) {
	svc := &mockApp{}
	srv := newTestServer(t, svc)

	body := `{"follower":{"username":"bob"}}`
	rec := doRequest(srv, http.MethodPost, "/kick/webhook", body, map[string]string{"Content-Type": "application/json"})

	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, kick.EventFollow, kick.Classify(svc.gotPayload))
}

func TestWebhook_UnknownShapeStillAcknowledged(t *testing.T) {
	svc := &mockApp{}
	srv := newTestServer(t, svc)

	rec := doRequest(srv, http.MethodPost, "/kick/webhook", `{"foo":"bar"}`, map[string]string{"Content-Type": "application/json"})

	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestWebhook_MalformedBodyStillAcknowledged(t *testing.T) {
	srv := newTestServer(t, &mockApp{})

	rec := doRequest(srv, http.MethodPost, "/kick/webhook", "{not json", map[string]string{"Content-Type": "application/json"})

	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

// --- OBS routes ---

func TestOBSScenes_NotConfigured(t *testing.T) {
	srv := newTestServer(t, &mockApp{})

	rec := doRequest(srv, http.MethodGet, "/obs/scenes", "", nil)

	assert.Equal(t, 503, rec.Code)
}

func TestOBSScenes_List(t *testing.T) {
	scenes := &mockScenes{scenes: []obs.Scene{{Name: "Starting", Current: true}, {Name: "Live"}}}
	srv := newTestServer(t, &mockApp{}, func(s *Server) { s.scenes = scenes })

	rec := doRequest(srv, http.MethodGet, "/obs/scenes", "", nil)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Starting")
	assert.Contains(t, rec.Body.String(), "Live")
}

func TestOBSSetScene(t *testing.T) {
	scenes := &mockScenes{}
	srv := newTestServer(t, &mockApp{}, func(s *Server) { s.scenes = scenes })

	rec := doRequest(srv, http.MethodPost, "/obs/scene", `{"scene":"Live"}`, map[string]string{"Content-Type": "application/json"})

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "Live", scenes.setScene)
}

func TestOBSSetScene_MissingName(t *testing.T) {
	srv := newTestServer(t, &mockApp{}, func(s *Server) { s.scenes = &mockScenes{} })

	rec := doRequest(srv, http.MethodPost, "/obs/scene", `{}`, map[string]string{"Content-Type": "application/json"})

	assert.Equal(t, 400, rec.Code)
}

// --- health ---

func TestLiveness(t *testing.T) {
	srv := newTestServer(t, &mockApp{})

	rec := doRequest(srv, http.MethodGet, "/health/live", "", nil)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestVersion(t *testing.T) {
	srv := newTestServer(t, &mockApp{})

	rec := doRequest(srv, http.MethodGet, "/version", "", nil)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"go_version"`)
}
