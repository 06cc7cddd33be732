package server_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-login/accounts"
	"github.com/jrsteele09/go-auth-login/identity"
	"github.com/jrsteele09/go-auth-login/identity/providerfake"
	"github.com/jrsteele09/go-auth-login/internal/config"
	"github.com/jrsteele09/go-auth-login/kvstore"
	"github.com/jrsteele09/go-auth-login/oauthmodel"
	"github.com/jrsteele09/go-auth-login/server"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var (
	alice = &accounts.Record{ID: "alice", CollectionID: "pbc_users", CollectionName: "users", Email: "alice@example.com"}
	bob   = &accounts.Record{ID: "bob", CollectionID: "pbc_users", CollectionName: "users", Name: "Bob"}
)

var flowIDPattern = regexp.MustCompile(`name="flow_id" value="([^"]+)"`)

type testConfig struct {
	config.EnvVars
	config.Login
	config.Storage
	config.Security
	config.Telemetry
}

type testFixture struct {
	srv      *server.Server
	storage  *kvstore.InMemory
	provider *providerfake.FakeProvider
	token    string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": alice.ID,
		"exp": testNow.Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	provider := providerfake.NewFakeProvider()
	provider.Methods = providerfake.PasswordAndOTP()
	provider.PasswordFunc = func(identityValue, password string) (*identity.AuthResult, error) {
		if identityValue == alice.Email && password == "correct horse" {
			return &identity.AuthResult{Token: token, Record: alice}, nil
		}
		return nil, &identity.ResponseError{Status: http.StatusBadRequest, Message: "Failed to authenticate."}
	}

	cfg := testConfig{
		EnvVars: config.EnvVars{Port: "8080", AppName: "Test Login", Env: "TEST"},
		Login:   config.Login{StorageKey: accounts.DefaultStorageKey, ToastDuration: time.Minute, FlowTimeout: time.Minute},
		Storage: config.Storage{DeviceCookieMaxAge: time.Hour},
	}

	storage := kvstore.NewInMemory()
	srv, err := server.New(cfg, server.Deps{Storage: storage, Provider: provider}, server.WithNowTime(func() time.Time { return testNow }))
	require.NoError(t, err)

	return &testFixture{srv: srv, storage: storage, provider: provider, token: token}
}

func loginState(t *testing.T, prompt oauthmodel.Prompt) string {
	t.Helper()
	state, err := oauthmodel.EncodeLoginState(oauthmodel.LoginParameters{
		Collection:  "users",
		ClientID:    "client-123",
		ClientName:  "Demo App",
		RedirectURI: "https://app.example.com/callback",
		Prompt:      prompt,
		MaxAge:      oauthmodel.DefaultMaxAge,
	})
	require.NoError(t, err)
	return state
}

// start opens a login flow and returns the response, the device cookie and
// the flow id shown on the page.
func (f *testFixture) start(t *testing.T, state string) (*httptest.ResponseRecorder, *http.Cookie, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, server.RouteLogin+"?state="+url.QueryEscape(state), nil)
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)

	var device *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "device_id" {
			device = c
		}
	}
	require.NotNil(t, device)

	var flowID string
	if m := flowIDPattern.FindStringSubmatch(rec.Body.String()); m != nil {
		flowID = m[1]
	}
	return rec, device, flowID
}

func (f *testFixture) post(route string, device *http.Cookie, form url.Values, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, route, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if device != nil {
		req.AddCookie(&http.Cookie{Name: device.Name, Value: device.Value})
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func (f *testFixture) show(flowID string, device *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, server.RouteLoginFlow+"?flow_id="+url.QueryEscape(flowID), nil)
	req.AddCookie(&http.Cookie{Name: device.Name, Value: device.Value})
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresDependencies(t *testing.T) {
	cfg := testConfig{}
	_, err := server.New(nil, server.Deps{})
	require.Error(t, err)

	_, err = server.New(cfg, server.Deps{Provider: providerfake.NewFakeProvider()})
	require.Error(t, err)

	_, err = server.New(cfg, server.Deps{Storage: kvstore.NewInMemory()})
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	f := setupTestFixture(t)
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, server.RouteHealth, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestStartLogin_InvalidState(t *testing.T) {
	f := setupTestFixture(t)
	rec, device, _ := f.start(t, "not-a-state")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid state: ")
	require.True(t, device.HttpOnly)
	require.Equal(t, 3600, device.MaxAge)
	require.Zero(t, f.provider.Calls(providerfake.OpListAuthMethods))
}

func TestStartLogin_PromptNoneWithoutSessions(t *testing.T) {
	f := setupTestFixture(t)
	rec, _, flowID := f.start(t, loginState(t, oauthmodel.PromptNone))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `action="https://app.example.com/callback"`)
	require.Contains(t, body, `name="error" value="login_required"`)
	require.Empty(t, flowID)
	require.Equal(t, 0, f.srv.Flows().(interface{ Len() int }).Len())
}

func TestPasswordLoginToConsent(t *testing.T) {
	f := setupTestFixture(t)
	rec, device, flowID := f.start(t, loginState(t, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, flowID)
	require.Contains(t, rec.Body.String(), `action="/oauth2/login/password"`)

	rec = f.post(server.RouteLoginPassword, device, url.Values{
		"flow_id":  {flowID},
		"identity": {alice.Email},
		"password": {"correct horse"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, server.RouteLoginFlow+"?flow_id="+flowID, rec.Header().Get("Location"))

	rec = f.show(flowID, device)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Authorize Demo App")

	rec = f.post(server.RouteLoginConsent, device, url.Values{"flow_id": {flowID}})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `action="https://app.example.com/callback"`)
	require.Contains(t, body, `name="pb_token" value="`+f.token+`"`)
	require.Contains(t, body, `name="pb_token_iat" value="1740830400"`)

	t.Run("Finished flow is removed", func(t *testing.T) {
		rec := f.show(flowID, device)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Session is cached per device", func(t *testing.T) {
		raw, err := f.storage.Get("device/" + device.Value + "/" + accounts.DefaultStorageKey)
		require.NoError(t, err)
		require.Contains(t, string(raw), alice.Email)
	})

	restart := func(t *testing.T) string {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, server.RouteLogin+"?state="+url.QueryEscape(loginState(t, "")), nil)
		req.AddCookie(&http.Cookie{Name: device.Name, Value: device.Value})
		rec := httptest.NewRecorder()
		f.srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		return rec.Body.String()
	}

	t.Run("One cached account goes straight to consent", func(t *testing.T) {
		body := restart(t)
		require.Contains(t, body, `<section class="consent">`)
		require.Contains(t, body, "Authorize Demo App")
		require.Contains(t, body, alice.Email)
		require.NotContains(t, body, `name="account"`)
	})

	t.Run("Two cached accounts offer a choice", func(t *testing.T) {
		store, err := accounts.NewMultiStore(kvstore.Prefixed(f.storage, "device/"+device.Value+"/"), accounts.DefaultStorageKey,
			accounts.WithNowTime(func() time.Time { return testNow }))
		require.NoError(t, err)
		require.NoError(t, store.Save(f.token, bob))

		body := restart(t)
		require.Contains(t, body, `<section class="account-selection">`)
		require.Contains(t, body, `name="account" value="pbc_usersalice"`)
		require.Contains(t, body, `name="account" value="pbc_usersbob"`)
		require.NotContains(t, body, `<section class="consent">`)
	})
}

func TestPasswordFailureShowsToast(t *testing.T) {
	f := setupTestFixture(t)
	_, device, flowID := f.start(t, loginState(t, ""))

	rec := f.post(server.RouteLoginPassword, device, url.Values{
		"flow_id":  {flowID},
		"identity": {alice.Email},
		"password": {"wrong"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	body := f.show(flowID, device).Body.String()
	require.Contains(t, body, "Invalid identity or password")
	require.Contains(t, body, `action="/oauth2/login/password"`)
}

func TestDismissToast(t *testing.T) {
	f := setupTestFixture(t)
	_, device, flowID := f.start(t, loginState(t, ""))
	f.post(server.RouteLoginPassword, device, url.Values{"flow_id": {flowID}, "identity": {alice.Email}, "password": {"wrong"}})

	flow, err := f.srv.Flows().Get(flowID, testNow)
	require.NoError(t, err)
	toasts := flow.Toasts.List()
	require.Len(t, toasts, 1)

	rec := f.post(server.RouteToastDismiss, device, url.Values{"flow_id": {flowID}, "toast_id": {toasts[0].ID}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Empty(t, flow.Toasts.List())
}

func TestFlowAction_HTMXRedirect(t *testing.T) {
	f := setupTestFixture(t)
	_, device, flowID := f.start(t, loginState(t, ""))

	rec := f.post(server.RouteLoginNew, device, url.Values{"flow_id": {flowID}}, "HX-Request", "true")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, server.RouteLoginFlow+"?flow_id="+flowID, rec.Header().Get("HX-Redirect"))
}

func TestFlowAction_UnknownFlow(t *testing.T) {
	f := setupTestFixture(t)
	_, device, _ := f.start(t, loginState(t, ""))

	rec := f.post(server.RouteLoginPassword, device, url.Values{"flow_id": {"missing"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, f.provider.Calls(providerfake.OpAuthWithPassword))
}

func TestFlowAction_OtherDevice(t *testing.T) {
	f := setupTestFixture(t)
	_, _, flowID := f.start(t, loginState(t, ""))

	other := &http.Cookie{Name: "device_id", Value: "6f1c0e7a-3f0b-4b55-9a43-5b1f1d1b1c11"}
	rec := f.post(server.RouteLoginPassword, other, url.Values{
		"flow_id":  {flowID},
		"identity": {alice.Email},
		"password": {"correct horse"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, f.provider.Calls(providerfake.OpAuthWithPassword))

	rec = f.post(server.RouteLoginPassword, nil, url.Values{"flow_id": {flowID}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	f := setupTestFixture(t)
	rec, _, _ := f.start(t, loginState(t, ""))
	require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestStaticFiles(t *testing.T) {
	f := setupTestFixture(t)
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, server.RouteStatic+"login.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/css")
	require.Contains(t, rec.Body.String(), ".oauth2-login")
}

func newRateLimitedServer(t *testing.T, trustedProxies ...string) *server.Server {
	t.Helper()
	cfg := testConfig{
		EnvVars:  config.EnvVars{AppName: "Test Login", Env: "TEST"},
		Login:    config.Login{StorageKey: accounts.DefaultStorageKey, ToastDuration: time.Minute},
		Storage:  config.Storage{DeviceCookieMaxAge: time.Hour},
		Security: config.Security{EnableRateLimiting: true, RateLimitPerMinute: 2, TrustedProxies: trustedProxies},
	}
	srv, err := server.New(cfg, server.Deps{Storage: kvstore.NewInMemory(), Provider: providerfake.NewFakeProvider()},
		server.WithNowTime(func() time.Time { return testNow }))
	require.NoError(t, err)
	return srv
}

// postFrom posts to an unknown flow from remoteAddr and returns the status.
func postFrom(srv *server.Server, remoteAddr, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, server.RouteLoginNew, strings.NewReader("flow_id=missing"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitedActions(t *testing.T) {
	srv := newRateLimitedServer(t)

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, postFrom(srv, "198.51.100.7:40000", ""))
	}
	require.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	srv := newRateLimitedServer(t)

	codes := make([]int, 0, 3)
	for _, forwarded := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		codes = append(codes, postFrom(srv, "198.51.100.7:40000", forwarded))
	}
	require.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestRateLimitBehindTrustedProxy(t *testing.T) {
	srv := newRateLimitedServer(t, "10.0.0.0/8")

	t.Run("Clients behind the proxy have their own budgets", func(t *testing.T) {
		for _, client := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
			require.Equal(t, http.StatusBadRequest, postFrom(srv, "10.1.2.3:5000", client))
		}
	})

	t.Run("Spoofed leading hops are ignored", func(t *testing.T) {
		codes := make([]int, 0, 3)
		for _, spoofed := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
			codes = append(codes, postFrom(srv, "10.1.2.3:5000", spoofed+", 203.0.113.50"))
		}
		require.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
	})
}

func TestNew_InvalidTrustedProxy(t *testing.T) {
	cfg := testConfig{Security: config.Security{TrustedProxies: []string{"not-an-address"}}}
	_, err := server.New(cfg, server.Deps{Storage: kvstore.NewInMemory(), Provider: providerfake.NewFakeProvider()})
	require.Error(t, err)
}
