package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Edraak/authgate"
	"github.com/Edraak/authgate/directory"
	"github.com/Edraak/authgate/password"
)

const testAdminToken = "admin-secret"

func testConfig() authgate.Config {
	cfg := authgate.DefaultConfig()
	cfg.Token.SigningSecret = []byte("test-secret")
	// Two buckets so a minute rollover mid-test cannot split the counters.
	cfg.RateLimit.WindowMinutes = 2
	cfg.RateLimit.MaxRequests = 3
	cfg.Password = authgate.PasswordConfig{
		Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16,
	}
	cfg.Audit.Enabled = false
	return cfg
}

func testHash(t *testing.T, plaintext string) string {
	t.Helper()
	h, err := password.NewHasher(password.Params{
		Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16,
	})
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	encoded, err := h.Hash(plaintext)
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	return encoded
}

func newTestServer(t *testing.T) (*httptest.Server, *authgate.Engine) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := directory.NewMemory(directory.Record{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: testHash(t, "alice-password"),
		IsActive:     true,
	})

	engine, err := authgate.New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithDirectory(users).
		WithMemoryLockStore().
		Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	t.Cleanup(engine.Close)

	h := NewHandler(engine, Options{
		AdminToken: testAdminToken,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, engine
}

func postJSON(t *testing.T, srv *httptest.Server, path, body, forwardedFor string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	return resp
}

func postForm(t *testing.T, srv *httptest.Server, path string, form url.Values, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	return resp
}

func decodeMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return out
}

func loginAlice(t *testing.T, srv *httptest.Server) (accessToken, refreshToken string) {
	t.Helper()
	resp := postJSON(t, srv, "/login", `{"username":"alice","password":"alice-password"}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	body := decodeMap(t, resp)
	access, _ := body["access_token"].(string)
	refresh, _ := body["refresh_token"].(string)
	if access == "" || refresh == "" {
		t.Fatalf("missing tokens in %v", body)
	}
	return access, refresh
}

func TestLoginReturnsTokenPair(t *testing.T) {
	srv, _ := newTestServer(t)
	loginAlice(t, srv)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv, "/login", `{"username":"alice","password":"wrong"}`, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := decodeMap(t, resp)["message"]; got != "Invalid username or password" {
		t.Fatalf("message = %v", got)
	}
}

func TestLoginRateLimitReturns429(t *testing.T) {
	srv, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp := postJSON(t, srv, "/login", `{"username":"alice","password":"wrong"}`, "203.0.113.7")
		resp.Body.Close()
	}
	resp := postJSON(t, srv, "/login", `{"username":"alice","password":"wrong"}`, "203.0.113.7")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// A different client IP is not affected.
	resp = postJSON(t, srv, "/login", `{"username":"alice","password":"alice-password"}`, "203.0.113.99")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("other IP status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv, "/login", `{"username":`, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAccessTokenExchange(t *testing.T) {
	srv, engine := newTestServer(t)
	_, refresh := loginAlice(t, srv)

	outer, err := engine.WrapEnvelope(refresh)
	if err != nil {
		t.Fatalf("WrapEnvelope error: %v", err)
	}

	resp := postForm(t, srv, "/access_token", url.Values{"request_access_token": {outer}}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if token, _ := decodeMap(t, resp)["token"].(string); token == "" {
		t.Fatal("expected a token in the response")
	}
}

func TestAccessTokenMissingField(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postForm(t, srv, "/access_token", url.Values{}, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := decodeMap(t, resp)["message"]; got != "Missing Refresh-token" {
		t.Fatalf("message = %v", got)
	}
}

func TestAccessTokenGarbage(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postForm(t, srv, "/access_token", url.Values{"request_access_token": {"not.a.token"}}, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := decodeMap(t, resp)["message"]; got != "Invalid Refresh-token" {
		t.Fatalf("message = %v", got)
	}
}

func TestAccessTokenStaleAnonymous(t *testing.T) {
	srv, engine := newTestServer(t)
	access, refresh := loginAlice(t, srv)

	outer, err := engine.WrapEnvelope(refresh)
	if err != nil {
		t.Fatalf("WrapEnvelope error: %v", err)
	}

	resp := postForm(t, srv, "/logout", nil, access)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postForm(t, srv, "/access_token", url.Values{"request_access_token": {outer}}, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := decodeMap(t, resp)["message"]; got != "Old Refresh-token used" {
		t.Fatalf("message = %v", got)
	}
}

func TestAccessTokenStaleLogsOutCaller(t *testing.T) {
	srv, engine := newTestServer(t)

	// First session, then destroy it so its refresh token goes stale.
	oldAccess, oldRefresh := loginAlice(t, srv)
	resp := postForm(t, srv, "/logout", nil, oldAccess)
	resp.Body.Close()

	// Fresh session for the authenticated caller.
	access, _ := loginAlice(t, srv)

	outer, err := engine.WrapEnvelope(oldRefresh)
	if err != nil {
		t.Fatalf("WrapEnvelope error: %v", err)
	}

	resp = postForm(t, srv, "/access_token", url.Values{"request_access_token": {outer}}, access)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := decodeMap(t, resp)["message"]; got != "Logging out because of an old Refresh-token" {
		t.Fatalf("message = %v", got)
	}

	// The caller's own session was destroyed, so a logout with the same
	// bearer now refers to a dead session but the token still verifies;
	// a second stale exchange from the same caller reads as anonymous.
	resp = postForm(t, srv, "/access_token", url.Values{"request_access_token": {outer}}, access)
	if got := decodeMap(t, resp)["message"]; got != "Logging out because of an old Refresh-token" {
		t.Fatalf("second message = %v", got)
	}
}

func TestLogoutRequiresBearer(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postForm(t, srv, "/logout", nil, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postForm(t, srv, "/logout", nil, "garbage")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage bearer status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAdminRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/admin/ip_locks")
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAdminListAndResetIPLocks(t *testing.T) {
	srv, _ := newTestServer(t)

	for i := 0; i < 4; i++ {
		resp := postJSON(t, srv, "/login", `{"username":"alice","password":"wrong"}`, "203.0.113.7")
		resp.Body.Close()
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/admin/ip_locks", nil)
	req.Header.Set("X-Admin-Token", testAdminToken)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	body := decodeMap(t, resp)
	results, _ := body["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("expected one lock row, got %v", body)
	}
	row, _ := results[0].(map[string]any)
	if row["ip_address"] != "203.0.113.7" || row["latest_username"] != "alice" {
		t.Fatalf("unexpected row: %v", row)
	}

	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/admin/ip_locks/203.0.113.7", nil)
	req.Header.Set("X-Admin-Token", testAdminToken)
	resp, err = srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Budget restored for that IP.
	resp = postJSON(t, srv, "/login", `{"username":"alice","password":"alice-password"}`, "203.0.113.7")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("post-reset login status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	engine, err := authgate.New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithDirectory(directory.NewMemory()).
		WithMemoryLockStore().
		Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	t.Cleanup(engine.Close)

	h := NewHandler(engine, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Get(srv.URL + "/admin/ip_locks")
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}
