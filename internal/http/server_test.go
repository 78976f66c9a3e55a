package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack/internal/apiclient"
	"fintrack/internal/core"
	"fintrack/internal/dashboard"
	"fintrack/internal/finance"
	applog "fintrack/internal/log"
	"fintrack/internal/session"
	"fintrack/internal/storage/memory"
)

// fakeAPI is a stand-in finance server that records every call.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string
	auth  []string
}

func (f *fakeAPI) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.auth = append(f.auth, r.Header.Get("Authorization"))
}

func (f *fakeAPI) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls, f.auth = nil, nil
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	w.Header().Set("Content-Type", "application/json")

	if !strings.HasPrefix(r.URL.Path, "/auth/") && r.Header.Get("Authorization") != "Bearer tok-1" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Incorrect email or password"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"tok-1","token_type":"bearer"}`)
	case r.Method == http.MethodPost && r.URL.Path == "/auth/register":
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":1,"email":"a@b.c","full_name":"Ada","created_at":"2025-03-01T10:00:00"}`)
	case r.Method == http.MethodGet && r.URL.Path == "/transactions/":
		_, _ = io.WriteString(w, `[{"id":42,"title":"Groceries","amount":"12.50","type":"expense","category":"Food","date":"2025-03-01","created_at":"2025-03-01T10:00:00"}]`)
	case r.Method == http.MethodGet && r.URL.Path == "/summary/monthly":
		_, _ = io.WriteString(w, `{"total_income":"100.00","total_expenses":"12.50","balance":"87.50","transaction_count":1}`)
	case r.Method == http.MethodPost && r.URL.Path == "/transactions/":
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":43,"title":"Salary","amount":"100.00","type":"income","category":"Work","date":"2025-03-01","created_at":"2025-03-01T10:00:00"}`)
	case r.Method == http.MethodDelete && r.URL.Path == "/transactions/42":
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Not Found"}`)
	}
}

type stack struct {
	srv   *Server
	api   *fakeAPI
	store *memory.Store
}

func newStack(t *testing.T, token string, opts ...Option) *stack {
	t.Helper()
	api := &fakeAPI{}
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	store := memory.New()
	if token != "" {
		if err := store.Set(context.Background(), token); err != nil {
			t.Fatal(err)
		}
	}
	client := apiclient.New(ts.URL, ts.Client(), store)
	fin := finance.New(client)
	sess, err := session.New(context.Background(), fin, store)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	client.OnUnauthorized(sess.HandleUnauthorized)
	clock := func() time.Time { return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC) }
	dash := dashboard.New(fin, dashboard.DefaultLimit, dashboard.WithClock(clock))

	logger := applog.New(applog.Config{Output: io.Discard})
	opts = append([]Option{WithLogger(logger)}, opts...)
	srv := NewServer(":0", sess, dash, opts...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &stack{srv: srv, api: api, store: store}
}

func (s *stack) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (s *stack) token(t *testing.T) string {
	t.Helper()
	tok, err := s.store.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func expectRedirect(t *testing.T, rr *httptest.ResponseRecorder, to string) {
	t.Helper()
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status=%d want 303, body=%s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != to {
		t.Fatalf("Location=%q want %q", loc, to)
	}
}

func TestGuardRedirectsWhenSignedOut(t *testing.T) {
	s := newStack(t, "")
	for _, path := range []string{"/", "/dashboard", "/no-such-page"} {
		expectRedirect(t, s.do(http.MethodGet, path, nil), "/login")
	}
	expectRedirect(t, s.do(http.MethodPost, "/transactions/42/delete", nil), "/login")
	if calls := s.api.snapshot(); len(calls) != 0 {
		t.Fatalf("guard should not reach the API, got %v", calls)
	}

	rr := s.do(http.MethodGet, "/login", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `action="/login"`) {
		t.Fatalf("login page status=%d", rr.Code)
	}
}

func TestGuardRedirectsWhenSignedIn(t *testing.T) {
	s := newStack(t, "tok-1")
	for _, path := range []string{"/", "/login", "/register"} {
		expectRedirect(t, s.do(http.MethodGet, path, nil), "/dashboard")
	}
}

func TestLoginStoresTokenAndShowsDashboard(t *testing.T) {
	s := newStack(t, "")
	rr := s.do(http.MethodPost, "/login", url.Values{"email": {"a@b.c"}, "password": {"secret"}})
	expectRedirect(t, rr, "/dashboard")
	if got := s.token(t); got != "tok-1" {
		t.Fatalf("token=%q", got)
	}

	rr = s.do(http.MethodGet, "/dashboard", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"Groceries", "$100.00", "$87.50", "-$12.50", "Mar 1, 2025", `action="/transactions/42/delete"`} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	if cc := rr.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control=%q", cc)
	}

	s.api.mu.Lock()
	defer s.api.mu.Unlock()
	for i, call := range s.api.calls {
		if call != "POST /auth/login" && s.api.auth[i] != "Bearer tok-1" {
			t.Errorf("%s sent Authorization=%q", call, s.api.auth[i])
		}
	}
}

func TestLoginFailureShowsGenericMessage(t *testing.T) {
	s := newStack(t, "")
	rr := s.do(http.MethodPost, "/login", url.Values{"email": {"a@b.c"}, "password": {"wrong"}})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, msgLoginFailed) {
		t.Fatalf("missing generic message: %s", body)
	}
	if strings.Contains(body, "Incorrect email or password") {
		t.Fatal("server detail leaked into the page")
	}
	if !strings.Contains(body, `value="a@b.c"`) {
		t.Error("email should be kept in the form")
	}
	if got := s.token(t); got != "" {
		t.Fatalf("token=%q want empty", got)
	}
	expectRedirect(t, s.do(http.MethodGet, "/dashboard", nil), "/login")
}

func TestRegisterLogsIn(t *testing.T) {
	s := newStack(t, "")
	rr := s.do(http.MethodPost, "/register", url.Values{
		"full_name": {"Ada"}, "email": {"a@b.c"}, "password": {"secret"},
	})
	expectRedirect(t, rr, "/dashboard")
	want := []string{"POST /auth/register", "POST /auth/login"}
	if got := s.api.snapshot(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("calls=%v want %v", got, want)
	}
	if got := s.token(t); got != "tok-1" {
		t.Fatalf("token=%q", got)
	}
}

func TestRegisterThenLoginFailure(t *testing.T) {
	s := newStack(t, "")
	rr := s.do(http.MethodPost, "/register", url.Values{
		"full_name": {"Ada"}, "email": {"a@b.c"}, "password": {"not-it"},
	})
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), msgRegisterFailed) {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `value="Ada"`) {
		t.Error("full name should be kept in the form")
	}
	expectRedirect(t, s.do(http.MethodGet, "/dashboard", nil), "/login")
}

func TestLogoutClearsToken(t *testing.T) {
	s := newStack(t, "tok-1")
	expectRedirect(t, s.do(http.MethodPost, "/logout", nil), "/login")
	if got := s.token(t); got != "" {
		t.Fatalf("token=%q want empty", got)
	}
	expectRedirect(t, s.do(http.MethodGet, "/dashboard", nil), "/login")
}

func TestDeleteRefetchesBothReads(t *testing.T) {
	s := newStack(t, "tok-1")
	expectRedirect(t, s.do(http.MethodPost, "/transactions/42/delete", nil), "/dashboard")
	calls := s.api.snapshot()
	if len(calls) != 3 || calls[0] != "DELETE /transactions/42" {
		t.Fatalf("calls=%v", calls)
	}
	rest := strings.Join(calls[1:], ",")
	if !strings.Contains(rest, "GET /transactions/") || !strings.Contains(rest, "GET /summary/monthly") {
		t.Fatalf("expected list and summary refetch, got %v", calls[1:])
	}
}

func TestDeleteFailureStillRefetches(t *testing.T) {
	s := newStack(t, "tok-1")
	rr := s.do(http.MethodPost, "/transactions/7/delete", nil)
	if rr.Code != http.StatusBadGateway || !strings.Contains(rr.Body.String(), msgDeleteFailed) {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if calls := s.api.snapshot(); len(calls) != 3 {
		t.Fatalf("calls=%v", calls)
	}
	if !strings.Contains(rr.Body.String(), "Groceries") {
		t.Error("refetched list should still render")
	}
}

func TestDeleteRejectsBadID(t *testing.T) {
	s := newStack(t, "tok-1")
	rr := s.do(http.MethodPost, "/transactions/abc/delete", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
	if calls := s.api.snapshot(); len(calls) != 0 {
		t.Fatalf("calls=%v", calls)
	}
}

func TestCreateTransaction(t *testing.T) {
	s := newStack(t, "tok-1")
	rr := s.do(http.MethodPost, "/transactions", url.Values{
		"title": {"Salary"}, "amount": {"100"}, "type": {"income"},
		"category": {"Work"}, "date": {"2025-03-01"},
	})
	// Redirect after the post so a browser refresh cannot submit it twice.
	expectRedirect(t, rr, "/dashboard")
	calls := s.api.snapshot()
	if len(calls) != 3 || calls[0] != "POST /transactions/" {
		t.Fatalf("calls=%v", calls)
	}

	rr = s.do(http.MethodGet, "/dashboard", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status=%d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), `value="Salary"`) {
		t.Error("draft was not reset")
	}
	if !strings.Contains(rr.Body.String(), `value="2025-03-15"`) {
		t.Error("reset draft should default to today")
	}
}

func TestCreateTransactionInvalidDraft(t *testing.T) {
	s := newStack(t, "tok-1")
	rr := s.do(http.MethodPost, "/transactions", url.Values{
		"title": {"  "}, "amount": {"5"}, "type": {"expense"},
		"category": {"Food"}, "date": {"2025-03-01"},
	})
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), msgCreateFailed) {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	for _, call := range s.api.snapshot() {
		if strings.HasPrefix(call, "POST") {
			t.Fatalf("invalid draft reached the API: %s", call)
		}
	}
	if !strings.Contains(rr.Body.String(), `value="5"`) {
		t.Error("draft should be kept as typed")
	}
}

func TestRejectedTokenRedirectsToLogin(t *testing.T) {
	s := newStack(t, "stale-token")
	expectRedirect(t, s.do(http.MethodGet, "/dashboard", nil), "/login")
	if got := s.token(t); got != "" {
		t.Fatalf("token=%q want cleared", got)
	}

	s.api.reset()
	expectRedirect(t, s.do(http.MethodGet, "/dashboard", nil), "/login")
	if calls := s.api.snapshot(); len(calls) != 0 {
		t.Fatalf("signed-out dashboard reached the API: %v", calls)
	}
}

func TestLoginRateLimit(t *testing.T) {
	s := newStack(t, "", WithLoginRateLimit(1))
	form := url.Values{"email": {"a@b.c"}, "password": {"wrong"}}
	if rr := s.do(http.MethodPost, "/login", form); rr.Code != http.StatusUnauthorized {
		t.Fatalf("first attempt status=%d", rr.Code)
	}
	rr := s.do(http.MethodPost, "/login", form)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second attempt status=%d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if !strings.Contains(rr.Body.String(), msgTooManyTries) {
		t.Error("missing throttle message")
	}
	if rr := s.do(http.MethodGet, "/login", nil); rr.Code != http.StatusOK {
		t.Fatalf("GET should not be throttled, status=%d", rr.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	s := newStack(t, "")
	rr := s.do(http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
	var health map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &health); err != nil || health["status"] != "ok" {
		t.Fatalf("healthz body=%s err=%v", rr.Body.String(), err)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}

	rr = s.do(http.MethodGet, "/readyz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz status=%d body=%s", rr.Code, rr.Body.String())
	}

	down := newStack(t, "", WithReadinessCheck("token_store", func(context.Context) error {
		return errors.New("connection refused")
	}))
	rr = down.do(http.MethodGet, "/readyz", nil)
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "connection refused") {
		t.Fatalf("readyz status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestStaticAssetsAndHeaders(t *testing.T) {
	s := newStack(t, "")
	rr := s.do(http.MethodGet, "/static/app.css", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if rr := s.do("TRACE", "/login", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("TRACE status=%d", rr.Code)
	}
}

func TestCrossOriginPostsAreRejected(t *testing.T) {
	s := newStack(t, "tok-1")
	for _, path := range []string{"/transactions/42/delete", "/transactions", "/logout", "/login"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("title=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Origin", "https://evil.example")
		req.Header.Set("Sec-Fetch-Site", "cross-site")
		req.RemoteAddr = "192.168.1.77:40000"
		rr := httptest.NewRecorder()
		s.srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Errorf("%s status=%d want 403", path, rr.Code)
		}
	}
	if calls := s.api.snapshot(); len(calls) != 0 {
		t.Fatalf("cross-origin posts reached the API: %v", calls)
	}
	if got := s.token(t); got != "tok-1" {
		t.Fatalf("cross-origin logout cleared the token: %q", got)
	}

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Origin", "http://"+req.Host)
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	rr := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rr, req)
	expectRedirect(t, rr, "/login")
}

type claimsOnlySession struct {
	Session
	claims session.Claims
}

func (c claimsOnlySession) Claims(context.Context) (session.Claims, error) { return c.claims, nil }

func TestDashboardHidesExpiredSessionBanner(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)

	expired := &Server{session: claimsOnlySession{claims: session.Claims{ExpiresAt: time.Now().Add(-time.Hour)}}}
	if page := expired.newDashboardPage(req, nil, core.Draft{}, ""); page.Claims != nil {
		t.Fatalf("expired claims shown: %+v", page.Claims)
	}

	valid := &Server{session: claimsOnlySession{claims: session.Claims{ExpiresAt: time.Now().Add(time.Hour)}}}
	if page := valid.newDashboardPage(req, nil, core.Draft{}, ""); page.Claims == nil {
		t.Fatal("valid claims not shown")
	}
}
