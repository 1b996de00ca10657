package auth

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

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"study-organizer-backend/internal/analytics"
)

var testSecret = []byte("test-secret")

type memUsers struct {
	mu      sync.Mutex
	users   map[string]User
	deleted []string
	failGet bool
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]User{}}
}

func (m *memUsers) Upsert(_ context.Context, p Profile) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := User{ID: p.ID, Email: p.Email, Name: p.Name, Picture: p.Picture}
	m.users[p.ID] = u
	return u, nil
}

func (m *memUsers) Get(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return User{}, errors.New("db down")
	}
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// fakeIdP plays token endpoint and userinfo endpoint.
func fakeIdP(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"sub":"google-123","email":"student@example.com","name":"Sam","picture":"http://img"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestHandler(t *testing.T) (*Handler, *memUsers) {
	t.Helper()
	srv := fakeIdP(t)
	users := newMemUsers()
	h := &Handler{
		Provider: &Provider{
			Config: &oauth2.Config{
				ClientID:     "cid",
				ClientSecret: "csecret",
				RedirectURL:  "http://app.test/auth/callback",
				Endpoint: oauth2.Endpoint{
					AuthURL:  srv.URL + "/auth",
					TokenURL: srv.URL + "/token",
				},
				Scopes: []string{"openid", "email"},
			},
			UserInfoURL: srv.URL + "/userinfo",
		},
		Users:        users,
		Secret:       testSecret,
		TTL:          time.Hour,
		CookieSecure: true,
		Log:          log.New(io.Discard),
		Now:          time.Now,
	}
	return h, users
}

func findCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken(testSecret, "u-1", time.Hour, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	uid, err := ParseToken(testSecret, tok)
	if err != nil || uid != "u-1" {
		t.Fatalf("ParseToken = %q, %v", uid, err)
	}
}

func TestParseTokenRejects(t *testing.T) {
	expired, _ := GenerateToken(testSecret, "u-1", time.Hour, time.Now().Add(-2*time.Hour))
	otherKey, _ := GenerateToken([]byte("other"), "u-1", time.Hour, time.Now())
	noSubject, _ := GenerateToken(testSecret, "", time.Hour, time.Now())

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong key", otherKey},
		{"no subject", noSubject},
		{"garbage", "not.a.token"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(testSecret, tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ParseToken error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	valid, _ := GenerateToken(testSecret, "u-1", time.Hour, time.Now())
	tampered := valid[:len(valid)-2] + "xx"

	tests := []struct {
		name       string
		cookie     string
		bearer     string
		wantStatus int
	}{
		{"cookie", valid, "", http.StatusOK},
		{"bearer", "", valid, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"tampered", tampered, "", http.StatusUnauthorized},
	}

	m := New(testSecret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser, gotAnalyticsUser string
			h := m.Wrap(func(w http.ResponseWriter, r *http.Request) {
				gotUser, _ = UserIDFromContext(r.Context())
				gotAnalyticsUser, _ = analytics.UserIDFromContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			rec := httptest.NewRecorder()
			h(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && (gotUser != "u-1" || gotAnalyticsUser != "u-1") {
				t.Errorf("user = %q / analytics user = %q, want u-1", gotUser, gotAnalyticsUser)
			}
		})
	}
}

func TestRedirectURL(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.RedirectURL(rec, httptest.NewRequest(http.MethodGet, "/api/oauth/google/redirect_url", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		RedirectURL string `json:"redirectUrl"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(body.RedirectURL)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("client_id") != "cid" || q.Get("response_type") != "code" {
		t.Errorf("redirect query = %v", q)
	}

	state := findCookie(rec.Result(), stateCookieName)
	if state == nil || state.Value == "" {
		t.Fatal("state cookie not set")
	}
	if q.Get("state") != state.Value {
		t.Errorf("state param %q != cookie %q", q.Get("state"), state.Value)
	}
}

func TestCreateSession(t *testing.T) {
	h, users := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{"code":"good-code","state":"s-1"}`))
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "s-1"})
	rec := httptest.NewRecorder()
	h.CreateSession(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	session := findCookie(rec.Result(), SessionCookieName)
	if session == nil {
		t.Fatal("session cookie not set")
	}
	if !session.HttpOnly || !session.Secure || session.SameSite != http.SameSiteNoneMode {
		t.Errorf("cookie flags = %+v", session)
	}
	uid, err := ParseToken(testSecret, session.Value)
	if err != nil || uid != "google-123" {
		t.Errorf("session token user = %q, %v", uid, err)
	}
	if u, ok := users.users["google-123"]; !ok || u.Email != "student@example.com" {
		t.Errorf("stored user = %+v", users.users)
	}
}

func TestCreateSessionRejects(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		stateCk    string
		wantStatus int
	}{
		{"no code", `{}`, "", http.StatusBadRequest},
		{"bad json", `{`, "", http.StatusBadRequest},
		{"state mismatch", `{"code":"good-code","state":"other"}`, "s-1", http.StatusBadRequest},
		{"exchange fails", `{"code":"bad-code"}`, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, users := newTestHandler(t)
			req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(tt.body))
			if tt.stateCk != "" {
				req.AddCookie(&http.Cookie{Name: stateCookieName, Value: tt.stateCk})
			}
			rec := httptest.NewRecorder()
			h.CreateSession(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if findCookie(rec.Result(), SessionCookieName) != nil {
				t.Error("session cookie must not be set")
			}
			if len(users.users) != 0 {
				t.Error("no user should be stored")
			}
		})
	}
}

func TestMe(t *testing.T) {
	h, users := newTestHandler(t)
	users.users["u-1"] = User{ID: "u-1", Email: "a@b.c"}

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req = req.WithContext(WithUserID(req.Context(), "u-1"))
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got User
	_ = json.NewDecoder(rec.Body).Decode(&got)
	if got.Email != "a@b.c" {
		t.Errorf("user = %+v", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req = req.WithContext(WithUserID(req.Context(), "ghost"))
	rec = httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want 404", rec.Code)
	}

	users.failGet = true
	req = httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req = req.WithContext(WithUserID(req.Context(), "u-1"))
	rec = httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("store failure status = %d, want 500", rec.Code)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodGet, "/api/logout", nil))

	c := findCookie(rec.Result(), SessionCookieName)
	if c == nil || c.MaxAge >= 0 || c.Value != "" {
		t.Errorf("cookie = %+v, want expired", c)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if body := rec.Body.String(); body != "{\"success\":true}\n" {
		t.Errorf("body = %q", body)
	}
}

func TestDeleteAccount(t *testing.T) {
	h, users := newTestHandler(t)
	users.users["u-1"] = User{ID: "u-1"}

	rec := httptest.NewRecorder()
	h.DeleteAccount(rec, httptest.NewRequest(http.MethodDelete, "/api/users/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	req = req.WithContext(WithUserID(req.Context(), "u-1"))
	rec = httptest.NewRecorder()
	h.DeleteAccount(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(users.deleted) != 1 || users.deleted[0] != "u-1" {
		t.Errorf("deleted = %v", users.deleted)
	}
	if c := findCookie(rec.Result(), SessionCookieName); c == nil || c.MaxAge >= 0 {
		t.Error("session cookie should be cleared")
	}
}

func TestCookieLaxWhenInsecure(t *testing.T) {
	h := &Handler{CookieSecure: false}
	c := h.cookie(SessionCookieName, "v", time.Hour)
	if c.Secure || c.SameSite != http.SameSiteLaxMode || c.MaxAge != 3600 {
		t.Errorf("cookie = %+v", c)
	}
}
