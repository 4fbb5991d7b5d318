package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/readerdigest/internal/session"
)

var testNow = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

func signToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: sub, ExpiresAt: jwt.NewNumericDate(exp)}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func newTestSessionMiddleware() func(http.Handler) http.Handler {
	return NewSessionMiddleware(SessionConfig{
		Now: func() time.Time { return testNow },
	})
}

func TestSessionMiddleware_ValidToken(t *testing.T) {
	token := signToken(t, "42", testNow.Add(time.Hour))

	var got *session.Session
	handler := newTestSessionMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = session.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: session.AccessTokenCookie, Value: token})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if got == nil {
		t.Fatal("session should be set in context")
	}
	if got.UserID() != 42 {
		t.Errorf("UserID = %d, want 42", got.UserID())
	}
	if got.Token != token {
		t.Error("Token should be the cookie value")
	}
}

func TestSessionMiddleware_NoCookie(t *testing.T) {
	handlerCalled := false
	handler := newTestSessionMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		if _, ok := session.FromContext(r.Context()); ok {
			t.Error("session should not be set without cookie")
		}
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if !handlerCalled {
		t.Error("handler should be called for anonymous requests")
	}
}

func TestSessionMiddleware_ClearsInvalidToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"期限切れ", signToken(t, "42", testNow.Add(-time.Minute))},
		{"不正な形式", "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			handler := newTestSessionMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				if _, ok := session.FromContext(r.Context()); ok {
					t.Error("session should not be set for invalid token")
				}
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: session.AccessTokenCookie, Value: tt.token})
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if !handlerCalled {
				t.Error("handler should still be called")
			}
			cleared := false
			for _, c := range w.Result().Cookies() {
				if c.Name == session.AccessTokenCookie && c.MaxAge < 0 {
					cleared = true
				}
			}
			if !cleared {
				t.Error("access token cookie should be cleared")
			}
		})
	}
}

func TestRequireSession_RedirectsAnonymous(t *testing.T) {
	handler := RequireSession("/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/articles?page=2", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, "/login?redirectTo=") {
		t.Errorf("Location = %q, want /login?redirectTo=...", loc)
	}
	if !strings.Contains(loc, "%2Fadmin%2Farticles%3Fpage%3D2") {
		t.Errorf("Location should carry original path, got %q", loc)
	}
}

func TestRequireSession_PostRedirectsWithoutReturnPath(t *testing.T) {
	handler := RequireSession("/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/articles", nil))

	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestRequireSession_PassesAuthenticated(t *testing.T) {
	handlerCalled := false
	handler := RequireSession("/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req = req.WithContext(session.WithSession(req.Context(), &session.Session{Token: "t", Subject: "1"}))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if !handlerCalled {
		t.Error("handler should be called for authenticated requests")
	}
}

func TestRequireSessionJSON_Returns401(t *testing.T) {
	handler := RequireSessionJSON()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/preview-url", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}
