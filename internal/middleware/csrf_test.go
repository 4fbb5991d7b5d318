package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestCSRFMiddleware_SafeMethodIssuesCookie(t *testing.T) {
	var ctxToken string
	handler := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxToken = CSRFTokenFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/articles/new", nil))

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == CSRFCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("csrf_token cookie should be issued")
	}
	if len(cookie.Value) != 64 {
		t.Errorf("token length = %d, want 64", len(cookie.Value))
	}
	if ctxToken != cookie.Value {
		t.Errorf("context token = %q, want cookie value %q", ctxToken, cookie.Value)
	}
}

func TestCSRFMiddleware_SafeMethodReusesCookie(t *testing.T) {
	var ctxToken string
	handler := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxToken = CSRFTokenFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "existing"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if ctxToken != "existing" {
		t.Errorf("context token = %q, want existing", ctxToken)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("cookie should not be reissued")
	}
}

func TestCSRFMiddleware_UnsafeMethod(t *testing.T) {
	tests := []struct {
		name       string
		cookie     string
		header     string
		form       string
		wantStatus int
	}{
		{"ヘッダーが一致", "tok", "tok", "", http.StatusOK},
		{"フォーム値が一致", "tok", "", "tok", http.StatusOK},
		{"Cookieなし", "", "tok", "", http.StatusForbidden},
		{"トークンなし", "tok", "", "", http.StatusForbidden},
		{"不一致", "tok", "other", "", http.StatusForbidden},
		{"フォーム値の不一致", "tok", "", "other", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			handler := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				w.WriteHeader(http.StatusOK)
			}))

			body := url.Values{}
			if tt.form != "" {
				body.Set(CSRFFieldName, tt.form)
			}
			req := httptest.NewRequest(http.MethodPost, "/admin/articles", strings.NewReader(body.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if handlerCalled != (tt.wantStatus == http.StatusOK) {
				t.Errorf("handlerCalled = %v", handlerCalled)
			}
		})
	}
}

func TestCSRFTokenHandler(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{CookieSecure: true})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["token"] == "" {
		t.Error("token should not be empty")
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || !cookies[0].Secure {
		t.Errorf("expected one secure cookie, got %+v", cookies)
	}
}
