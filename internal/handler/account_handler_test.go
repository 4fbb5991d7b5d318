package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/readerdigest/internal/apiclient"
	"github.com/hitoshi/readerdigest/internal/auth"
	"github.com/hitoshi/readerdigest/internal/model"
	"github.com/hitoshi/readerdigest/internal/session"
	"github.com/hitoshi/readerdigest/internal/user"
)

func TestLogin(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		redirectTo   string
		wantStatus   int
		wantLocation string
		wantError    string
	}{
		{
			name:         "成功時はredirectToへ",
			redirectTo:   "/admin/digests",
			wantStatus:   http.StatusFound,
			wantLocation: "/admin/digests",
		},
		{
			name:         "外部URLへはリダイレクトしない",
			redirectTo:   "https://evil.example.com",
			wantStatus:   http.StatusFound,
			wantLocation: auth.DefaultRedirect,
		},
		{
			name:       "入力エラー",
			err:        &model.ValidationError{Field: "login", Message: "Username or email is required."},
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "Username or email is required.",
		},
		{
			name:       "認証失敗",
			err:        apiError(apiclient.KindUnauthenticated, http.StatusUnauthorized),
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid username or password.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			web, renderer, _ := newTestWeb()
			h := NewAccountHandler(web, &mockAccountService{
				loginFunc: func(ctx context.Context, form *user.LoginForm) (*model.AuthResult, error) {
					if form.Login != "reader" || form.Password != "secret" {
						t.Errorf("form = %+v", form)
					}
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.AuthResult{AccessToken: "backend-token"}, nil
				},
			}, AccountHandlerConfig{})

			req := newFormRequest(http.MethodPost, "/login", url.Values{
				"login":      {"reader"},
				"password":   {"secret"},
				"redirectTo": {tt.redirectTo},
			})
			w := httptest.NewRecorder()
			h.Login(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantLocation != "" {
				if loc := w.Header().Get("Location"); loc != tt.wantLocation {
					t.Errorf("Location = %q, want %q", loc, tt.wantLocation)
				}
				c := findCookie(w.Result(), session.AccessTokenCookie)
				if c == nil || c.Value != "backend-token" {
					t.Errorf("access token cookie = %+v", c)
				}
				return
			}
			page := renderer.last(t)
			if page.page.Error != tt.wantError {
				t.Errorf("error = %q, want %q", page.page.Error, tt.wantError)
			}
			if page.page.Data.(loginData).Form.Password != "" {
				t.Error("password should not be rendered back")
			}
		})
	}
}

func TestLoginPage_ShowsSignInError(t *testing.T) {
	web, renderer, _ := newTestWeb()
	h := NewAccountHandler(web, &mockAccountService{}, AccountHandlerConfig{LogtoEnabled: true})

	req := httptest.NewRequest(http.MethodGet, "/login?error="+auth.CodeProfile, nil)
	w := httptest.NewRecorder()
	h.LoginPage(w, req)

	page := renderer.last(t)
	if page.name != "login" || !strings.Contains(page.page.Error, "email") {
		t.Errorf("rendered %q with error %q", page.name, page.page.Error)
	}
	if !page.page.Data.(loginData).LogtoEnabled {
		t.Error("LogtoEnabled should be passed to the page")
	}
}

func TestLoginPage_AlreadySignedIn(t *testing.T) {
	web, _, _ := newTestWeb()
	h := NewAccountHandler(web, &mockAccountService{}, AccountHandlerConfig{})

	req := withSession(httptest.NewRequest(http.MethodGet, "/login?redirectTo=/profile", nil), "42")
	w := httptest.NewRecorder()
	h.LoginPage(w, req)

	if loc := w.Header().Get("Location"); loc != "/profile" {
		t.Errorf("Location = %q, want /profile", loc)
	}
}

func TestLogout(t *testing.T) {
	t.Run("IdPセッションがなければホームへ", func(t *testing.T) {
		web, _, _ := newTestWeb()
		svc := &mockAccountService{}
		h := NewAccountHandler(web, svc, AccountHandlerConfig{LogtoEnabled: true, LogtoCookieName: testProviderCookie})

		req := withSession(newFormRequest(http.MethodPost, "/logout", nil), "42")
		w := httptest.NewRecorder()
		h.Logout(w, req)

		if !svc.logoutCalled {
			t.Error("backend logout should be called")
		}
		if loc := w.Header().Get("Location"); loc != "/?notice=signed-out" {
			t.Errorf("Location = %q", loc)
		}
		c := findCookie(w.Result(), session.AccessTokenCookie)
		if c == nil || c.MaxAge >= 0 {
			t.Errorf("access token cookie should be cleared: %+v", c)
		}
	})

	t.Run("IdPセッションがあればLogtoのログアウトへ", func(t *testing.T) {
		web, _, _ := newTestWeb()
		h := NewAccountHandler(web, &mockAccountService{}, AccountHandlerConfig{LogtoEnabled: true, LogtoCookieName: testProviderCookie})

		req := withSession(newFormRequest(http.MethodPost, "/logout", nil), "42")
		req.AddCookie(&http.Cookie{Name: testProviderCookie, Value: "sess-1"})
		w := httptest.NewRecorder()
		h.Logout(w, req)

		if loc := w.Header().Get("Location"); loc != "/api/auth/logto/sign-out?redirectTo=/" {
			t.Errorf("Location = %q", loc)
		}
	})
}

func TestCheckAvailability(t *testing.T) {
	web, _, _ := newTestWeb()
	h := NewAccountHandler(web, &mockAccountService{
		checkAvailabilityFunc: func(ctx context.Context, form *user.AvailabilityForm) (*model.AvailabilityResult, error) {
			if form.Field != "username" || form.Value != "reader" {
				t.Errorf("form = %+v", form)
			}
			return &model.AvailabilityResult{Available: false, Valid: true}, nil
		},
	}, AccountHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/check-availability", strings.NewReader(`{"field":"username","value":"reader"}`))
	w := httptest.NewRecorder()
	h.CheckAvailability(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got model.AvailabilityResult
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Available || !got.Valid {
		t.Errorf("result = %+v", got)
	}
}

func TestValidatePassword_InvalidBody(t *testing.T) {
	web, _, _ := newTestWeb()
	h := NewAccountHandler(web, &mockAccountService{}, AccountHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/validate-password", strings.NewReader(`{`))
	w := httptest.NewRecorder()
	h.ValidatePassword(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
