package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/readerdigest/internal/model"
)

func signToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: sub}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestNew(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"有効なトークン", signToken(t, "42", now.Add(time.Hour)), nil},
		{"期限なしのトークン", signToken(t, "42", time.Time{}), nil},
		{"期限切れ", signToken(t, "42", now.Add(-time.Minute)), ErrExpiredToken},
		{"空", "", ErrNoToken},
		{"JWTでない", "not-a-jwt", ErrMalformedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.token, now)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if s.Token != tt.token {
				t.Error("Token should be kept as is")
			}
			if s.UserID() != 42 {
				t.Errorf("UserID = %d, want 42", s.UserID())
			}
		})
	}
}

func TestSession_UserID_NonNumeric(t *testing.T) {
	s := &Session{Subject: "abc"}
	if s.UserID() != 0 {
		t.Errorf("UserID = %d, want 0", s.UserID())
	}
	var nilSession *Session
	if nilSession.UserID() != 0 {
		t.Error("nil session UserID should be 0")
	}
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := FromContext(ctx); ok {
		t.Error("empty context should have no session")
	}
	if TokenFromContext(ctx) != "" {
		t.Error("empty context should have no token")
	}

	ctx = WithSession(ctx, &Session{Token: "tok"})
	s, ok := FromContext(ctx)
	if !ok || s.Token != "tok" {
		t.Errorf("FromContext = %+v, %v", s, ok)
	}
	if TokenFromContext(ctx) != "tok" {
		t.Errorf("TokenFromContext = %q, want tok", TokenFromContext(ctx))
	}
}

func TestAccessTokenCookie(t *testing.T) {
	opts := CookieOptions{Secure: true, MaxAge: 604800}

	w := httptest.NewRecorder()
	SetAccessTokenCookie(w, "tok", opts)
	c := w.Result().Cookies()[0]
	if c.Name != AccessTokenCookie || c.Value != "tok" || c.MaxAge != 604800 || !c.Secure {
		t.Errorf("cookie = %+v", c)
	}
	if c.HttpOnly {
		t.Error("access_token cookie must be readable by scripts")
	}

	w = httptest.NewRecorder()
	ClearAccessTokenCookie(w, opts)
	c = w.Result().Cookies()[0]
	if c.Name != AccessTokenCookie || c.MaxAge >= 0 {
		t.Errorf("cleared cookie = %+v", c)
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", c.SameSite)
	}
}

func TestProfileCache(t *testing.T) {
	cache := NewProfileCache(10, time.Minute)
	calls := 0
	load := func(ctx context.Context) (*model.User, error) {
		calls++
		return &model.User{ID: 1, Username: "ada"}, nil
	}

	for i := 0; i < 3; i++ {
		u, err := cache.Get(context.Background(), "tok", load)
		if err != nil || u.Username != "ada" {
			t.Fatalf("Get = %+v, %v", u, err)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}

	cache.Invalidate("tok")
	if _, err := cache.Get(context.Background(), "tok", load); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("loader called %d times after invalidate, want 2", calls)
	}
}

func TestProfileCache_ErrorNotCached(t *testing.T) {
	cache := NewProfileCache(10, time.Minute)
	loadErr := errors.New("backend down")

	_, err := cache.Get(context.Background(), "tok", func(ctx context.Context) (*model.User, error) {
		return nil, loadErr
	})
	if !errors.Is(err, loadErr) {
		t.Fatalf("error = %v, want %v", err, loadErr)
	}
	if cache.Len() != 0 {
		t.Errorf("Len = %d, want 0", cache.Len())
	}
}
