package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

type testForm struct {
	Title    string `form:"title"`
	IsPublic bool   `form:"is_public"`
	Ignored  string `form:"-"`
	Count    int    `form:"count"`
}

func TestBindForm_Post(t *testing.T) {
	req := newFormRequest(http.MethodPost, "/admin/articles?title=from-query", url.Values{
		"title":     {"from-body"},
		"is_public": {"on"},
		"count":     {"3"},
	})

	var form testForm
	if err := bindForm(req, &form); err != nil {
		t.Fatalf("bindForm: %v", err)
	}
	if form.Title != "from-body" {
		t.Errorf("Title = %q, want body value", form.Title)
	}
	if !form.IsPublic {
		t.Error("IsPublic should be true")
	}
	if form.Count != 3 {
		t.Errorf("Count = %d, want 3", form.Count)
	}
}

func TestBindForm_Checkbox(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
		want   bool
	}{
		{name: "onはチェック済み", values: url.Values{"is_public": {"on"}}, want: true},
		{name: "trueはチェック済み", values: url.Values{"is_public": {"true"}}, want: true},
		{name: "offは未チェック", values: url.Values{"is_public": {"off"}}, want: false},
		{name: "未送信は未チェック", values: url.Values{"title": {"t"}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newFormRequest(http.MethodPost, "/admin/articles", tt.values)
			var form testForm
			if err := bindForm(req, &form); err != nil {
				t.Fatalf("bindForm: %v", err)
			}
			if form.IsPublic != tt.want {
				t.Errorf("IsPublic = %v, want %v", form.IsPublic, tt.want)
			}
		})
	}
}

func TestBindForm_InvalidNumber(t *testing.T) {
	req := newFormRequest(http.MethodPost, "/admin/articles", url.Values{"count": {"many"}})
	var form testForm
	if err := bindForm(req, &form); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestBindForm_GetUsesQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/digests/new?title=week", nil)

	var form testForm
	if err := bindForm(req, &form); err != nil {
		t.Fatalf("bindForm: %v", err)
	}
	if form.Title != "week" {
		t.Errorf("Title = %q, want week", form.Title)
	}
}

func TestBindForm_RejectsNonPointer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := bindForm(req, testForm{}); err == nil {
		t.Error("expected error for non-pointer target")
	}
}

func TestIsChecked(t *testing.T) {
	for _, v := range []string{"true", "on", "1", "yes"} {
		if !isChecked(v) {
			t.Errorf("isChecked(%q) = false", v)
		}
	}
	for _, v := range []string{"", "false", "off", "0"} {
		if isChecked(v) {
			t.Errorf("isChecked(%q) = true", v)
		}
	}
}
