package model

import "strings"

// User はバックエンドに登録されたユーザーを表す。
type User struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	IsActive      bool   `json:"is_active"`
	IsAdmin       bool   `json:"is_admin"`
	OAuthProvider string `json:"oauth_provider,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// DisplayName は表示用の名前を返す。
// 氏名があれば氏名、なければユーザー名。
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Username
}

// UserList はユーザー一覧APIのレスポンス。
type UserList struct {
	Users      []User     `json:"users"`
	Pagination Pagination `json:"pagination"`
}

// AuthResult はログイン・登録・トークン交換で返るアクセストークンとユーザー。
type AuthResult struct {
	Message     string `json:"message,omitempty"`
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

// LoginInput はパスワードログインのリクエストボディ。
// Loginにはユーザー名またはメールアドレスを指定する。
type LoginInput struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// RegisterInput はユーザー登録のリクエストボディ。
type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// ProfileInput はプロフィール更新のリクエストボディ。
type ProfileInput struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// PasswordChangeInput はパスワード変更のリクエストボディ。
type PasswordChangeInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AvailabilityInput はユーザー名・メールアドレスの利用可否確認のリクエストボディ。
// Fieldは "username" または "email"。
type AvailabilityInput struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// AvailabilityResult は利用可否確認のレスポンス。
type AvailabilityResult struct {
	Available bool     `json:"available"`
	Valid     bool     `json:"valid"`
	Errors    []string `json:"errors"`
}

// PasswordCheckResult はパスワード強度確認のレスポンス。
type PasswordCheckResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// LogtoExchangeRequest はLogtoのIDをバックエンドのアクセストークンに交換するリクエスト。
type LogtoExchangeRequest struct {
	LogtoID     string `json:"logto_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Username    string `json:"username,omitempty"`
}
