package user

import "github.com/hitoshi/readerdigest/internal/model"

// LoginForm はログインフォーム。
type LoginForm struct {
	Login    string `form:"login" label:"Username or email" validate:"required"`
	Password string `form:"password" label:"Password" trim:"-" validate:"required"`
}

// RegisterForm はユーザー登録フォーム。
type RegisterForm struct {
	FirstName       string `form:"first_name" label:"First name" validate:"max=100"`
	LastName        string `form:"last_name" label:"Last name" validate:"max=100"`
	Username        string `form:"username" label:"Username" validate:"required,min=3,max=80"`
	Email           string `form:"email" label:"Email" validate:"required,email,max=120"`
	Password        string `form:"password" label:"Password" trim:"-" validate:"required,min=8"`
	ConfirmPassword string `form:"confirm_password" label:"Password confirmation" trim:"-" validate:"required,eqfield=Password"`
}

// ProfileForm はプロフィール編集フォーム。
type ProfileForm struct {
	FirstName string `form:"first_name" label:"First name" validate:"max=100"`
	LastName  string `form:"last_name" label:"Last name" validate:"max=100"`
	Email     string `form:"email" label:"Email" validate:"required,email,max=120"`
}

// ProfileFormFromUser は現在のプロフィールから編集フォームを作る。
func ProfileFormFromUser(u *model.User) *ProfileForm {
	if u == nil {
		return &ProfileForm{}
	}
	return &ProfileForm{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

// PasswordForm はパスワード変更フォーム。
type PasswordForm struct {
	CurrentPassword string `form:"current_password" label:"Current password" trim:"-" validate:"required"`
	NewPassword     string `form:"new_password" label:"New password" trim:"-" validate:"required,min=8"`
	ConfirmPassword string `form:"confirm_password" label:"Password confirmation" trim:"-" validate:"required,eqfield=NewPassword"`
}

// AvailabilityForm は利用可否確認のリクエスト。
type AvailabilityForm struct {
	Field string `json:"field" form:"field" label:"Field" validate:"required,oneof=username email"`
	Value string `json:"value" form:"value" label:"Value" validate:"required"`
}
