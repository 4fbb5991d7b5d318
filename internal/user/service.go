// Package user はログイン・登録・プロフィール管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/readerdigest/internal/model"
	"github.com/hitoshi/readerdigest/internal/validation"
)

// Backend は認証・ユーザーAPIのインターフェース。apiclient.Clientが実装する。
type Backend interface {
	Register(ctx context.Context, in model.RegisterInput) (*model.AuthResult, error)
	Login(ctx context.Context, in model.LoginInput) (*model.AuthResult, error)
	Logout(ctx context.Context) error
	CheckAvailability(ctx context.Context, in model.AvailabilityInput) (*model.AvailabilityResult, error)
	ValidatePassword(ctx context.Context, password string) (*model.PasswordCheckResult, error)
	GetProfile(ctx context.Context) (*model.User, error)
	UpdateProfile(ctx context.Context, in model.ProfileInput) (*model.User, error)
	ChangePassword(ctx context.Context, in model.PasswordChangeInput) error
	Deactivate(ctx context.Context) error
	ListUsers(ctx context.Context, page, perPage int) (*model.UserList, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
}

// authorListSize は公開記事の著者フィルタに並べるユーザー数の上限。
const authorListSize = 100

// Service はアカウント操作のサービス層。
type Service struct {
	backend   Backend
	validator *validation.Validator
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(backend Backend, v *validation.Validator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, validator: v, logger: logger}
}

// Login はユーザー名またはメールアドレスとパスワードでログインする。
func (s *Service) Login(ctx context.Context, form *LoginForm) (*model.AuthResult, error) {
	if err := s.validator.Validate(form); err != nil {
		return nil, err
	}
	return s.backend.Login(ctx, model.LoginInput{
		Login:    form.Login,
		Password: form.Password,
	})
}

// Register はフォームを検証し、ユーザー名・メールアドレスの重複とパスワード強度を
// バックエンドに確認してから登録する。
func (s *Service) Register(ctx context.Context, form *RegisterForm) (*model.AuthResult, error) {
	if err := s.validator.Validate(form); err != nil {
		return nil, err
	}

	for _, check := range []struct{ field, value string }{
		{"username", form.Username},
		{"email", form.Email},
	} {
		res, err := s.backend.CheckAvailability(ctx, model.AvailabilityInput{Field: check.field, Value: check.value})
		if err != nil {
			return nil, err
		}
		if !res.Available || !res.Valid {
			return nil, availabilityError(check.field, res)
		}
	}

	pw, err := s.backend.ValidatePassword(ctx, form.Password)
	if err != nil {
		return nil, err
	}
	if !pw.Valid {
		return nil, &model.ValidationError{Field: "password", Message: joinErrors(pw.Errors, "Password is too weak")}
	}

	return s.backend.Register(ctx, model.RegisterInput{
		Username:  form.Username,
		Email:     form.Email,
		Password:  form.Password,
		FirstName: form.FirstName,
		LastName:  form.LastName,
	})
}

// Logout はバックエンドのログアウトを呼ぶ。
// 失敗してもCookieの削除は行うため、エラーは記録のみ。
func (s *Service) Logout(ctx context.Context) {
	if err := s.backend.Logout(ctx); err != nil {
		s.logger.Warn("バックエンドのログアウトに失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// CheckAvailability はユーザー名・メールアドレスの利用可否を確認する。
func (s *Service) CheckAvailability(ctx context.Context, form *AvailabilityForm) (*model.AvailabilityResult, error) {
	if err := s.validator.Validate(form); err != nil {
		return nil, err
	}
	return s.backend.CheckAvailability(ctx, model.AvailabilityInput{Field: form.Field, Value: form.Value})
}

// ValidatePassword はパスワード強度をバックエンドに確認する。
func (s *Service) ValidatePassword(ctx context.Context, password string) (*model.PasswordCheckResult, error) {
	if password == "" {
		return &model.PasswordCheckResult{Valid: false, Errors: []string{"Password is required"}}, nil
	}
	return s.backend.ValidatePassword(ctx, password)
}

// Profile はログインユーザーのプロフィールを取得する。
func (s *Service) Profile(ctx context.Context) (*model.User, error) {
	return s.backend.GetProfile(ctx)
}

// UpdateProfile はフォームを検証してからプロフィールを更新する。
func (s *Service) UpdateProfile(ctx context.Context, form *ProfileForm) (*model.User, error) {
	if err := s.validator.Validate(form); err != nil {
		return nil, err
	}
	return s.backend.UpdateProfile(ctx, model.ProfileInput{
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
	})
}

// ChangePassword はフォームを検証してからパスワードを変更する。
func (s *Service) ChangePassword(ctx context.Context, form *PasswordForm) error {
	if err := s.validator.Validate(form); err != nil {
		return err
	}
	return s.backend.ChangePassword(ctx, model.PasswordChangeInput{
		CurrentPassword: form.CurrentPassword,
		NewPassword:     form.NewPassword,
	})
}

// Deactivate はアカウントを無効化する。
func (s *Service) Deactivate(ctx context.Context, userID int64) error {
	if err := s.backend.Deactivate(ctx); err != nil {
		return fmt.Errorf("アカウントの無効化に失敗しました: %w", err)
	}
	s.logger.Info("アカウントを無効化しました",
		slog.Int64("user_id", userID),
	)
	return nil
}

// Authors は著者フィルタ用に有効なユーザーの公開プロフィールを返す。
func (s *Service) Authors(ctx context.Context) ([]model.User, error) {
	list, err := s.backend.ListUsers(ctx, 1, authorListSize)
	if err != nil {
		return nil, err
	}
	if list.Users == nil {
		return []model.User{}, nil
	}
	return list.Users, nil
}

// Author は指定ユーザーの公開プロフィールを返す。
func (s *Service) Author(ctx context.Context, id int64) (*model.User, error) {
	return s.backend.GetUser(ctx, id)
}

func availabilityError(field string, res *model.AvailabilityResult) *model.ValidationError {
	fallback := "Username is already taken"
	if field == "email" {
		fallback = "Email is already registered"
	}
	if !res.Valid {
		return &model.ValidationError{Field: field, Message: joinErrors(res.Errors, fallback)}
	}
	return &model.ValidationError{Field: field, Message: fallback}
}

func joinErrors(errs []string, fallback string) string {
	if len(errs) == 0 {
		return fallback
	}
	return strings.Join(errs, " ")
}
