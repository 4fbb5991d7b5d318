package auth

import "fmt"

// サインイン失敗時に /login?error= に渡すコード。
const (
	CodeConfig   = "logto-config"
	CodeCallback = "logto-callback"
	CodeProfile  = "logto-profile"
	CodeExchange = "logto-exchange"
)

// SignInError はサインインフローの失敗。
// Codeはログイン画面にそのまま渡し、Errは記録のみに使う。
type SignInError struct {
	Code string
	Err  error
}

// Error はerrorインターフェースを実装する。
func (e *SignInError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *SignInError) Unwrap() error {
	return e.Err
}

func signInError(code string, err error) *SignInError {
	return &SignInError{Code: code, Err: err}
}
