package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind はバックエンド呼び出しエラーの分類。
type Kind int

const (
	// KindUnknown は分類できないエラー（5xxなど）。
	KindUnknown Kind = iota
	// KindNetwork は接続失敗・タイムアウトなどの通信エラー。
	KindNetwork
	// KindUnauthenticated は401。
	KindUnauthenticated
	// KindForbidden は403。
	KindForbidden
	// KindNotFound は404。
	KindNotFound
	// KindInvalid は400/409/422の入力エラー。
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error はバックエンド呼び出しのエラー。
// Messageはレスポンスボディのerror、message、既定文の順で決まる。
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("api %s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("api %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("api %s: %s", e.Kind, e.Message)
}

// Unwrap は元のエラーを返す。
func (e *Error) Unwrap() error {
	return e.Err
}

// kindForStatus はHTTPステータスコードからエラー分類を決める。
func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindUnauthenticated
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return KindInvalid
	default:
		return KindUnknown
	}
}

// KindOf はエラーの分類を返す。apiclient.Errorでない場合はKindUnknown。
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// IsUnauthenticated は401エラーかを判定する。
func IsUnauthenticated(err error) bool {
	return err != nil && KindOf(err) == KindUnauthenticated
}

// IsNotFound は404エラーかを判定する。
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsInvalid は入力エラーかを判定する。
func IsInvalid(err error) bool {
	return err != nil && KindOf(err) == KindInvalid
}

// MessageOf はエラーの表示用メッセージを返す。
func MessageOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return defaultMessage
}

// requireBody はエンベロープの中身が欠けた2xxレスポンスをKindUnknownのエラーにする。
func requireBody[T any](endpoint string, v *T) (*T, error) {
	if v == nil {
		return nil, &Error{
			Kind:    KindUnknown,
			Message: "Unexpected response from the server.",
			Err:     fmt.Errorf("%s: response body has no resource", endpoint),
		}
	}
	return v, nil
}
