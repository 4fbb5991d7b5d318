package handler

import (
	"fmt"
	"net/http"

	"github.com/go-playground/form/v4"
)

// formDecoder は全ハンドラーで共有する。型情報のキャッシュを持ち、並行利用できる。
var formDecoder = newFormDecoder()

func newFormDecoder() *form.Decoder {
	decoder := form.NewDecoder()
	// 未チェックのチェックボックスは送信されないため、送信値だけを判定すればよい
	decoder.RegisterCustomTypeFunc(func(vals []string) (any, error) {
		return isChecked(vals[0]), nil
	}, false)
	return decoder
}

// bindForm はリクエストのフォーム値をformタグに従って構造体に設定する。
// dstは構造体へのポインタ。POSTはボディ、それ以外はクエリ文字列から読む。
func bindForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("failed to parse form: %w", err)
	}
	values := r.PostForm
	if r.Method == http.MethodGet {
		values = r.URL.Query()
	}
	if err := formDecoder.Decode(dst, values); err != nil {
		return fmt.Errorf("failed to decode form: %w", err)
	}
	return nil
}

// isChecked はチェックボックスの送信値を真偽値に変換する。
func isChecked(v string) bool {
	switch v {
	case "true", "on", "1", "yes":
		return true
	default:
		return false
	}
}
