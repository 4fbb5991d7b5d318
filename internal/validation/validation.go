// Package validation はフォーム入力の検証を提供する。
//
// フォーム構造体には以下のタグを付ける。
//   - validate: go-playground/validatorのルール
//   - form: フォームのフィールド名（エラー表示位置に使う）
//   - label: エラーメッセージに使う表示名
//   - trim:"-": 前後の空白を除去しない（パスワードなど）
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/readerdigest/internal/format"
	"github.com/hitoshi/readerdigest/internal/model"
)

// Validator はフォーム構造体を検証する。
type Validator struct {
	validate *validator.Validate
}

// New は独自ルールを登録したValidatorを生成する。
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		return fld.Name
	})

	// http/httpsの絶対URLのみ許可する
	_ = v.RegisterValidation("weburl", func(fl validator.FieldLevel) bool {
		return format.IsValidURL(fl.Field().String())
	})
	// YYYY-MM-DD形式の日付
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		return format.FormatDateForInput(fl.Field().String()) == fl.Field().String()
	})

	return &Validator{validate: v}
}

// RegisterStructRule は構造体単位の検証ルールを登録する。
// ルール内でReportErrorを呼ぶと、そのフィールドの検証エラーになる。
func (v *Validator) RegisterStructRule(fn validator.StructLevelFunc, form any) {
	v.validate.RegisterStructValidation(fn, form)
}

// Validate はフォーム構造体の文字列フィールドをトリムしてから検証する。
// formは構造体へのポインタ。最初の検証エラーを*model.ValidationErrorとして返す。
func (v *Validator) Validate(form any) error {
	trimStrings(form)

	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("フォームの検証に失敗しました: %w", err)
	}

	fe := verrs[0]
	return &model.ValidationError{
		Field:   formFieldName(form, fe.StructField()),
		Message: message(fe),
	}
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "email":
		return "Please enter a valid email address"
	case "weburl":
		return "Please enter a valid URL"
	case "date":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", label)
	case "eqfield":
		return fmt.Sprintf("%s does not match", label)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, fe.Param())
	case "weekorder":
		return "Week end must be on or after week start"
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}

// formFieldName は構造体フィールド名からformタグの名前を引く。
func formFieldName(form any, structField string) string {
	t := reflect.TypeOf(form)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return structField
	}
	f, ok := t.FieldByName(structField)
	if !ok {
		return structField
	}
	if name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]; name != "" {
		return name
	}
	return structField
}

func trimStrings(form any) {
	rv := reflect.ValueOf(form)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return
	}
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if f.Kind() != reflect.String || !f.CanSet() || rt.Field(i).Tag.Get("trim") == "-" {
			continue
		}
		f.SetString(strings.TrimSpace(f.String()))
	}
}
