package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingSubject はクレームにsubがない場合のエラー。
	ErrMissingSubject = errors.New("claims: missing subject")
	// ErrMissingEmail はクレームにemailがない場合のエラー。
	ErrMissingEmail = errors.New("claims: missing email")
	// ErrMalformedClaims はクレームをJSONとして解釈できない場合のエラー。
	ErrMalformedClaims = errors.New("claims: malformed document")
)

// Claims はIdPのユーザー情報から取り出したクレーム。
type Claims struct {
	Subject    string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Username   string `json:"username,omitempty"`
}

// DisplayName は表示名を返す。name、氏名、ユーザー名、メールアドレスの順に使う。
func (c *Claims) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if n := strings.TrimSpace(c.GivenName + " " + c.FamilyName); n != "" {
		return n
	}
	if c.Username != "" {
		return c.Username
	}
	return c.Email
}

// rawClaims は型が揺れるフィールドを受けるための中間表現。
type rawClaims struct {
	Subject    any `json:"sub"`
	Email      any `json:"email"`
	Name       any `json:"name"`
	GivenName  any `json:"given_name"`
	FamilyName any `json:"family_name"`
	Username   any `json:"username"`
}

// DecodeClaims はユーザー情報のJSONをClaimsに変換する。
// subとemailは必須。文字列以外の値は空として扱う。
func DecodeClaims(data []byte) (*Claims, error) {
	var raw rawClaims
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedClaims, err)
	}

	c := &Claims{
		Subject:    stringClaim(raw.Subject),
		Email:      stringClaim(raw.Email),
		Name:       stringClaim(raw.Name),
		GivenName:  stringClaim(raw.GivenName),
		FamilyName: stringClaim(raw.FamilyName),
		Username:   stringClaim(raw.Username),
	}

	if c.Subject == "" {
		return nil, ErrMissingSubject
	}
	if c.Email == "" {
		return nil, ErrMissingEmail
	}
	return c, nil
}

func stringClaim(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
