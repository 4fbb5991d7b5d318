package model

import "time"

// ProviderSessionStatus はIdPセッションの状態。
type ProviderSessionStatus string

const (
	// ProviderSessionPending はサインイン開始後、コールバック待ちの状態。
	ProviderSessionPending ProviderSessionStatus = "pending"
	// ProviderSessionActive はコールバック完了後の状態。
	ProviderSessionActive ProviderSessionStatus = "active"
)

// ProviderSession はIdP（Logto）とのサインインセッションを表す。
// IDはHttpOnly Cookieにのみ格納し、本体はサーバー側で保持する。
type ProviderSession struct {
	ID           string
	State        string
	CodeVerifier string
	CallbackURL  string
	RedirectTo   string
	Status       ProviderSessionStatus
	Subject      string
	Email        string
	Name         string
	IDToken      string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Expired はセッションが期限切れかを返す。
func (s *ProviderSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
