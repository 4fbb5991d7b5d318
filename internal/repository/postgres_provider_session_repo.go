package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/readerdigest/internal/model"
)

// PostgresProviderSessionRepo はPostgreSQLを使用したIdPセッションリポジトリ。
type PostgresProviderSessionRepo struct {
	db *sql.DB
}

// NewPostgresProviderSessionRepo はPostgresProviderSessionRepoを生成する。
func NewPostgresProviderSessionRepo(db *sql.DB) *PostgresProviderSessionRepo {
	return &PostgresProviderSessionRepo{db: db}
}

// Create はセッションを作成する。
func (r *PostgresProviderSessionRepo) Create(ctx context.Context, s *model.ProviderSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO provider_sessions
		 (id, state, code_verifier, callback_url, redirect_to, status, subject, email, name, id_token, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.State, s.CodeVerifier, s.CallbackURL, s.RedirectTo, string(s.Status),
		s.Subject, s.Email, s.Name, s.IDToken, s.ExpiresAt, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create provider session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *PostgresProviderSessionRepo) FindByID(ctx context.Context, id string) (*model.ProviderSession, error) {
	s := &model.ProviderSession{}
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, state, code_verifier, callback_url, redirect_to, status, subject, email, name, id_token, expires_at, created_at
		 FROM provider_sessions
		 WHERE id = $1 AND expires_at > now()`,
		id,
	).Scan(&s.ID, &s.State, &s.CodeVerifier, &s.CallbackURL, &s.RedirectTo, &status,
		&s.Subject, &s.Email, &s.Name, &s.IDToken, &s.ExpiresAt, &s.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find provider session: %w", err)
	}

	s.Status = model.ProviderSessionStatus(status)
	return s, nil
}

// Update はセッションの状態・クレーム・有効期限を更新する。
func (r *PostgresProviderSessionRepo) Update(ctx context.Context, s *model.ProviderSession) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE provider_sessions
		 SET status = $2, subject = $3, email = $4, name = $5, id_token = $6, expires_at = $7
		 WHERE id = $1`,
		s.ID, string(s.Status), s.Subject, s.Email, s.Name, s.IDToken, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update provider session: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *PostgresProviderSessionRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM provider_sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete provider session: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れのセッションを削除する。
func (r *PostgresProviderSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM provider_sessions WHERE expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired provider sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ ProviderSessionRepository = (*PostgresProviderSessionRepo)(nil)
