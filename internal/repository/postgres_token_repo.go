package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/postwriter/internal/model"
)

// PostgresVerificationTokenRepo はPostgreSQLを使用した検証トークンリポジトリ。
// 期限切れトークンの一括削除はworker/cleanupが直接SQLで行う。
type PostgresVerificationTokenRepo struct {
	db *sql.DB
}

// NewPostgresVerificationTokenRepo はPostgresVerificationTokenRepoを生成する。
func NewPostgresVerificationTokenRepo(db *sql.DB) *PostgresVerificationTokenRepo {
	return &PostgresVerificationTokenRepo{db: db}
}

// Create は検証トークンを作成する。
func (r *PostgresVerificationTokenRepo) Create(ctx context.Context, token *model.VerificationToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verification_tokens (identifier, token, expires)
		 VALUES ($1, $2, $3)`,
		token.Identifier, token.Token, token.Expires,
	)
	if err != nil {
		return fmt.Errorf("failed to insert verification token: %w", err)
	}
	return nil
}

// FindByIdentifierAndToken はメールアドレスとトークン値で検証トークンを取得する。
// 見つからない場合はnilを返す。期限の判定は呼び出し側が行う。
func (r *PostgresVerificationTokenRepo) FindByIdentifierAndToken(ctx context.Context, identifier, token string) (*model.VerificationToken, error) {
	vt := &model.VerificationToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT identifier, token, expires FROM verification_tokens
		 WHERE identifier = $1 AND token = $2`,
		identifier, token,
	).Scan(&vt.Identifier, &vt.Token, &vt.Expires)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find verification token: %w", err)
	}

	return vt, nil
}

// Delete は検証トークンを削除する（検証成功時の消費）。
func (r *PostgresVerificationTokenRepo) Delete(ctx context.Context, identifier, token string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE identifier = $1 AND token = $2`,
		identifier, token,
	)
	if err != nil {
		return fmt.Errorf("failed to delete verification token: %w", err)
	}
	return nil
}

// compile-time interface check
var _ VerificationTokenRepository = (*PostgresVerificationTokenRepo)(nil)
