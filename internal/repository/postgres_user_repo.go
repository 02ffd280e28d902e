package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/postwriter/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, name, email, image, created_at, updated_at,
	stripe_customer_id, stripe_subscription_id, stripe_price_id, stripe_current_period_end`

// scanUser は1行分のユーザーを読み取る。NULL許容カラムを空値に正規化する。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var name, image, customerID, subscriptionID, priceID sql.NullString
	var periodEnd sql.NullTime

	err := row.Scan(
		&user.ID, &name, &user.Email, &image, &user.CreatedAt, &user.UpdatedAt,
		&customerID, &subscriptionID, &priceID, &periodEnd,
	)
	if err != nil {
		return nil, err
	}

	user.Name = name.String
	user.Image = image.String
	user.StripeCustomerID = customerID.String
	user.StripeSubscriptionID = subscriptionID.String
	user.StripePriceID = priceID.String
	if periodEnd.Valid {
		t := periodEnd.Time
		user.StripeCurrentPeriodEnd = &t
	}

	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindByStripeCustomerID はStripe顧客IDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE stripe_customer_id = $1`, customerID)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by stripe customer ID: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, image, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Name, user.Email, user.Image, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdateBilling はユーザーのStripe課金フィールドを更新する。
func (r *PostgresUserRepo) UpdateBilling(ctx context.Context, userID string, customerID, subscriptionID, priceID string, currentPeriodEnd time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET stripe_customer_id = $2,
		     stripe_subscription_id = $3,
		     stripe_price_id = $4,
		     stripe_current_period_end = $5,
		     updated_at = now()
		 WHERE id = $1`,
		userID, customerID, subscriptionID, priceID, currentPeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("failed to update billing fields: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
