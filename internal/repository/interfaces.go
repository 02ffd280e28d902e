// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/postwriter/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdateBilling はユーザーのStripe課金フィールドを更新する。
	// 課金Webhookから呼び出される。
	UpdateBilling(ctx context.Context, userID string, customerID, subscriptionID, priceID string, currentPeriodEnd time.Time) error

	// FindByStripeCustomerID はStripe顧客IDでユーザーを検索する。見つからない場合はnilを返す。
	FindByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error)
}

// PostRepository は記事データの永続化インターフェース。
type PostRepository interface {
	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// CountByAuthorID は指定ユーザーが作成した記事数を返す。
	CountByAuthorID(ctx context.Context, authorID string) (int, error)

	// ListByAuthorID は指定ユーザーの記事一覧を更新日時の降順で返す。
	ListByAuthorID(ctx context.Context, authorID string) ([]*model.Post, error)

	// Create は記事を作成する。
	Create(ctx context.Context, post *model.Post) error

	// Update は記事のタイトルと本文を更新する。
	Update(ctx context.Context, post *model.Post) error

	// DeleteByID は指定IDの記事を削除する。
	DeleteByID(ctx context.Context, id string) error
}

// VerificationTokenRepository はメールサインイン用トークンの永続化インターフェース。
type VerificationTokenRepository interface {
	// Create は検証トークンを作成する。
	Create(ctx context.Context, token *model.VerificationToken) error

	// FindByIdentifierAndToken はメールアドレスとトークン値で検証トークンを取得する。
	// 見つからない場合はnilを返す。
	FindByIdentifierAndToken(ctx context.Context, identifier, token string) (*model.VerificationToken, error)

	// Delete は検証トークンを削除する（検証成功時の消費）。
	Delete(ctx context.Context, identifier, token string) error
}
