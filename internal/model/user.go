// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 初回サインイン時に作成され、Stripe系フィールドは課金Webhookによって更新される。
type User struct {
	ID        string
	Name      string
	Email     string
	Image     string
	CreatedAt time.Time
	UpdatedAt time.Time

	// 課金情報。未課金ユーザーは空値のまま。
	StripeCustomerID       string
	StripeSubscriptionID   string
	StripePriceID          string
	StripeCurrentPeriodEnd *time.Time
}

// VerificationToken はメールサインイン用のワンタイムトークンを表す。
// サインイン要求時に作成され、検証成功時に消費（削除）されるか、
// 期限切れ後にクリーンアップジョブで回収される。
// 不変条件: expiresを過ぎたトークンは使用できない。
type VerificationToken struct {
	Identifier string // メールアドレス
	Token      string
	Expires    time.Time
}
