// Package plan はユーザーの課金プラン（Free/Pro）の解決を提供する。
package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/postwriter/internal/model"
	"github.com/hitoshi/postwriter/internal/repository"
)

// gracePeriodMillis は課金期間終了後もProとして扱う猶予時間（ミリ秒）。
// 期間境界でのWebhook遅延やクロックずれを許容するための1日分。
// 値は業務仕様として与えられた定数であり、変更しないこと。
const gracePeriodMillis = 86_400_000

// Resolver はユーザーの課金フィールドからプランを解決する。
// プランはリクエストごとに再計算され、キャッシュしない（鮮度を優先する）。
type Resolver struct {
	users repository.UserRepository
	// now はテストで時刻を固定するためのフック。
	now func() time.Time
}

// NewResolver はResolverを生成する。
func NewResolver(users repository.UserRepository) *Resolver {
	return &Resolver{
		users: users,
		now:   time.Now,
	}
}

// Resolve はユーザーの課金フィールドからプランを計算する。
// 純粋な計算であり、ネットワークアクセスやストレージアクセスは行わない。
// Pro判定条件: stripePriceIdが非空、かつstripeCurrentPeriodEndが存在し、
// stripeCurrentPeriodEnd + 猶予期間 >= 現在時刻。
func (r *Resolver) Resolve(user *model.User) model.Plan {
	isPro := user.StripePriceID != "" &&
		user.StripeCurrentPeriodEnd != nil &&
		user.StripeCurrentPeriodEnd.UnixMilli()+gracePeriodMillis >= r.now().UnixMilli()

	var plan model.Plan
	if isPro {
		plan = model.ProPlan
		plan.StripePriceID = user.StripePriceID
	} else {
		plan = model.FreePlan
	}

	if user.StripeCurrentPeriodEnd != nil {
		plan.CurrentPeriodEnd = user.StripeCurrentPeriodEnd.UnixMilli()
	}

	return plan
}

// ResolveByID はユーザーをストレージから読み込んでプランを解決する。
// ユーザーが存在しない場合はエラーを返す。
func (r *Resolver) ResolveByID(ctx context.Context, userID string) (model.Plan, error) {
	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		return model.Plan{}, fmt.Errorf("プラン解決のためのユーザー取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.Plan{}, model.NewUserNotFoundError()
	}

	return r.Resolve(user), nil
}
