// Package quota はプランに基づく記事作成数の制限を提供する。
package quota

import (
	"context"
	"fmt"

	"github.com/hitoshi/postwriter/internal/model"
	"github.com/hitoshi/postwriter/internal/repository"
)

// freePostLimit は無料プランで作成できる記事数の上限。
// 値は業務仕様として与えられた定数であり、変更しないこと。
const freePostLimit = 3

// Decision は記事作成可否の判定結果を表す。
// 値として返され、呼び出し側は両方の結果を明示的に処理する。
type Decision struct {
	Allowed bool
	Reason  string
}

// PlanResolver はプラン解決に必要なインターフェース。
// plan.Resolverの部分集合として定義する。
type PlanResolver interface {
	Resolve(user *model.User) model.Plan
}

// Enforcer は記事作成時のクォータ判定を行う。
// 判定は同一リクエスト内で完結し、リクエストをまたぐキャッシュは持たない。
type Enforcer struct {
	plans PlanResolver
	posts repository.PostRepository
}

// NewEnforcer はEnforcerを生成する。
func NewEnforcer(plans PlanResolver, posts repository.PostRepository) *Enforcer {
	return &Enforcer{
		plans: plans,
		posts: posts,
	}
}

// CanCreatePost はユーザーが新しい記事を作成できるかを判定する。
// Proユーザーは常に許可。Freeユーザーは既存記事数が上限未満の場合のみ許可。
// カウントと後続の作成はアトミックではない。競合時に上限を1件超過しうるが、
// この上限は製品上の誘導でありセキュリティ境界ではないため許容する。
// ストレージ障害は判定ではなくエラーとして返す。
func (e *Enforcer) CanCreatePost(ctx context.Context, user *model.User) (Decision, error) {
	if e.plans.Resolve(user).IsPro {
		return Decision{Allowed: true}, nil
	}

	count, err := e.posts.CountByAuthorID(ctx, user.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("記事数の取得に失敗しました: %w", err)
	}

	if count >= freePostLimit {
		return Decision{Allowed: false, Reason: "plan limit reached"}, nil
	}

	return Decision{Allowed: true}, nil
}
