// Package authz はリクエスト認可パイプラインを提供する。
// パスのルートクラス分類、セッション有効性、Basic認証ゲートを組み合わせて、
// リクエストごとに許可・リダイレクト・拒否のいずれかを決定する。
package authz

import "strings"

// RouteClass はリクエストパスの認可上の分類を表す。
type RouteClass int

const (
	// RoutePublic は認証不要のルート（トップページ、公開ブログ等）。
	RoutePublic RouteClass = iota
	// RouteAuth はサインイン・サインアップ用のルート。
	RouteAuth
	// RouteProtected は認証必須のルート（ダッシュボード、エディタ等）。
	RouteProtected
)

// String はルートクラスの文字列表現を返す。ログとメトリクスで使用する。
func (c RouteClass) String() string {
	switch c {
	case RoutePublic:
		return "public"
	case RouteAuth:
		return "auth"
	case RouteProtected:
		return "protected"
	default:
		return "unknown"
	}
}

// RouteRule はパスプレフィックスとルートクラスの対応を表す。
type RouteRule struct {
	Prefix string
	Class  RouteClass
}

// RouteTable は順序付きのルート分類表。
// 最長プレフィックス一致（大文字小文字区別）で分類する。
type RouteTable struct {
	rules []RouteRule
}

// NewRouteTable は指定ルールのRouteTableを生成する。
// ルールの記述順に依存しないよう、照合は常に最長一致で行う。
func NewRouteTable(rules []RouteRule) *RouteTable {
	return &RouteTable{rules: rules}
}

// DefaultRouteTable はアプリケーション標準のルート分類表を返す。
func DefaultRouteTable() *RouteTable {
	return NewRouteTable([]RouteRule{
		{Prefix: "/", Class: RoutePublic},
		{Prefix: "/blog", Class: RoutePublic},
		{Prefix: "/health", Class: RoutePublic},
		{Prefix: "/metrics", Class: RoutePublic},
		{Prefix: "/api/auth", Class: RoutePublic},
		{Prefix: "/api/cron", Class: RoutePublic},
		{Prefix: "/api/billing/webhook", Class: RoutePublic},
		{Prefix: "/login", Class: RouteAuth},
		{Prefix: "/register", Class: RouteAuth},
		{Prefix: "/dashboard", Class: RouteProtected},
		{Prefix: "/editor", Class: RouteProtected},
		{Prefix: "/api/posts", Class: RouteProtected},
		{Prefix: "/api/billing", Class: RouteProtected},
	})
}

// Classify はパスをルートクラスに分類する。
// どのルールにも一致しないパスはProtectedとして扱う（fail closed）。
// プレフィックス"/"はルートパスそのものにのみ一致する。
func (t *RouteTable) Classify(path string) RouteClass {
	matched := false
	bestLen := -1
	best := RouteProtected

	for _, rule := range t.rules {
		if !matchesPrefix(path, rule.Prefix) {
			continue
		}
		if len(rule.Prefix) > bestLen {
			bestLen = len(rule.Prefix)
			best = rule.Class
			matched = true
		}
	}

	if !matched {
		return RouteProtected
	}
	return best
}

// matchesPrefix はパスがプレフィックスに一致するかを判定する。
// "/blog"は"/blog"と"/blog/xxx"に一致するが、"/blogX"には一致しない。
func matchesPrefix(path, prefix string) bool {
	if prefix == "/" {
		return path == "/"
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
