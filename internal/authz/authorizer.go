package authz

// SessionVerifier はセッショントークンの検証に必要なインターフェース。
// session.Codecの部分集合として定義する。
type SessionVerifier interface {
	Verify(token string) (userID string, ok bool)
}

// Authorizer はリクエストごとの認可判定を行う。
// 設定は起動時に注入され、以後変更されない。I/Oは一切行わず、
// 1回の呼び出しにつき最大1回の署名検証のみを実行する。
type Authorizer struct {
	gate     *BasicAuthGate
	verifier SessionVerifier
	routes   *RouteTable
}

// NewAuthorizer はAuthorizerを生成する。
func NewAuthorizer(gate *BasicAuthGate, verifier SessionVerifier, routes *RouteTable) *Authorizer {
	return &Authorizer{
		gate:     gate,
		verifier: verifier,
		routes:   routes,
	}
}

// Authorize はパスとリクエストの認証情報から認可判定を返す。
// 評価は以下の固定順で行い、最初に確定した判定を返す。
//
//  1. Basic認証ゲート: 不一致なら401拒否（チャレンジ付き）
//  2. Publicルート: セッション検証なしで無条件許可
//  3. セッショントークンを検証して認証状態を決定
//  4. Authルート: 認証済みなら/dashboardへリダイレクト、未認証なら許可
//  5. Protectedルート: 認証済みなら許可、未認証なら/loginへリダイレクト
//
// トークンの検証失敗は「未認証」として扱い、エラーにはしない。
func (a *Authorizer) Authorize(path, sessionToken, basicAuthHeader string) Decision {
	// 1. 共有シークレットゲート
	if !a.gate.Check(basicAuthHeader) {
		return Reject(a.gate.Challenge())
	}

	class := a.routes.Classify(path)

	// 2. Publicルートはセッション検証を行わない
	if class == RoutePublic {
		return Allow("")
	}

	// 3. 認証状態の決定
	userID, authenticated := a.verifier.Verify(sessionToken)

	// 4. 認証ページ
	if class == RouteAuth {
		if authenticated {
			return RedirectTo("/dashboard")
		}
		return Allow("")
	}

	// 5. 保護ページ（未分類パスもProtectedに分類済み）
	if authenticated {
		return Allow(userID)
	}
	return RedirectTo("/login")
}

// ClassOf はパスのルートクラスを返す。ログとメトリクス用。
func (a *Authorizer) ClassOf(path string) RouteClass {
	return a.routes.Classify(path)
}
