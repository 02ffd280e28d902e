package authz

// DecisionKind は認可判定の種別を表す。
type DecisionKind int

const (
	// DecisionAllow はリクエストの続行を許可する。
	DecisionAllow DecisionKind = iota
	// DecisionRedirect は指定パスへのリダイレクトを指示する。
	DecisionRedirect
	// DecisionReject は401でリクエストを拒否する。
	DecisionReject
)

// String は判定種別の文字列表現を返す。ログとメトリクスで使用する。
func (k DecisionKind) String() string {
	switch k {
	case DecisionAllow:
		return "allow"
	case DecisionRedirect:
		return "redirect"
	case DecisionReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Decision は1リクエストに対する認可判定の結果を表す。
// 値として返され、例外的な制御フローを持たない。
type Decision struct {
	Kind DecisionKind

	// Location はKind=DecisionRedirectの場合のリダイレクト先パス。
	Location string

	// UserID は認証済みの場合のユーザーID。Publicルートでは空。
	UserID string

	// Challenge はKind=DecisionRejectの場合に、トランスポート層が
	// WWW-Authenticateヘッダーとして返すべきチャレンジ文字列。
	Challenge string
}

// Allow は許可判定を生成する。
func Allow(userID string) Decision {
	return Decision{Kind: DecisionAllow, UserID: userID}
}

// RedirectTo はリダイレクト判定を生成する。
func RedirectTo(location string) Decision {
	return Decision{Kind: DecisionRedirect, Location: location}
}

// Reject は拒否判定を生成する。
func Reject(challenge string) Decision {
	return Decision{Kind: DecisionReject, Challenge: challenge}
}
