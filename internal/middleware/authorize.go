package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/postwriter/internal/authz"
)

// DecisionRecorder は認可判定のメトリクス記録に必要なインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type DecisionRecorder interface {
	RecordAuthzDecision(decision string)
}

// NewAuthorizeMiddleware は全リクエストに認可判定を適用するミドルウェアを返す。
// セッションCookieとAuthorizationヘッダーを読み取り、判定結果に応じて
// 続行・リダイレクト（307）・拒否（401）のいずれかを行う。
// 許可されたリクエストでは認証済みユーザーIDをコンテキストに注入する。
//
// リダイレクトに307を使うのは、元のメソッドとボディを保ったまま
// 再送させるため。
func NewAuthorizeMiddleware(authorizer *authz.Authorizer, recorder DecisionRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sessionToken string
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				sessionToken = cookie.Value
			}

			decision := authorizer.Authorize(r.URL.Path, sessionToken, r.Header.Get("Authorization"))
			recorder.RecordAuthzDecision(decision.Kind.String())

			switch decision.Kind {
			case authz.DecisionRedirect:
				http.Redirect(w, r, decision.Location, http.StatusTemporaryRedirect)
				return

			case authz.DecisionReject:
				slog.Warn("request rejected by auth gate",
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("WWW-Authenticate", decision.Challenge)
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			ctx := r.Context()
			if decision.UserID != "" {
				ctx = ContextWithUserID(ctx, decision.UserID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser は認証済みユーザーIDがコンテキストに存在することを要求する
// ミドルウェアを返す。認可ミドルウェアの後段で、認証必須のAPIルートに適用する。
func RequireUser() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := UserIDFromContext(r.Context()); err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
