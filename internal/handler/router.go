package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/postwriter/internal/authz"
	"github.com/hitoshi/postwriter/internal/middleware"
)

// MetricsRecorder はルーターが必要とするメトリクス記録のインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type MetricsRecorder interface {
	middleware.DecisionRecorder
	middleware.HTTPRecorder
	CleanupRecorder
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Authorizer        *authz.Authorizer
	Metrics           MetricsRecorder
	MetricsHandler    http.Handler
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService     AuthServiceInterface
	SessionVerifier SessionVerifierInterface
	AuthConfig      AuthHandlerConfig

	// 記事
	PostService PostServiceInterface

	// 課金
	BillingService BillingServiceInterface
	PlanResolver   PlanResolverInterface

	// スケジュール実行
	TokenCleaner TokenCleaner
	CronConfig   CronHandlerConfig
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics → Authorize
//
// 認可ミドルウェアは全ルートに適用され、ルートクラスに応じて
// 許可・リダイレクト・拒否を行う。認証必須のAPIルートにはさらに
// RequireUserとレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	r.Use(middleware.NewAuthorizeMiddleware(deps.Authorizer, deps.Metrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.SessionVerifier, deps.AuthConfig)
	postHandler := NewPostHandler(deps.PostService)
	billingHandler := NewBillingHandler(deps.BillingService, deps.PlanResolver)
	cronHandler := NewCronHandler(deps.TokenCleaner, deps.Metrics, deps.CronConfig)

	// --- Publicルート ---

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)

	// 認証（メールサインイン）
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signin", authHandler.SignIn)
		r.Get("/verify", authHandler.Verify)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// スケジュール実行（Bearerシークレットで独自に認可する）
	r.Get("/api/cron/cleanup-tokens", cronHandler.CleanupTokens)

	// Stripe Webhook（署名検証で独自に認可する）
	r.Post("/api/billing/webhook", billingHandler.Webhook)

	// --- 認証必須のAPIルート ---
	// ミドルウェアスタック: RequireUser → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser())
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 記事管理
		r.Route("/api/posts", func(r chi.Router) {
			// POST /api/posts - 記事作成（作成専用レート制限を追加）
			r.With(deps.RateLimiter.PostCreationMiddleware()).Post("/", postHandler.CreatePost)
			r.Get("/", postHandler.ListPosts)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", postHandler.GetPost)
				r.Patch("/", postHandler.UpdatePost)
				r.Delete("/", postHandler.DeletePost)
			})
		})

		// 課金管理
		r.Route("/api/billing", func(r chi.Router) {
			r.Post("/checkout", billingHandler.CreateSession)
			r.Get("/plan", billingHandler.GetPlan)
		})
	})

	return r
}

// handleHealth はヘルスチェックに応答する。
// GET /health
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
