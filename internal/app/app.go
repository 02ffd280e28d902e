// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/postwriter/internal/auth"
	"github.com/hitoshi/postwriter/internal/authz"
	"github.com/hitoshi/postwriter/internal/billing"
	"github.com/hitoshi/postwriter/internal/config"
	"github.com/hitoshi/postwriter/internal/database"
	"github.com/hitoshi/postwriter/internal/handler"
	"github.com/hitoshi/postwriter/internal/logger"
	"github.com/hitoshi/postwriter/internal/mail"
	"github.com/hitoshi/postwriter/internal/metrics"
	"github.com/hitoshi/postwriter/internal/middleware"
	"github.com/hitoshi/postwriter/internal/plan"
	"github.com/hitoshi/postwriter/internal/post"
	"github.com/hitoshi/postwriter/internal/quota"
	"github.com/hitoshi/postwriter/internal/repository"
	"github.com/hitoshi/postwriter/internal/security"
	"github.com/hitoshi/postwriter/internal/session"
	"github.com/hitoshi/postwriter/internal/worker/cleanup"
)

// basicAuthRealm はBasic認証ゲートが提示する領域名。
const basicAuthRealm = "postwriter"

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandCleanup:
		return runCleanup(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	postRepo := repository.NewPostgresPostRepo(db)
	tokenRepo := repository.NewPostgresVerificationTokenRepo(db)

	// 3. 認可パイプラインの構築
	codec := session.NewCodec(cfg.SessionSecret, cfg.SessionMaxAge)
	gate := authz.NewBasicAuthGate(
		cfg.BasicAuthEnabled, cfg.BasicAuthUsername, cfg.BasicAuthPassword, basicAuthRealm,
	)
	authorizer := authz.NewAuthorizer(gate, codec, authz.DefaultRouteTable())

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. ドメインサービスの初期化
	planResolver := plan.NewResolver(userRepo)
	enforcer := quota.NewEnforcer(planResolver, postRepo)
	sanitizer := security.NewContentSanitizer()

	mailer := mail.NewLogMailer(slog.Default())
	authService := auth.NewService(userRepo, tokenRepo, codec, mailer, auth.ServiceConfig{
		BaseURL:  cfg.BaseURL,
		MailFrom: cfg.MailFrom,
	})

	postService := post.NewService(postRepo, userRepo, enforcer, sanitizer, collector)

	billingService := billing.NewService(userRepo, planResolver, billing.ServiceConfig{
		APIKey:        cfg.StripeAPIKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		ProPriceID:    cfg.StripeProPriceID,
		BaseURL:       cfg.BaseURL,
	})

	cleanupJob := cleanup.NewTokenCleanupJob(db, slog.Default())

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		Authorizer:        authorizer,
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(registry),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		AuthService:     authService,
		SessionVerifier: codec,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: int(cfg.SessionMaxAge.Seconds()),
		},

		PostService: postService,

		BillingService: billingService,
		PlanResolver:   planResolver,

		TokenCleaner: cleanupJob,
		CronConfig: handler.CronHandlerConfig{
			Secret:      cfg.CronSecret,
			RequireAuth: cfg.IsProduction(),
		},
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runCleanup は期限切れ検証トークンのクリーンアップを1回実行して終了する。
// HTTPサーバーを経由せず、外部スケジューラーから直接起動する場合に使う。
func runCleanup(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	job := cleanup.NewTokenCleanupJob(db, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	deleted, err := job.Run(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	slog.Info("cleanup completed", slog.Int64("deleted_count", deleted))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
