package handler

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"
)

// cleanupTimeout はクリーンアップ処理の最大実行時間。
const cleanupTimeout = 10 * time.Second

// TokenCleaner は期限切れトークンの一括削除に必要なインターフェース。
// cleanup.TokenCleanupJobの部分集合として定義する。
type TokenCleaner interface {
	Run(ctx context.Context, now time.Time) (int64, error)
}

// CleanupRecorder は削除トークン数のメトリクス記録に必要なインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type CleanupRecorder interface {
	RecordTokensDeleted(count int64)
}

// CronHandlerConfig はcronハンドラーの設定。
type CronHandlerConfig struct {
	// Secret はcron呼び出し元との共有シークレット。
	Secret string
	// RequireAuth がtrueの場合、Bearerシークレットの一致を必須とする。
	// 本番環境ではtrue。開発環境では認証なしで実行できる。
	RequireAuth bool
}

// CronHandler はスケジュール実行エンドポイントのHTTPハンドラー。
// 外部スケジューラーからのHTTP呼び出しでバッチ処理を起動する。
type CronHandler struct {
	cleaner  TokenCleaner
	recorder CleanupRecorder
	config   CronHandlerConfig
	// now はテストで時刻を固定するためのフック。
	now func() time.Time
}

// NewCronHandler はCronHandlerを生成する。
func NewCronHandler(cleaner TokenCleaner, recorder CleanupRecorder, config CronHandlerConfig) *CronHandler {
	return &CronHandler{
		cleaner:  cleaner,
		recorder: recorder,
		config:   config,
		now:      time.Now,
	}
}

// cleanupResponse はクリーンアップ成功レスポンス。
type cleanupResponse struct {
	Success      bool      `json:"success"`
	DeletedCount int64     `json:"deletedCount"`
	Timestamp    time.Time `json:"timestamp"`
}

// cleanupErrorResponse はクリーンアップ失敗レスポンス。
type cleanupErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// CleanupTokens は期限切れ検証トークンの一括削除を実行する。
// GET /api/cron/cleanup-tokens
func (h *CronHandler) CleanupTokens(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		slog.Warn("cron request rejected",
			slog.String("path", r.URL.Path),
		)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cleanupTimeout)
	defer cancel()

	deleted, err := h.cleaner.Run(ctx, h.now())
	if err != nil {
		slog.Error("token cleanup failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, cleanupErrorResponse{
			Success: false,
			Error:   "クリーンアップの実行に失敗しました。",
		})
		return
	}

	h.recorder.RecordTokensDeleted(deleted)

	writeJSON(w, http.StatusOK, cleanupResponse{
		Success:      true,
		DeletedCount: deleted,
		Timestamp:    h.now(),
	})
}

// authorized はcron呼び出しの認可を判定する。
// 比較はタイミングサイドチャネルを避けるため定数時間で行う。
func (h *CronHandler) authorized(r *http.Request) bool {
	if !h.config.RequireAuth {
		return true
	}

	expected := "Bearer " + h.config.Secret
	got := r.Header.Get("Authorization")
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}
