// Package cleanup は期限切れ検証トークンの自動削除ジョブを提供する。
// メールサインインで使い残されたワンタイムトークンを定期バッチで回収する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// TokenCleanupJob は期限切れ検証トークンの削除ジョブ。
// 外部スケジューラからの定期実行を想定し、冪等な削除処理を保証する。
// 削除条件（expires < now）は可換なため、実行が重なっても状態は壊れない。
type TokenCleanupJob struct {
	db     Executor
	logger *slog.Logger
}

// NewTokenCleanupJob は新しいTokenCleanupJobを生成する。
func NewTokenCleanupJob(db Executor, logger *slog.Logger) *TokenCleanupJob {
	return &TokenCleanupJob{
		db:     db,
		logger: logger,
	}
}

// Run はexpiresがnowより前の検証トークンを一括削除し、削除件数を返す。
// 行単位の反復ではなく単一のバルクDELETEで実行し、スケジューラの
// 時間予算内に収める。期限ちょうど（expires == now）のトークンは削除しない。
// 冪等: 直後に再実行すると削除件数は0になる。
func (j *TokenCleanupJob) Run(ctx context.Context, now time.Time) (int64, error) {
	start := time.Now()

	query := `DELETE FROM verification_tokens WHERE expires < $1`
	result, err := j.db.ExecContext(ctx, query, now)
	if err != nil {
		j.logger.Error("トークンクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("トークンクリーンアップの実行に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("トークンクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return deletedCount, nil
}
