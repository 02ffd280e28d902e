// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordAuthzDecision(decision string)
	RecordPostCreated()
	RecordQuotaDenied()
	RecordTokensDeleted(count int64)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authzDecision  *prometheus.CounterVec
	postsCreated   prometheus.Counter
	quotaDenied    prometheus.Counter
	tokensDeleted  prometheus.Counter
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authzDecision: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postwriter_authz_decision_total",
			Help: "アクセス制御判定の種別ごとの合計数",
		}, []string{"decision"}),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postwriter_posts_created_total",
			Help: "作成された記事の合計数",
		}),
		quotaDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postwriter_quota_denied_total",
			Help: "プラン上限による記事作成拒否の合計数",
		}),
		tokensDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postwriter_tokens_deleted_total",
			Help: "クリーンアップで削除された期限切れ検証トークンの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postwriter_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "postwriter_request_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.authzDecision,
		c.postsCreated,
		c.quotaDenied,
		c.tokensDeleted,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordAuthzDecision はアクセス制御判定の種別を記録する。
func (c *Collector) RecordAuthzDecision(decision string) {
	c.authzDecision.WithLabelValues(decision).Inc()
}

// RecordPostCreated は記事作成を記録する。
func (c *Collector) RecordPostCreated() {
	c.postsCreated.Inc()
}

// RecordQuotaDenied はプラン上限による記事作成拒否を記録する。
func (c *Collector) RecordQuotaDenied() {
	c.quotaDenied.Inc()
}

// RecordTokensDeleted はクリーンアップで削除されたトークン数を記録する。
func (c *Collector) RecordTokensDeleted(count int64) {
	c.tokensDeleted.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
