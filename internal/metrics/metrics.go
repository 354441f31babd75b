// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやジョブから利用する。
type MetricsCollector interface {
	RecordSessionCreated()
	RecordSessionDestroyed(reason string)
	RecordSessionRotated()
	RecordCSRFRejected()
	RecordNotificationSent()
	RecordNotificationFailed()
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	sessionCreated   prometheus.Counter
	sessionDestroyed *prometheus.CounterVec
	sessionRotated   prometheus.Counter
	csrfRejected     prometheus.Counter
	notifSent        prometheus.Counter
	notifFailed      prometheus.Counter
	requestLatency   prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_session_created_total",
			Help: "作成されたセッションの合計数",
		}),
		sessionDestroyed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdeck_session_destroyed_total",
			Help: "破棄されたセッションの理由別合計数",
		}, []string{"reason"}),
		sessionRotated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_session_rotated_total",
			Help: "識別子がローテーションされたセッションの合計数",
		}),
		csrfRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_csrf_rejected_total",
			Help: "CSRF検証で拒否されたリクエストの合計数",
		}),
		notifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_notification_sent_total",
			Help: "配送に成功した通知の合計数",
		}),
		notifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_notification_failed_total",
			Help: "配送に失敗した通知の合計数",
		}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskdeck_request_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.sessionCreated,
		c.sessionDestroyed,
		c.sessionRotated,
		c.csrfRejected,
		c.notifSent,
		c.notifFailed,
		c.requestLatency,
	)

	return c
}

// RecordSessionCreated はセッション作成を記録する。
func (c *Collector) RecordSessionCreated() {
	c.sessionCreated.Inc()
}

// RecordSessionDestroyed はセッション破棄を理由付きで記録する。
// reasonは "timeout" または "logout"。
func (c *Collector) RecordSessionDestroyed(reason string) {
	c.sessionDestroyed.WithLabelValues(reason).Inc()
}

// RecordSessionRotated はセッション識別子のローテーションを記録する。
func (c *Collector) RecordSessionRotated() {
	c.sessionRotated.Inc()
}

// RecordCSRFRejected はCSRF検証での拒否を記録する。
func (c *Collector) RecordCSRFRejected() {
	c.csrfRejected.Inc()
}

// RecordNotificationSent は通知の配送成功を記録する。
func (c *Collector) RecordNotificationSent() {
	c.notifSent.Inc()
}

// RecordNotificationFailed は通知の配送失敗を記録する。
func (c *Collector) RecordNotificationFailed() {
	c.notifFailed.Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
