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
// APIクライアント、認証サービス、URLプレビュー、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordBackendCall(endpoint string, statusCode int, duration time.Duration)
	RecordSignIn(result string)
	RecordPreview(result string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	backendRequests *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	signIns         *prometheus.CounterVec
	previews        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "readerdigest_http_requests_total",
			Help: "ルート・ステータス別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "readerdigest_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "readerdigest_backend_requests_total",
			Help: "バックエンドAPI呼び出し数（status_code=0は通信エラー）",
		}, []string{"endpoint", "status_code"}),
		backendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "readerdigest_backend_request_duration_seconds",
			Help:    "バックエンドAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "readerdigest_sign_in_total",
			Help: "Logtoサインインの結果別件数",
		}, []string{"result"}),
		previews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "readerdigest_url_preview_total",
			Help: "URLプレビュー取得の結果別件数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.backendRequests,
		c.backendDuration,
		c.signIns,
		c.previews,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordBackendCall はバックエンドAPI呼び出しの結果とレイテンシを記録する。
func (c *Collector) RecordBackendCall(endpoint string, statusCode int, duration time.Duration) {
	c.backendRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	c.backendDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordSignIn はサインインの結果を記録する。
func (c *Collector) RecordSignIn(result string) {
	c.signIns.WithLabelValues(result).Inc()
}

// RecordPreview はURLプレビューの結果を記録する。
func (c *Collector) RecordPreview(result string) {
	c.previews.WithLabelValues(result).Inc()
}

// Noop は何も記録しないMetricsCollector。
// テストやメトリクス無効時に使用する。
type Noop struct{}

func (Noop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Noop) RecordBackendCall(string, int, time.Duration)         {}
func (Noop) RecordSignIn(string)                                  {}
func (Noop) RecordPreview(string)                                 {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Noop{}
)
