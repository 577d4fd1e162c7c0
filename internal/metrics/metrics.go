// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SweepCollector はスイープ処理のメトリクス収集インターフェース。
type SweepCollector interface {
	RecordSweep(duration time.Duration)
	RecordSourceError(sourceName string)
	RecordListingsScraped(count int)
	RecordListingsNew(count int)
	RecordNotificationSent()
	RecordNotificationFailed()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	sweeps              prometheus.Counter
	sweepLatency        prometheus.Histogram
	sourceErrors        *prometheus.CounterVec
	listingsScraped     prometheus.Counter
	listingsNew         prometheus.Counter
	notificationsSent   prometheus.Counter
	notificationsFailed prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listingwatch_sweeps_total",
			Help: "実行されたスイープの合計数",
		}),
		sweepLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "listingwatch_sweep_latency_seconds",
			Help:    "スイープ1回の所要時間（秒）",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		sourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listingwatch_source_errors_total",
			Help: "ソース別のスクレイピング失敗数",
		}, []string{"source"}),
		listingsScraped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listingwatch_listings_scraped_total",
			Help: "抽出されたリスティング候補の合計数",
		}),
		listingsNew: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listingwatch_listings_new_total",
			Help: "新着として保存されたリスティングの合計数",
		}),
		notificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listingwatch_notifications_sent_total",
			Help: "送信に成功した通知メールの合計数",
		}),
		notificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listingwatch_notifications_failed_total",
			Help: "送信に失敗した通知メールの合計数",
		}),
	}

	reg.MustRegister(
		c.sweeps,
		c.sweepLatency,
		c.sourceErrors,
		c.listingsScraped,
		c.listingsNew,
		c.notificationsSent,
		c.notificationsFailed,
	)

	return c
}

// RecordSweep はスイープの完了と所要時間を記録する。
func (c *Collector) RecordSweep(duration time.Duration) {
	c.sweeps.Inc()
	c.sweepLatency.Observe(duration.Seconds())
}

// RecordSourceError はソースの処理失敗を記録する。
func (c *Collector) RecordSourceError(sourceName string) {
	c.sourceErrors.WithLabelValues(sourceName).Inc()
}

// RecordListingsScraped は抽出されたリスティング候補数を記録する。
func (c *Collector) RecordListingsScraped(count int) {
	c.listingsScraped.Add(float64(count))
}

// RecordListingsNew は新着として保存されたリスティング数を記録する。
func (c *Collector) RecordListingsNew(count int) {
	c.listingsNew.Add(float64(count))
}

// RecordNotificationSent は通知メールの送信成功を記録する。
func (c *Collector) RecordNotificationSent() {
	c.notificationsSent.Inc()
}

// RecordNotificationFailed は通知メールの送信失敗を記録する。
func (c *Collector) RecordNotificationFailed() {
	c.notificationsFailed.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
