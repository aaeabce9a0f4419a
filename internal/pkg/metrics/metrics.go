package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 予約・キャンセルの結果（operation: reserve/cancel, outcome: success/event_full/already_reserved/event_not_found など）
	BookingsTotal *prometheus.CounterVec

	// 予約・キャンセルの処理時間（operation）
	BookingDuration *prometheus.HistogramVec

	// 在庫監査の実行回数（status: success/skipped/failed）
	InventoryAuditsTotal *prometheus.CounterVec

	// 直近の監査で保存則が崩れていたイベント数
	InventoryImbalancedEvents prometheus.Gauge

	// Redis ロック操作の所要時間（operation: acquire/release, status: success/failed）
	DistributedLockDuration *prometheus.HistogramVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		BookingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookings_total",
				Help: "Total number of reserve/cancel attempts by outcome",
			},
			[]string{"operation", "outcome"},
		),
		BookingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "booking_duration_seconds",
				Help:    "Time spent in reserve/cancel including the transaction",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation"},
		),
		InventoryAuditsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_audits_total",
				Help: "Total number of seat conservation audits",
			},
			[]string{"status"},
		),
		InventoryImbalancedEvents: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inventory_imbalanced_events",
				Help: "Events whose available seats plus active reservations differ from total seats",
			},
		),
		DistributedLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distributed_lock_duration_seconds",
				Help:    "Time spent on distributed lock operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingsTotal,
		m.BookingDuration,
		m.InventoryAuditsTotal,
		m.InventoryImbalancedEvents,
		m.DistributedLockDuration,
	)

	return m
}

// ObserveBooking は予約・キャンセル1回分の結果を記録する。m が nil なら何もしない
func (m *Metrics) ObserveBooking(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.BookingsTotal.WithLabelValues(operation, outcome).Inc()
	m.BookingDuration.WithLabelValues(operation).Observe(seconds)
}

// ObserveAudit は在庫監査1回分の結果を記録する。m が nil なら何もしない
func (m *Metrics) ObserveAudit(status string, imbalanced int) {
	if m == nil {
		return
	}
	m.InventoryAuditsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.InventoryImbalancedEvents.Set(float64(imbalanced))
	}
}

// ObserveLock はロック操作の所要時間を記録する。m が nil なら何もしない
func (m *Metrics) ObserveLock(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.DistributedLockDuration.WithLabelValues(operation, status).Observe(seconds)
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
