package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	TransactionsCreated prometheus.Counter
	PaymentsRecorded    *prometheus.CounterVec
	StockMovements      *prometheus.CounterVec
	LowStockProducts    prometheus.Gauge
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "garasipos_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "garasipos_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	transactions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "garasipos_transactions_created_total",
		Help: "Jumlah transaksi yang berhasil dibuat.",
	})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "garasipos_payments_recorded_total",
		Help: "Jumlah pembayaran per metode.",
	}, []string{"method"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "garasipos_stock_movements_total",
		Help: "Jumlah pergerakan stok per jenis.",
	}, []string{"type"})
	lowStock := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "garasipos_low_stock_products",
		Help: "Jumlah produk di bawah ambang stok minimum pada pemindaian terakhir.",
	})
	registry.MustRegister(requests, duration, transactions, payments, movements, lowStock)
	return &Metrics{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:       requests,
		requestDuration:     duration,
		TransactionsCreated: transactions,
		PaymentsRecorded:    payments,
		StockMovements:      movements,
		LowStockProducts:    lowStock,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// CountMovement aman dipanggil pada receiver nil (mis. dalam pengujian).
func (m *Metrics) CountMovement(movementType string) {
	if m == nil {
		return
	}
	m.StockMovements.WithLabelValues(movementType).Inc()
}

// CountTransaction mencatat satu transaksi baru.
func (m *Metrics) CountTransaction() {
	if m == nil {
		return
	}
	m.TransactionsCreated.Inc()
}

// CountPayment mencatat satu pembayaran per metode.
func (m *Metrics) CountPayment(method string) {
	if m == nil {
		return
	}
	m.PaymentsRecorded.WithLabelValues(method).Inc()
}

// SetLowStock memperbarui gauge hasil pemindaian stok rendah.
func (m *Metrics) SetLowStock(count int) {
	if m == nil {
		return
	}
	m.LowStockProducts.Set(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
