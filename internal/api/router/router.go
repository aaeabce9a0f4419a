package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanosuguru/go-seat-booking/internal/api"
	"github.com/sanosuguru/go-seat-booking/internal/api/handler"
	"github.com/sanosuguru/go-seat-booking/internal/api/middleware"
	"github.com/sanosuguru/go-seat-booking/internal/config"
	"github.com/sanosuguru/go-seat-booking/internal/pkg/metrics"
)

// Handlers はルーティング対象のハンドラー
type Handlers struct {
	Event   *handler.EventHandler
	Booking *handler.BookingHandler
	Health  *handler.HealthHandler
}

// Options はルーターの任意設定
type Options struct {
	JWTSecret string
	// Limiter が nil なら予約APIのレート制限を行わない
	Limiter     middleware.Limiter
	Metrics     *metrics.Metrics
	MetricsAuth config.MetricsConfig
	// Gatherer が nil なら /metrics はデフォルトレジストリを公開する
	Gatherer prometheus.Gatherer
}

// New は Echo を組み立てる
func New(h Handlers, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e, opts.Metrics)

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/health", h.Health.Check)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})),
		middleware.MetricsBasicAuth(opts.MetricsAuth))

	requireAuth := middleware.JWTAuth(opts.JWTSecret)
	optionalAuth := middleware.OptionalJWTAuth(opts.JWTSecret)
	rateLimit := middleware.RateLimit(opts.Limiter)

	v1 := e.Group("/api/v1")

	v1.GET("/events", h.Event.List)
	v1.GET("/events/:id", h.Event.GetByID, optionalAuth)
	v1.POST("/events", h.Event.Create, requireAuth)

	// 認証の後に数えることでユーザー単位の制限になる
	v1.POST("/events/:id/reserve", h.Booking.Reserve, requireAuth, rateLimit)
	v1.DELETE("/events/:id/reserve", h.Booking.Cancel, requireAuth, rateLimit)

	v1.GET("/me/reservations", h.Booking.ListMine, requireAuth)

	return e
}
