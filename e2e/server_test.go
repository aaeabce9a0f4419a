package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-seat-booking/internal/api/handler"
	"github.com/sanosuguru/go-seat-booking/internal/api/middleware"
	"github.com/sanosuguru/go-seat-booking/internal/api/router"
	"github.com/sanosuguru/go-seat-booking/internal/application"
	"github.com/sanosuguru/go-seat-booking/internal/infrastructure/sqlstore"
	"github.com/sanosuguru/go-seat-booking/internal/pkg/metrics"
)

const testSecret = "e2e-secret"

// TestServer はE2Eテスト用のサーバー
type TestServer struct {
	Echo    *echo.Echo
	Metrics *metrics.Metrics
	Audit   *application.InventoryAuditService
}

// NewTestServer はインメモリSQLiteの上に本番と同じルーターを組み立てる
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	db, err := sqlstore.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	eventRepo := sqlstore.NewEventRepository(db)
	inventory := sqlstore.NewInventoryRepository(db)
	registry := sqlstore.NewReservationRepository(db)
	txManager := sqlstore.NewTxManager(db, nil)

	eventService := application.NewEventService(eventRepo, registry, nil)
	bookingService := application.NewBookingService(txManager, inventory, registry, application.WithMetrics(m))

	e := router.New(router.Handlers{
		Event:   handler.NewEventHandler(eventService),
		Booking: handler.NewBookingHandler(bookingService),
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"database": func(ctx context.Context) error { return sqlstore.Ping(ctx, db) },
		}),
	}, router.Options{
		JWTSecret: testSecret,
		Metrics:   m,
		Gatherer:  reg,
	})

	return &TestServer{Echo: e, Metrics: m, Audit: application.NewInventoryAuditService(inventory)}
}

// Token はユーザーのBearerトークンヘッダーを作る
func Token(t *testing.T, userID string) map[string]string {
	t.Helper()
	token, err := middleware.IssueToken(testSecret, userID, time.Hour)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

// decode はレスポンスボディをマップに変換する
func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

// createEvent はAPI経由でイベントを作成してIDを返す
func (s *TestServer) createEvent(t *testing.T, name string, seats int) string {
	t.Helper()
	rec := s.Request("POST", "/api/v1/events", map[string]interface{}{
		"name": name, "total_seats": seats,
	}, Token(t, "organizer"))
	require.Equal(t, 201, rec.Code, rec.Body.String())
	return decode(t, rec)["id"].(string)
}

// assertConserved は全イベントで座席数が保存されていることを確認する
func (s *TestServer) assertConserved(t *testing.T) {
	t.Helper()
	report, err := s.Audit.Audit(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Imbalanced)
}
