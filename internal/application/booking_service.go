package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-booking/internal/domain/event"
	"github.com/sanosuguru/go-seat-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-booking/internal/domain/seat"
	"github.com/sanosuguru/go-seat-booking/internal/domain/transaction"
	"github.com/sanosuguru/go-seat-booking/internal/pkg/clock"
	"github.com/sanosuguru/go-seat-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-seat-booking/internal/pkg/metrics"
)

// 操作名（メトリクスのラベル）
const (
	operationReserve = "reserve"
	operationCancel  = "cancel"
)

// BookingResult は予約・取り消しの結果
// Seats はトランザクション内で更新した直後の座席カウンタ
type BookingResult struct {
	Reservation *reservation.Reservation
	Seats       seat.Counter
}

// BookingService は座席カウンタと予約レコードを1つのトランザクションで更新する
// 排他制御はストレージの行ロック・条件付きUPDATE・一意制約に任せ、プロセス内では何も保持しない
type BookingService struct {
	txManager transaction.Manager
	inventory seat.Inventory
	registry  reservation.Registry
	clock     clock.Clock
	notifier  reservation.Notifier
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// BookingOption は BookingService の任意設定
type BookingOption func(*BookingService)

// WithClock は時刻の取得元を差し替える
func WithClock(c clock.Clock) BookingOption {
	return func(s *BookingService) { s.clock = c }
}

// WithNotifier はコミット後の通知先を設定する
func WithNotifier(n reservation.Notifier) BookingOption {
	return func(s *BookingService) { s.notifier = n }
}

// WithMetrics はメトリクスの記録先を設定する
func WithMetrics(m *metrics.Metrics) BookingOption {
	return func(s *BookingService) { s.metrics = m }
}

// WithLogger はロガーを設定する
func WithLogger(l *zap.Logger) BookingOption {
	return func(s *BookingService) { s.logger = l }
}

// NewBookingService は BookingService を作成する
func NewBookingService(tm transaction.Manager, inv seat.Inventory, reg reservation.Registry, opts ...BookingOption) *BookingService {
	s := &BookingService{
		txManager: tm,
		inventory: inv,
		registry:  reg,
		clock:     clock.NewSystem(),
		logger:    logger.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reserve はユーザーのためにイベントの座席を1つ確保する
// 返すエラーは event.ErrEventNotFound, seat.ErrEventFull, reservation.ErrAlreadyReserved,
// transaction.ErrTransient のいずれか（入力不備を除く）
func (s *BookingService) Reserve(ctx context.Context, userID, eventID string) (*BookingResult, error) {
	start := time.Now()
	result, err := s.reserve(ctx, userID, eventID)
	s.metrics.ObserveBooking(operationReserve, outcome(err), time.Since(start).Seconds())
	if err != nil {
		s.logFailure(ctx, operationReserve, userID, eventID, err)
		return nil, err
	}

	s.notify(ctx, reservation.NotificationReserved, result)
	return result, nil
}

func (s *BookingService) reserve(ctx context.Context, userID, eventID string) (*BookingResult, error) {
	if userID == "" {
		return nil, reservation.ErrUserIDRequired
	}
	if eventID == "" {
		return nil, reservation.ErrEventIDRequired
	}

	// 高速パス: トランザクションを開く前に明らかな失敗を返す
	if _, err := s.inventory.Get(ctx, eventID); err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			return nil, err
		}
		return nil, transaction.Transient(fmt.Errorf("座席カウンタ取得に失敗: %w", err))
	}
	existing, err := s.registry.Get(ctx, userID, eventID)
	switch {
	case err == nil && existing.IsActive():
		return nil, reservation.ErrAlreadyReserved
	case err != nil && !errors.Is(err, reservation.ErrReservationNotFound):
		return nil, transaction.Transient(fmt.Errorf("予約取得に失敗: %w", err))
	}

	now := s.clock.Now()
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, transaction.Transient(fmt.Errorf("トランザクション開始に失敗: %w", err))
	}

	counter, ok, err := s.inventory.TryDecrement(ctx, tx, eventID, now)
	if err != nil {
		s.rollback(tx)
		return nil, transaction.Transient(fmt.Errorf("座席確保に失敗: %w", err))
	}
	if !ok {
		s.rollback(tx)
		// 接続を返してから存在確認する（満席か削除済みかを区別する）
		if _, err := s.inventory.Get(ctx, eventID); errors.Is(err, event.ErrEventNotFound) {
			return nil, err
		}
		return nil, seat.ErrEventFull
	}

	res, err := s.registry.ActivateOrCreate(ctx, tx, userID, eventID, now)
	if err != nil {
		s.rollback(tx)
		if errors.Is(err, reservation.ErrAlreadyReserved) {
			return nil, err
		}
		return nil, transaction.Transient(fmt.Errorf("予約登録に失敗: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, transaction.Transient(fmt.Errorf("コミットに失敗: %w", err))
	}
	return &BookingResult{Reservation: res, Seats: counter}, nil
}

// Cancel はユーザーの ACTIVE な予約を取り消し、座席を1つ返却する
// 返すエラーは reservation.ErrReservationNotFound, transaction.ErrTransient のいずれか（入力不備を除く）
func (s *BookingService) Cancel(ctx context.Context, userID, eventID string) (*BookingResult, error) {
	start := time.Now()
	result, err := s.cancel(ctx, userID, eventID)
	s.metrics.ObserveBooking(operationCancel, outcome(err), time.Since(start).Seconds())
	if err != nil {
		s.logFailure(ctx, operationCancel, userID, eventID, err)
		return nil, err
	}

	s.notify(ctx, reservation.NotificationCancelled, result)
	return result, nil
}

func (s *BookingService) cancel(ctx context.Context, userID, eventID string) (*BookingResult, error) {
	if userID == "" {
		return nil, reservation.ErrUserIDRequired
	}
	if eventID == "" {
		return nil, reservation.ErrEventIDRequired
	}

	existing, err := s.registry.Get(ctx, userID, eventID)
	if err != nil {
		if errors.Is(err, reservation.ErrReservationNotFound) {
			return nil, err
		}
		return nil, transaction.Transient(fmt.Errorf("予約取得に失敗: %w", err))
	}
	if !existing.IsActive() {
		return nil, reservation.ErrReservationNotFound
	}

	now := s.clock.Now()
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, transaction.Transient(fmt.Errorf("トランザクション開始に失敗: %w", err))
	}

	// Reserve と同じくイベント行を先にロックする（逆順だと同じ組の予約と取り消しがデッドロックする）
	if err := s.inventory.Lock(ctx, tx, eventID); err != nil {
		s.rollback(tx)
		if errors.Is(err, event.ErrEventNotFound) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, transaction.Transient(fmt.Errorf("イベント行のロックに失敗: %w", err))
	}

	// 同時に取り消された場合は ACTIVE 条件で弾かれて行が返らない
	res, err := s.registry.Deactivate(ctx, tx, userID, eventID, now)
	if err != nil {
		s.rollback(tx)
		if errors.Is(err, reservation.ErrReservationNotFound) {
			return nil, err
		}
		return nil, transaction.Transient(fmt.Errorf("予約取り消しに失敗: %w", err))
	}

	counter, err := s.inventory.Increment(ctx, tx, eventID, now)
	if err != nil {
		s.rollback(tx)
		if errors.Is(err, seat.ErrCounterOutOfRange) {
			// 保存則が崩れている。リトライしても直らないので一時エラーにしない
			return nil, fmt.Errorf("座席返却に失敗: %w", err)
		}
		return nil, transaction.Transient(fmt.Errorf("座席返却に失敗: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, transaction.Transient(fmt.Errorf("コミットに失敗: %w", err))
	}
	return &BookingResult{Reservation: res, Seats: counter}, nil
}

// ListUserReservations はユーザーの予約一覧を対象イベント付きで返す
func (s *BookingService) ListUserReservations(ctx context.Context, userID string, limit, offset int) ([]*reservation.WithEvent, error) {
	if userID == "" {
		return nil, reservation.ErrUserIDRequired
	}
	if err := ValidateLimitOffset(limit, offset); err != nil {
		return nil, err
	}
	return s.registry.ListByUser(ctx, userID, limit, offset)
}

func (s *BookingService) rollback(tx transaction.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.logger.Warn("ロールバックに失敗しました", zap.Error(err))
	}
}

// notify はコミット後に呼ぶ。通知の失敗は予約結果に影響させない
func (s *BookingService) notify(ctx context.Context, kind string, result *BookingResult) {
	if s.notifier == nil {
		return
	}
	n := reservation.Notification{
		Type:           kind,
		ReservationID:  result.Reservation.ID,
		UserID:         result.Reservation.UserID,
		EventID:        result.Reservation.EventID,
		Status:         result.Reservation.Status,
		TotalSeats:     result.Seats.Total,
		AvailableSeats: result.Seats.Available,
		OccurredAt:     result.Reservation.UpdatedAt,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		logger.FromContext(ctx, s.logger).Error("予約通知の送信に失敗しました",
			zap.String("type", kind),
			zap.String("reservation_id", n.ReservationID),
			zap.Error(err),
		)
	}
}

func (s *BookingService) logFailure(ctx context.Context, operation, userID, eventID string, err error) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("user_id", userID),
		zap.String("event_id", eventID),
		zap.Error(err),
	}
	log := logger.FromContext(ctx, s.logger)
	switch outcome(err) {
	case outcomeTransient:
		log.Warn("予約処理が一時的なエラーで失敗しました", fields...)
	case outcomeError:
		log.Error("予約処理に失敗しました", fields...)
	default:
		log.Debug("予約処理を受け付けませんでした", fields...)
	}
}

// 結果ラベル
const (
	outcomeSuccess             = "success"
	outcomeEventFull           = "event_full"
	outcomeAlreadyReserved     = "already_reserved"
	outcomeEventNotFound       = "event_not_found"
	outcomeReservationNotFound = "reservation_not_found"
	outcomeInvalid             = "invalid"
	outcomeTransient           = "transient"
	outcomeError               = "error"
)

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, transaction.ErrTransient):
		return outcomeTransient
	case errors.Is(err, seat.ErrCounterOutOfRange):
		return outcomeError
	case errors.Is(err, seat.ErrEventFull):
		return outcomeEventFull
	case errors.Is(err, reservation.ErrAlreadyReserved):
		return outcomeAlreadyReserved
	case errors.Is(err, event.ErrEventNotFound):
		return outcomeEventNotFound
	case errors.Is(err, reservation.ErrReservationNotFound):
		return outcomeReservationNotFound
	case errors.Is(err, reservation.ErrUserIDRequired), errors.Is(err, reservation.ErrEventIDRequired):
		return outcomeInvalid
	default:
		return outcomeError
	}
}
