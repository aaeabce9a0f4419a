package reservation

import (
	"context"
	"time"

	"github.com/sanosuguru/go-seat-booking/internal/domain/transaction"
)

// Registry は予約レコードのリポジトリ
// (user_id, event_id) の一意制約はストレージ側で保証する
type Registry interface {
	// Get は (ユーザー, イベント) の予約を取得する。状態は問わない
	Get(ctx context.Context, userID, eventID string) (*Reservation, error)

	// ActivateOrCreate は予約を ACTIVE にする（トランザクション必須）
	// 行がなければ作成し、CANCELLED なら ACTIVE に戻す。既に ACTIVE なら ErrAlreadyReserved
	ActivateOrCreate(ctx context.Context, tx transaction.Tx, userID, eventID string, now time.Time) (*Reservation, error)

	// Deactivate は status = ACTIVE の行だけを CANCELLED にする（トランザクション必須）
	// 該当行がなければ ErrReservationNotFound
	Deactivate(ctx context.Context, tx transaction.Tx, userID, eventID string, now time.Time) (*Reservation, error)

	// ListByUser はユーザーの予約を対象イベント付きで作成日時の新しい順に取得する
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*WithEvent, error)
}

// Notification は予約状態の変化をコミット後に外部へ通知するためのメッセージ
type Notification struct {
	Type           string    `json:"type"`
	ReservationID  string    `json:"reservation_id"`
	UserID         string    `json:"user_id"`
	EventID        string    `json:"event_id"`
	Status         Status    `json:"status"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// 通知種別
const (
	NotificationReserved  = "reservation.reserved"
	NotificationCancelled = "reservation.cancelled"
)

// Notifier は予約通知の送信先
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
