package reservation

import (
	"time"

	"github.com/sanosuguru/go-seat-booking/internal/domain/event"
)

// Status は予約の状態を表す
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCancelled Status = "CANCELLED"
)

// Reservation は (ユーザー, イベント) ごとに高々1件だけ存在する予約レコード
// CANCELLED から再予約された場合は同じレコード（同じID）が ACTIVE に戻る
// 状態遷移はストレージの条件付き更新だけで行う
type Reservation struct {
	ID        string
	UserID    string
	EventID   string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive は予約が有効かを返す
func (r *Reservation) IsActive() bool {
	return r.Status == StatusActive
}

// WithEvent は予約と対象イベントの組（ユーザーの予約一覧の読み取りモデル）
type WithEvent struct {
	*Reservation
	Event *event.Event
}
