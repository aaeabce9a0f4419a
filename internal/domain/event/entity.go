package event

import (
	"strings"
	"time"
)

// Event はイベントエンティティを表す
// 座席数の更新は seat.Inventory だけが行う
type Event struct {
	ID             string
	Name           string
	Description    string
	TotalSeats     int
	AvailableSeats int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewEvent は新しいイベントを作成する。空席数は総座席数で初期化される
func NewEvent(name, description string, totalSeats int, now time.Time) *Event {
	return &Event{
		Name:           strings.TrimSpace(name),
		Description:    description,
		TotalSeats:     totalSeats,
		AvailableSeats: totalSeats,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Validate はイベントの検証を行う
func (e *Event) Validate() error {
	if e.Name == "" {
		return ErrEventNameRequired
	}
	if e.TotalSeats < 0 {
		return ErrInvalidTotalSeats
	}
	if e.AvailableSeats < 0 || e.AvailableSeats > e.TotalSeats {
		return ErrInvalidAvailableSeats
	}
	return nil
}
