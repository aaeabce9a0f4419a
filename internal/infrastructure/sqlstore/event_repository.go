package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-seat-booking/internal/domain/event"
)

const eventColumns = `id, name, description, total_seats, available_seats, created_at, updated_at`

// eventRow はDBの行を表す構造体
type eventRow struct {
	ID             string    `db:"id"`
	Name           string    `db:"name"`
	Description    *string   `db:"description"`
	TotalSeats     int       `db:"total_seats"`
	AvailableSeats int       `db:"available_seats"`
	CreatedAt      timestamp `db:"created_at"`
	UpdatedAt      timestamp `db:"updated_at"`
}

func (r *eventRow) toEntity() *event.Event {
	var desc string
	if r.Description != nil {
		desc = *r.Description
	}
	return &event.Event{
		ID:             r.ID,
		Name:           r.Name,
		Description:    desc,
		TotalSeats:     r.TotalSeats,
		AvailableSeats: r.AvailableSeats,
		CreatedAt:      r.CreatedAt.Time,
		UpdatedAt:      r.UpdatedAt.Time,
	}
}

// EventRepository はイベントカタログのSQL実装
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository はEventRepositoryを作成する
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create は新しいイベントを作成する。IDが空なら採番する
func (r *EventRepository) Create(ctx context.Context, e *event.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	var desc *string
	if e.Description != "" {
		desc = &e.Description
	}

	query := r.db.Rebind(`
		INSERT INTO events (id, name, description, total_seats, available_seats, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Name, desc, e.TotalSeats, e.AvailableSeats, e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
	)
	if err != nil {
		if isCheckViolation(err) {
			return event.ErrInvalidAvailableSeats
		}
		return fmt.Errorf("イベント作成に失敗しました: %w", err)
	}
	return nil
}

// GetByID はIDからイベントを取得する
func (r *EventRepository) GetByID(ctx context.Context, id string) (*event.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, event.ErrEventNotFound
	}

	var row eventRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+eventColumns+` FROM events WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidInput(err) {
			return nil, event.ErrEventNotFound
		}
		return nil, fmt.Errorf("イベント取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// List は作成日時の新しい順にイベント一覧を取得する
func (r *EventRepository) List(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	query := r.db.Rebind(`
		SELECT ` + eventColumns + `
		FROM events
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`)

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("イベント一覧取得に失敗しました: %w", err)
	}

	events := make([]*event.Event, len(rows))
	for i := range rows {
		events[i] = rows[i].toEntity()
	}
	return events, nil
}

// Count はイベントの総数を返す
func (r *EventRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM events`); err != nil {
		return 0, fmt.Errorf("イベント件数取得に失敗しました: %w", err)
	}
	return count, nil
}

// インターフェースを満たしているか確認
var _ event.Repository = (*EventRepository)(nil)
