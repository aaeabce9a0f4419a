package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-seat-booking/internal/domain/event"
	"github.com/sanosuguru/go-seat-booking/internal/domain/seat"
	"github.com/sanosuguru/go-seat-booking/internal/domain/transaction"
)

type counterRow struct {
	EventID   string `db:"id"`
	Total     int    `db:"total_seats"`
	Available int    `db:"available_seats"`
}

func (r counterRow) toCounter() seat.Counter {
	return seat.Counter{EventID: r.EventID, Total: r.Total, Available: r.Available}
}

type snapshotRow struct {
	EventID   string `db:"id"`
	Total     int    `db:"total_seats"`
	Available int    `db:"available_seats"`
	Active    int    `db:"active_reservations"`
}

// InventoryRepository は events テーブルの座席カウンタを操作する
// 更新は条件付きの単一UPDATEで行い、行ロックの待ち合わせで直列化される
type InventoryRepository struct {
	db *sqlx.DB
}

// NewInventoryRepository はInventoryRepositoryを作成する
func NewInventoryRepository(db *sqlx.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// TryDecrement は空席があるときだけ1席確保する
func (r *InventoryRepository) TryDecrement(ctx context.Context, tx transaction.Tx, eventID string, now time.Time) (seat.Counter, bool, error) {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return seat.Counter{}, false, err
	}
	if _, err := uuid.Parse(eventID); err != nil {
		return seat.Counter{}, false, nil
	}

	query := sqlTx.Rebind(`
		UPDATE events
		SET available_seats = available_seats - 1, updated_at = ?
		WHERE id = ? AND available_seats > 0
		RETURNING id, total_seats, available_seats
	`)
	var row counterRow
	if err := sqlTx.GetContext(ctx, &row, query, now.UTC(), eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return seat.Counter{}, false, nil
		}
		return seat.Counter{}, false, fmt.Errorf("座席確保に失敗しました: %w", err)
	}
	return row.toCounter(), true, nil
}

// Increment は1席返却する
// 上限チェックは CHECK 制約に任せ、違反したら seat.ErrCounterOutOfRange を返す
func (r *InventoryRepository) Increment(ctx context.Context, tx transaction.Tx, eventID string, now time.Time) (seat.Counter, error) {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return seat.Counter{}, err
	}
	if _, err := uuid.Parse(eventID); err != nil {
		return seat.Counter{}, event.ErrEventNotFound
	}

	query := sqlTx.Rebind(`
		UPDATE events
		SET available_seats = available_seats + 1, updated_at = ?
		WHERE id = ?
		RETURNING id, total_seats, available_seats
	`)
	var row counterRow
	if err := sqlTx.GetContext(ctx, &row, query, now.UTC(), eventID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return seat.Counter{}, event.ErrEventNotFound
		case isCheckViolation(err):
			return seat.Counter{}, seat.ErrCounterOutOfRange
		}
		return seat.Counter{}, fmt.Errorf("座席返却に失敗しました: %w", err)
	}
	return row.toCounter(), nil
}

// Lock はイベント行を SELECT ... FOR UPDATE でロックする
// SQLite は FOR UPDATE を持たないが、接続が1本なので書き込みはすでに直列化されている
func (r *InventoryRepository) Lock(ctx context.Context, tx transaction.Tx, eventID string) error {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return err
	}
	if _, err := uuid.Parse(eventID); err != nil {
		return event.ErrEventNotFound
	}

	query := `SELECT id FROM events WHERE id = ?`
	if sqlTx.DriverName() == "postgres" {
		query += ` FOR UPDATE`
	}
	var id string
	if err := sqlTx.GetContext(ctx, &id, sqlTx.Rebind(query), eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return event.ErrEventNotFound
		}
		return fmt.Errorf("イベント行のロックに失敗しました: %w", err)
	}
	return nil
}

// Get は座席カウンタを取得する
func (r *InventoryRepository) Get(ctx context.Context, eventID string) (seat.Counter, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return seat.Counter{}, event.ErrEventNotFound
	}

	var row counterRow
	query := r.db.Rebind(`SELECT id, total_seats, available_seats FROM events WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, query, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidInput(err) {
			return seat.Counter{}, event.ErrEventNotFound
		}
		return seat.Counter{}, fmt.Errorf("座席カウンタ取得に失敗しました: %w", err)
	}
	return row.toCounter(), nil
}

// Snapshots はカウンタとACTIVE予約数を1文で読む
func (r *InventoryRepository) Snapshots(ctx context.Context, limit, offset int) ([]seat.Snapshot, error) {
	query := r.db.Rebind(`
		SELECT e.id, e.total_seats, e.available_seats,
			(SELECT COUNT(*) FROM reservations res WHERE res.event_id = e.id AND res.status = 'ACTIVE') AS active_reservations
		FROM events e
		ORDER BY e.id
		LIMIT ? OFFSET ?
	`)

	var rows []snapshotRow
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("座席スナップショット取得に失敗しました: %w", err)
	}

	snapshots := make([]seat.Snapshot, len(rows))
	for i, row := range rows {
		snapshots[i] = seat.Snapshot{
			Counter:            seat.Counter{EventID: row.EventID, Total: row.Total, Available: row.Available},
			ActiveReservations: row.Active,
		}
	}
	return snapshots, nil
}

var _ seat.Inventory = (*InventoryRepository)(nil)
