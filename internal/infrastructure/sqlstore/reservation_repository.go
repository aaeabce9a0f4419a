package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-seat-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-booking/internal/domain/transaction"
)

const reservationColumns = `id, user_id, event_id, status, created_at, updated_at`

type reservationRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	EventID   string    `db:"event_id"`
	Status    string    `db:"status"`
	CreatedAt timestamp `db:"created_at"`
	UpdatedAt timestamp `db:"updated_at"`
}

func (r *reservationRow) toEntity() *reservation.Reservation {
	return &reservation.Reservation{
		ID:        r.ID,
		UserID:    r.UserID,
		EventID:   r.EventID,
		Status:    reservation.Status(r.Status),
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
}

// ReservationRepository は予約レコードのSQL実装
// (user_id, event_id) ごとに行は1つで、再予約は同じ行を ACTIVE に戻す
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository はReservationRepositoryを作成する
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Get は (ユーザー, イベント) の予約を取得する
func (r *ReservationRepository) Get(ctx context.Context, userID, eventID string) (*reservation.Reservation, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, reservation.ErrReservationNotFound
	}

	query := r.db.Rebind(`SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = ? AND event_id = ?`)
	var row reservationRow
	if err := r.db.GetContext(ctx, &row, query, userID, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidInput(err) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// ActivateOrCreate は行がなければ作成し、CANCELLED なら ACTIVE に戻す
// 既に ACTIVE なら更新されず行が返らないので ErrAlreadyReserved になる
func (r *ReservationRepository) ActivateOrCreate(ctx context.Context, tx transaction.Tx, userID, eventID string, now time.Time) (*reservation.Reservation, error) {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return nil, err
	}

	query := sqlTx.Rebind(`
		INSERT INTO reservations (` + reservationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, event_id) DO UPDATE
		SET status = excluded.status, updated_at = excluded.updated_at
		WHERE reservations.status = ?
		RETURNING ` + reservationColumns)

	ts := now.UTC()
	var row reservationRow
	err = sqlTx.GetContext(ctx, &row, query,
		uuid.NewString(), userID, eventID, string(reservation.StatusActive), ts, ts,
		string(reservation.StatusCancelled),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return nil, reservation.ErrAlreadyReserved
		}
		return nil, fmt.Errorf("予約の登録に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// Deactivate は ACTIVE の予約だけを CANCELLED にする
func (r *ReservationRepository) Deactivate(ctx context.Context, tx transaction.Tx, userID, eventID string, now time.Time) (*reservation.Reservation, error) {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, reservation.ErrReservationNotFound
	}

	query := sqlTx.Rebind(`
		UPDATE reservations
		SET status = ?, updated_at = ?
		WHERE user_id = ? AND event_id = ? AND status = ?
		RETURNING ` + reservationColumns)

	var row reservationRow
	err = sqlTx.GetContext(ctx, &row, query,
		string(reservation.StatusCancelled), now.UTC(), userID, eventID, string(reservation.StatusActive),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約の取り消しに失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// reservationWithEventRow は予約一覧用の結合結果
type reservationWithEventRow struct {
	reservationRow
	EventName           string    `db:"event_name"`
	EventDescription    *string   `db:"event_description"`
	EventTotalSeats     int       `db:"event_total_seats"`
	EventAvailableSeats int       `db:"event_available_seats"`
	EventCreatedAt      timestamp `db:"event_created_at"`
	EventUpdatedAt      timestamp `db:"event_updated_at"`
}

func (r *reservationWithEventRow) toEntity() *reservation.WithEvent {
	ev := eventRow{
		ID:             r.EventID,
		Name:           r.EventName,
		Description:    r.EventDescription,
		TotalSeats:     r.EventTotalSeats,
		AvailableSeats: r.EventAvailableSeats,
		CreatedAt:      r.EventCreatedAt,
		UpdatedAt:      r.EventUpdatedAt,
	}
	return &reservation.WithEvent{
		Reservation: r.reservationRow.toEntity(),
		Event:       ev.toEntity(),
	}
}

// ListByUser はユーザーの予約をイベント情報と結合し、作成日時の新しい順に取得する
func (r *ReservationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*reservation.WithEvent, error) {
	query := r.db.Rebind(`
		SELECT r.id, r.user_id, r.event_id, r.status, r.created_at, r.updated_at,
			e.name AS event_name,
			e.description AS event_description,
			e.total_seats AS event_total_seats,
			e.available_seats AS event_available_seats,
			e.created_at AS event_created_at,
			e.updated_at AS event_updated_at
		FROM reservations r
		JOIN events e ON e.id = r.event_id
		WHERE r.user_id = ?
		ORDER BY r.created_at DESC, r.id
		LIMIT ? OFFSET ?
	`)

	var rows []reservationWithEventRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗しました: %w", err)
	}

	reservations := make([]*reservation.WithEvent, len(rows))
	for i := range rows {
		reservations[i] = rows[i].toEntity()
	}
	return reservations, nil
}

var _ reservation.Registry = (*ReservationRepository)(nil)
