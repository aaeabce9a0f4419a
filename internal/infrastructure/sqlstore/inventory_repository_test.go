package sqlstore

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-seat-booking/internal/domain/event"
	"github.com/sanosuguru/go-seat-booking/internal/domain/seat"
	"github.com/sanosuguru/go-seat-booking/internal/domain/transaction"
)

// fakeTx は sqlstore 以外のトランザクション実装
type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

func TestInventoryRepository_TryDecrement(t *testing.T) {
	db := newTestDB(t)
	inv := NewInventoryRepository(db)
	txm := NewTxManager(db, nil)
	ctx := context.Background()
	eventID := createEvent(t, db, "小規模ライブ", 2, baseTime)

	decrement := func() (seat.Counter, bool) {
		tx, err := txm.Begin(ctx)
		require.NoError(t, err)
		c, ok, err := inv.TryDecrement(ctx, tx, eventID, baseTime)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		return c, ok
	}

	c, ok := decrement()
	assert.True(t, ok)
	assert.Equal(t, seat.Counter{EventID: eventID, Total: 2, Available: 1}, c)

	c, ok = decrement()
	assert.True(t, ok)
	assert.Equal(t, 0, c.Available)

	t.Run("満席ならfalse", func(t *testing.T) {
		_, ok := decrement()
		assert.False(t, ok)

		got, err := inv.Get(ctx, eventID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Available)
	})

	t.Run("存在しないイベントはfalse", func(t *testing.T) {
		tx, err := txm.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback()

		_, ok, err := inv.TryDecrement(ctx, tx, uuid.NewString(), baseTime)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = inv.TryDecrement(ctx, tx, "bad-id", baseTime)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("トランザクションなしはエラー", func(t *testing.T) {
		_, _, err := inv.TryDecrement(ctx, fakeTx{}, eventID, baseTime)
		assert.ErrorIs(t, err, errTxRequired)
	})
}

func TestInventoryRepository_TryDecrement_RollbackRestores(t *testing.T) {
	db := newTestDB(t)
	inv := NewInventoryRepository(db)
	txm := NewTxManager(db, nil)
	ctx := context.Background()
	eventID := createEvent(t, db, "ロールバック", 3, baseTime)

	tx, err := txm.Begin(ctx)
	require.NoError(t, err)
	_, ok, err := inv.TryDecrement(ctx, tx, eventID, baseTime)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, tx.Rollback())

	got, err := inv.Get(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Available)
}

func TestInventoryRepository_TryDecrement_Concurrent(t *testing.T) {
	db := newTestDB(t)
	inv := NewInventoryRepository(db)
	txm := NewTxManager(db, nil)
	ctx := context.Background()

	const seats, attempts = 5, 20
	eventID := createEvent(t, db, "同時確保", seats, baseTime)

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := txm.Begin(ctx)
			if err != nil {
				return
			}
			_, ok, err := inv.TryDecrement(ctx, tx, eventID, baseTime)
			if err != nil || !ok {
				tx.Rollback()
				return
			}
			if tx.Commit() == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(seats), succeeded.Load())
	got, err := inv.Get(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Available)
}

func TestInventoryRepository_Increment(t *testing.T) {
	db := newTestDB(t)
	inv := NewInventoryRepository(db)
	txm := NewTxManager(db, nil)
	ctx := context.Background()
	eventID := createEvent(t, db, "返却", 2, baseTime)

	withTx := func(fn func(tx transaction.Tx) error) error {
		tx, err := txm.Begin(ctx)
		require.NoError(t, err)
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	}

	t.Run("確保した席を返却できる", func(t *testing.T) {
		require.NoError(t, withTx(func(tx transaction.Tx) error {
			_, _, err := inv.TryDecrement(ctx, tx, eventID, baseTime)
			return err
		}))

		var c seat.Counter
		require.NoError(t, withTx(func(tx transaction.Tx) error {
			var err error
			c, err = inv.Increment(ctx, tx, eventID, baseTime)
			return err
		}))
		assert.Equal(t, 2, c.Available)
	})

	t.Run("総座席数を超える返却は制約違反", func(t *testing.T) {
		err := withTx(func(tx transaction.Tx) error {
			_, err := inv.Increment(ctx, tx, eventID, baseTime)
			return err
		})
		assert.ErrorIs(t, err, seat.ErrCounterOutOfRange)

		got, err := inv.Get(ctx, eventID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Available)
	})

	t.Run("存在しないイベント", func(t *testing.T) {
		err := withTx(func(tx transaction.Tx) error {
			_, err := inv.Increment(ctx, tx, uuid.NewString(), baseTime)
			return err
		})
		assert.ErrorIs(t, err, event.ErrEventNotFound)
	})
}

func TestInventoryRepository_Lock(t *testing.T) {
	db := newTestDB(t)
	inv := NewInventoryRepository(db)
	txm := NewTxManager(db, nil)
	ctx := context.Background()
	eventID := createEvent(t, db, "ロック", 2, baseTime)

	tx, err := txm.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	t.Run("存在するイベント", func(t *testing.T) {
		assert.NoError(t, inv.Lock(ctx, tx, eventID))
	})

	t.Run("存在しないイベント", func(t *testing.T) {
		assert.ErrorIs(t, inv.Lock(ctx, tx, uuid.NewString()), event.ErrEventNotFound)
		assert.ErrorIs(t, inv.Lock(ctx, tx, "bad-id"), event.ErrEventNotFound)
	})

	t.Run("トランザクションなしはエラー", func(t *testing.T) {
		assert.ErrorIs(t, inv.Lock(ctx, fakeTx{}, eventID), errTxRequired)
	})
}

func TestInventoryRepository_Get_NotFound(t *testing.T) {
	db := newTestDB(t)
	inv := NewInventoryRepository(db)

	_, err := inv.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, event.ErrEventNotFound)
}

func TestInventoryRepository_Snapshots(t *testing.T) {
	db := newTestDB(t)
	inv := NewInventoryRepository(db)
	reg := NewReservationRepository(db)
	txm := NewTxManager(db, nil)
	ctx := context.Background()

	eventID := createEvent(t, db, "監査対象", 3, baseTime)
	createEvent(t, db, "予約なし", 1, baseTime)

	for _, user := range []string{"alice", "bob"} {
		tx, err := txm.Begin(ctx)
		require.NoError(t, err)
		_, ok, err := inv.TryDecrement(ctx, tx, eventID, baseTime)
		require.NoError(t, err)
		require.True(t, ok)
		_, err = reg.ActivateOrCreate(ctx, tx, user, eventID, baseTime)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
	}

	snapshots, err := inv.Snapshots(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	for _, s := range snapshots {
		assert.True(t, s.Balanced(), "event %s drift %d", s.EventID, s.Drift())
		if s.EventID == eventID {
			assert.Equal(t, 2, s.ActiveReservations)
			assert.Equal(t, 1, s.Available)
		}
	}

	t.Run("カウンタがずれていれば検出できる", func(t *testing.T) {
		_, err := db.Exec(db.Rebind(`UPDATE events SET available_seats = 3 WHERE id = ?`), eventID)
		require.NoError(t, err)

		snapshots, err := inv.Snapshots(ctx, 10, 0)
		require.NoError(t, err)
		for _, s := range snapshots {
			if s.EventID == eventID {
				assert.False(t, s.Balanced())
				assert.Equal(t, 2, s.Drift())
			}
		}
	})

	t.Run("ページング", func(t *testing.T) {
		page, err := inv.Snapshots(ctx, 1, 1)
		require.NoError(t, err)
		assert.Len(t, page, 1)
	})
}

func TestTxOptionsForDriver(t *testing.T) {
	t.Run("SQLiteは常にnil", func(t *testing.T) {
		cfg := sqliteConfig("serializable")
		assert.Nil(t, TxOptions(cfg))
	})

	t.Run("PostgreSQLは設定に従う", func(t *testing.T) {
		cfg := sqliteConfig("serializable")
		cfg.Driver = "postgres"
		opts := TxOptions(cfg)
		require.NotNil(t, opts)
		assert.Equal(t, sql.LevelSerializable, opts.Isolation)
	})
}
