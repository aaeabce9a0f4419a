package application

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-seat-booking/internal/domain/event"
	"github.com/sanosuguru/go-seat-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-booking/internal/domain/seat"
	"github.com/sanosuguru/go-seat-booking/internal/domain/transaction"
)

// === Mock implementations ===

// MockTxManager implements transaction.Manager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

// MockTx implements transaction.Tx
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// MockInventory implements seat.Inventory
type MockInventory struct {
	mock.Mock
}

func (m *MockInventory) TryDecrement(ctx context.Context, tx transaction.Tx, eventID string, now time.Time) (seat.Counter, bool, error) {
	args := m.Called(ctx, tx, eventID, now)
	return args.Get(0).(seat.Counter), args.Bool(1), args.Error(2)
}

func (m *MockInventory) Increment(ctx context.Context, tx transaction.Tx, eventID string, now time.Time) (seat.Counter, error) {
	args := m.Called(ctx, tx, eventID, now)
	return args.Get(0).(seat.Counter), args.Error(1)
}

func (m *MockInventory) Lock(ctx context.Context, tx transaction.Tx, eventID string) error {
	args := m.Called(ctx, tx, eventID)
	return args.Error(0)
}

func (m *MockInventory) Get(ctx context.Context, eventID string) (seat.Counter, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(seat.Counter), args.Error(1)
}

func (m *MockInventory) Snapshots(ctx context.Context, limit, offset int) ([]seat.Snapshot, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]seat.Snapshot), args.Error(1)
}

// MockRegistry implements reservation.Registry
type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) Get(ctx context.Context, userID, eventID string) (*reservation.Reservation, error) {
	args := m.Called(ctx, userID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockRegistry) ActivateOrCreate(ctx context.Context, tx transaction.Tx, userID, eventID string, now time.Time) (*reservation.Reservation, error) {
	args := m.Called(ctx, tx, userID, eventID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockRegistry) Deactivate(ctx context.Context, tx transaction.Tx, userID, eventID string, now time.Time) (*reservation.Reservation, error) {
	args := m.Called(ctx, tx, userID, eventID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockRegistry) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*reservation.WithEvent, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.WithEvent), args.Error(1)
}

// MockEventRepository implements event.Repository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, e *event.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEventRepository) GetByID(ctx context.Context, id string) (*event.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventRepository) List(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *MockEventRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockNotifier implements reservation.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n reservation.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
