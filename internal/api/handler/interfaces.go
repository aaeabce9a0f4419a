package handler

import (
	"context"

	"github.com/sanosuguru/go-seat-booking/internal/application"
	"github.com/sanosuguru/go-seat-booking/internal/domain/event"
	"github.com/sanosuguru/go-seat-booking/internal/domain/reservation"
)

// EventServiceInterface はイベントサービスのインターフェース
type EventServiceInterface interface {
	CreateEvent(ctx context.Context, input application.CreateEventInput) (*event.Event, error)
	GetEvent(ctx context.Context, id, userID string) (*application.EventDetail, error)
	ListEvents(ctx context.Context, page, limit int) (*application.EventPage, error)
}

// BookingServiceInterface は予約サービスのインターフェース
type BookingServiceInterface interface {
	Reserve(ctx context.Context, userID, eventID string) (*application.BookingResult, error)
	Cancel(ctx context.Context, userID, eventID string) (*application.BookingResult, error)
	ListUserReservations(ctx context.Context, userID string, limit, offset int) ([]*reservation.WithEvent, error)
}
