package application

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sanosuguru/go-seat-booking/internal/domain/event"
	"github.com/sanosuguru/go-seat-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-booking/internal/pkg/clock"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ErrInvalidPagination はページングパラメータが範囲外のとき返す
var ErrInvalidPagination = errors.New("ページングパラメータが不正です")

// ValidatePage は page >= 1, 1 <= limit <= MaxPageLimit を検証する
// (page-1)*limit が int に収まらない page も拒否する
func ValidatePage(page, limit int) error {
	if err := validateLimit(limit); err != nil {
		return err
	}
	if page < 1 || page > math.MaxInt/limit {
		return fmt.Errorf("page=%d: %w", page, ErrInvalidPagination)
	}
	return nil
}

// ValidateLimitOffset は 1 <= limit <= MaxPageLimit, offset >= 0 を検証する
func ValidateLimitOffset(limit, offset int) error {
	if err := validateLimit(limit); err != nil {
		return err
	}
	if offset < 0 {
		return fmt.Errorf("offset=%d: %w", offset, ErrInvalidPagination)
	}
	return nil
}

func validateLimit(limit int) error {
	if limit < 1 || limit > MaxPageLimit {
		return fmt.Errorf("limit=%d: %w", limit, ErrInvalidPagination)
	}
	return nil
}

type EventService struct {
	eventRepo event.Repository
	registry  reservation.Registry
	clock     clock.Clock
}

func NewEventService(eventRepo event.Repository, registry reservation.Registry, c clock.Clock) *EventService {
	if c == nil {
		c = clock.NewSystem()
	}
	return &EventService{eventRepo: eventRepo, registry: registry, clock: c}
}

type CreateEventInput struct {
	Name        string
	Description string
	TotalSeats  int
}

// CreateEvent はイベントを作成する。空席数は総座席数から始まる
func (s *EventService) CreateEvent(ctx context.Context, input CreateEventInput) (*event.Event, error) {
	e := event.NewEvent(input.Name, input.Description, input.TotalSeats, s.clock.Now())
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if err := s.eventRepo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("イベント作成に失敗しました: %w", err)
	}
	return e, nil
}

// EventDetail はイベントと、閲覧ユーザーの ACTIVE な予約（あれば）
type EventDetail struct {
	Event       *event.Event
	Reservation *reservation.Reservation
}

// GetEvent はイベントを取得する。userID が空でなければそのユーザーの予約も添える
func (s *EventService) GetEvent(ctx context.Context, id, userID string) (*EventDetail, error) {
	e, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &EventDetail{Event: e}
	if userID == "" || s.registry == nil {
		return detail, nil
	}

	res, err := s.registry.Get(ctx, userID, id)
	switch {
	case err == nil && res.IsActive():
		detail.Reservation = res
	case err != nil && !errors.Is(err, reservation.ErrReservationNotFound):
		return nil, fmt.Errorf("予約取得に失敗しました: %w", err)
	}
	return detail, nil
}

// EventPage はイベント一覧の1ページ
type EventPage struct {
	Events     []*event.Event
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// ListEvents は page（1始まり）と limit でイベント一覧を返す
// 範囲外の値は補正せず ErrInvalidPagination を返す
func (s *EventService) ListEvents(ctx context.Context, page, limit int) (*EventPage, error) {
	if err := ValidatePage(page, limit); err != nil {
		return nil, err
	}

	events, err := s.eventRepo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	total, err := s.eventRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &EventPage{
		Events:     events,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}
