package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-booking/internal/api/middleware"
	"github.com/sanosuguru/go-seat-booking/internal/application"
	"github.com/sanosuguru/go-seat-booking/internal/domain/reservation"
)

type BookingHandler struct {
	service BookingServiceInterface
}

func NewBookingHandler(s BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

type ReservationResponse struct {
	ID        string    `json:"id" example:"7b1c7f0e-2a4b-4d8e-9a55-0c2f3f4d1e21"`
	UserID    string    `json:"user_id" example:"user-123"`
	EventID   string    `json:"event_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Status    string    `json:"status" example:"ACTIVE"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Event は予約一覧でのみ含める
	Event *EventResponse `json:"event,omitempty"`
}

// BookingResponse は予約・取り消し直後の状態
type BookingResponse struct {
	Reservation    *ReservationResponse `json:"reservation"`
	TotalSeats     int                  `json:"total_seats" example:"100"`
	AvailableSeats int                  `json:"available_seats" example:"41"`
	ReservedSeats  int                  `json:"reserved_seats" example:"59"`
}

func toReservationResponse(r *reservation.Reservation) *ReservationResponse {
	return &ReservationResponse{
		ID: r.ID, UserID: r.UserID, EventID: r.EventID,
		Status: string(r.Status), CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func toBookingResponse(r *application.BookingResult) BookingResponse {
	return BookingResponse{
		Reservation:    toReservationResponse(r.Reservation),
		TotalSeats:     r.Seats.Total,
		AvailableSeats: r.Seats.Available,
		ReservedSeats:  r.Seats.Reserved(),
	}
}

// Reserve godoc
// @Summary 座席を予約
// @Description イベントの座席を1つ確保します。取り消し済みの予約は同じIDで有効に戻ります
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param id path string true "イベントID"
// @Success 201 {object} BookingResponse
// @Failure 401 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse "EVENT_NOT_FOUND"
// @Failure 409 {object} api.ErrorResponse "EVENT_FULL / ALREADY_RESERVED"
// @Failure 429 {object} api.ErrorResponse
// @Failure 503 {object} api.ErrorResponse
// @Router /events/{id}/reserve [post]
func (h *BookingHandler) Reserve(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "認証が必要です")
	}

	result, err := h.service.Reserve(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toBookingResponse(result))
}

// Cancel godoc
// @Summary 予約を取り消す
// @Description 有効な予約を取り消し、座席を1つ戻します
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param id path string true "イベントID"
// @Success 200 {object} BookingResponse
// @Failure 401 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse "RESERVATION_NOT_FOUND"
// @Failure 429 {object} api.ErrorResponse
// @Failure 503 {object} api.ErrorResponse
// @Router /events/{id}/reserve [delete]
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "認証が必要です")
	}

	result, err := h.service.Cancel(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(result))
}

// ListMine godoc
// @Summary 自分の予約一覧
// @Description 予約した日時の新しい順に、自分の予約をイベント情報付きで返します（取り消し済みを含む）
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param limit query int false "取得件数（最大100）" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} ReservationResponse
// @Failure 400 {object} api.ErrorResponse "INVALID_PAGINATION_PARAMS"
// @Failure 401 {object} api.ErrorResponse
// @Router /me/reservations [get]
func (h *BookingHandler) ListMine(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "認証が必要です")
	}
	limit, err := queryInt(c, "limit", application.DefaultPageLimit)
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return err
	}
	if err := application.ValidateLimitOffset(limit, offset); err != nil {
		return err
	}

	reservations, err := h.service.ListUserReservations(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return err
	}

	responses := make([]*ReservationResponse, len(reservations))
	for i, r := range reservations {
		responses[i] = toReservationResponse(r.Reservation)
		if r.Event != nil {
			responses[i].Event = toEventResponse(r.Event)
		}
	}
	return c.JSON(http.StatusOK, responses)
}
