package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-booking/internal/api/middleware"
	"github.com/sanosuguru/go-seat-booking/internal/application"
	"github.com/sanosuguru/go-seat-booking/internal/domain/event"
)

type EventHandler struct {
	eventService EventServiceInterface
}

func NewEventHandler(eventService EventServiceInterface) *EventHandler {
	return &EventHandler{eventService: eventService}
}

type CreateEventRequest struct {
	Name        string `json:"name" validate:"required,max=255" example:"Tech Conference 2026"`
	Description string `json:"description" example:"AI とクラウドの年次カンファレンス"`
	TotalSeats  int    `json:"total_seats" validate:"gte=0" example:"100"`
}

type EventResponse struct {
	ID             string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name           string `json:"name" example:"Tech Conference 2026"`
	Description    string `json:"description" example:"AI とクラウドの年次カンファレンス"`
	TotalSeats     int    `json:"total_seats" example:"100"`
	AvailableSeats int    `json:"available_seats" example:"42"`
	CreatedAt      string `json:"created_at" example:"2026-01-10T10:00:00+09:00"`
	UpdatedAt      string `json:"updated_at" example:"2026-01-10T10:00:00+09:00"`
}

// EventDetailResponse はイベント詳細。認証済みなら自分の有効な予約も含む
type EventDetailResponse struct {
	*EventResponse
	Reservation *ReservationResponse `json:"reservation"`
}

type EventListResponse struct {
	Events     []*EventResponse `json:"events"`
	Total      int              `json:"total" example:"57"`
	Page       int              `json:"page" example:"1"`
	Limit      int              `json:"limit" example:"20"`
	TotalPages int              `json:"total_pages" example:"3"`
}

func toEventResponse(e *event.Event) *EventResponse {
	return &EventResponse{
		ID:             e.ID,
		Name:           e.Name,
		Description:    e.Description,
		TotalSeats:     e.TotalSeats,
		AvailableSeats: e.AvailableSeats,
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      e.UpdatedAt.Format(time.RFC3339),
	}
}

// Create godoc
// @Summary イベントを作成
// @Description 新しいイベントを作成します。空席数は総座席数から始まります
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateEventRequest true "イベント情報"
// @Success 201 {object} EventResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 401 {object} api.ErrorResponse
// @Router /events [post]
func (h *EventHandler) Create(c echo.Context) error {
	var req CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	e, err := h.eventService.CreateEvent(c.Request().Context(), application.CreateEventInput{
		Name:        req.Name,
		Description: req.Description,
		TotalSeats:  req.TotalSeats,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toEventResponse(e))
}

// GetByID godoc
// @Summary イベントを取得
// @Description 指定IDのイベントと空席数を取得します。トークンがあれば自分の有効な予約も返します
// @Tags events
// @Produce json
// @Param id path string true "イベントID"
// @Success 200 {object} EventDetailResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id} [get]
func (h *EventHandler) GetByID(c echo.Context) error {
	detail, err := h.eventService.GetEvent(c.Request().Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		return err
	}

	resp := EventDetailResponse{EventResponse: toEventResponse(detail.Event)}
	if detail.Reservation != nil {
		resp.Reservation = toReservationResponse(detail.Reservation)
	}
	return c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary イベント一覧を取得
// @Description 作成日時の新しい順にイベントを返します
// @Tags events
// @Produce json
// @Param page query int false "ページ番号（1始まり）" default(1)
// @Param limit query int false "1ページの件数（最大100）" default(20)
// @Success 200 {object} EventListResponse
// @Failure 400 {object} api.ErrorResponse "INVALID_PAGINATION_PARAMS"
// @Router /events [get]
func (h *EventHandler) List(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", application.DefaultPageLimit)
	if err != nil {
		return err
	}
	if err := application.ValidatePage(page, limit); err != nil {
		return err
	}

	result, err := h.eventService.ListEvents(c.Request().Context(), page, limit)
	if err != nil {
		return err
	}

	responses := make([]*EventResponse, len(result.Events))
	for i, e := range result.Events {
		responses[i] = toEventResponse(e)
	}
	return c.JSON(http.StatusOK, EventListResponse{
		Events:     responses,
		Total:      result.Total,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalPages: result.TotalPages,
	})
}

// queryInt は整数のクエリパラメータを読む。未指定なら def を返す
func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", name, raw, application.ErrInvalidPagination)
	}
	return v, nil
}
