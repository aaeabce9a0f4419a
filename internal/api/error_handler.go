package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-booking/internal/application"
	"github.com/sanosuguru/go-seat-booking/internal/domain/event"
	"github.com/sanosuguru/go-seat-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-booking/internal/domain/seat"
	"github.com/sanosuguru/go-seat-booking/internal/domain/transaction"
	"github.com/sanosuguru/go-seat-booking/internal/pkg/logger"
)

// クライアントが分岐に使う理由コード
const (
	ReasonEventFull           = "EVENT_FULL"
	ReasonAlreadyReserved     = "ALREADY_RESERVED"
	ReasonEventNotFound       = "EVENT_NOT_FOUND"
	ReasonReservationNotFound = "RESERVATION_NOT_FOUND"
	ReasonInvalidRequest      = "INVALID_REQUEST"
	ReasonInvalidPagination   = "INVALID_PAGINATION_PARAMS"
	ReasonTransient           = "TEMPORARILY_UNAVAILABLE"
	ReasonInternal            = "INTERNAL_ERROR"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type domainError struct {
	target  error
	code    int
	reason  string
	message string
}

var domainErrors = []domainError{
	{event.ErrEventNotFound, http.StatusNotFound, ReasonEventNotFound, ""},
	{reservation.ErrReservationNotFound, http.StatusNotFound, ReasonReservationNotFound, ""},
	{seat.ErrEventFull, http.StatusConflict, ReasonEventFull, ""},
	{reservation.ErrAlreadyReserved, http.StatusConflict, ReasonAlreadyReserved, ""},
	{transaction.ErrTransient, http.StatusServiceUnavailable, ReasonTransient, "一時的に処理できません。再試行してください"},
	{event.ErrEventNameRequired, http.StatusBadRequest, ReasonInvalidRequest, ""},
	{event.ErrInvalidTotalSeats, http.StatusBadRequest, ReasonInvalidRequest, ""},
	{event.ErrInvalidAvailableSeats, http.StatusBadRequest, ReasonInvalidRequest, ""},
	{reservation.ErrUserIDRequired, http.StatusBadRequest, ReasonInvalidRequest, ""},
	{reservation.ErrEventIDRequired, http.StatusBadRequest, ReasonInvalidRequest, ""},
	{application.ErrInvalidPagination, http.StatusBadRequest, ReasonInvalidPagination, ""},
}

// ResolveError はエラーを HTTP ステータス・メッセージ・理由コードに変換する
func ResolveError(err error) (int, string, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			message = m
		}
		return he.Code, message, reasonForStatus(he.Code)
	}

	for _, d := range domainErrors {
		if errors.Is(err, d.target) {
			message := d.message
			if message == "" {
				message = d.target.Error()
			}
			return d.code, message, d.reason
		}
	}
	return http.StatusInternalServerError, "内部サーバーエラー", ReasonInternal
}

func reasonForStatus(code int) string {
	switch {
	case code == http.StatusNotFound:
		return "NOT_FOUND"
	case code == http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case code == http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case code >= 500:
		return ReasonInternal
	case code >= 400:
		return ReasonInvalidRequest
	}
	return ""
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, message, reason := ResolveError(err)

	// 5xx のみエラーログ
	if code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if err := c.JSON(code, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: reason,
	}); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}
