package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/wedding-planner/internal/logging"
	"github.com/iliyamo/wedding-planner/internal/model"
	"github.com/iliyamo/wedding-planner/internal/repository"
)

// Error kinds returned in the `kind` field of every error body.
const (
	KindValidation   = "validation_error"
	KindUnauthorized = "unauthorized"
	KindForbidden    = "forbidden"
	KindNotFound     = "not_found"
	KindConflict     = "conflict"
	KindPersistence  = "persistence_error"
)

const requestTimeout = 5 * time.Second

type errorDetail struct {
	Kind       string `json:"kind"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	TableID    string `json:"tableId,omitempty"`
	SeatNumber int    `json:"seatNumber,omitempty"`
	GuestID    string `json:"guestId,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

// requestCtx bounds the storage calls of one request.
func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func fail(c echo.Context, status int, kind, code, message string) error {
	return c.JSON(status, errorBody{Error: errorDetail{Kind: kind, Code: code, Message: message}})
}

func badRequest(c echo.Context, code, field, message string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
		Kind: KindValidation, Code: code, Field: field, Message: message,
	}})
}

// writeError maps service and repository errors onto the HTTP error body.
// Anything unrecognised is a persistence failure: the cause is logged and
// the client only sees a generic message.
func writeError(c echo.Context, err error) error {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		zerolog.Ctx(c.Request().Context()).Debug().Str(logging.CODE, ve.Code).
			Str("field", ve.Field).Msg("request rejected")
		return c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Kind:       KindValidation,
			Code:       ve.Code,
			Message:    ve.Message,
			Field:      ve.Field,
			TableID:    ve.TableID,
			SeatNumber: ve.SeatNumber,
			GuestID:    ve.GuestID,
		}})
	case errors.Is(err, repository.ErrStaleChart):
		return fail(c, http.StatusConflict, KindConflict, "stale_version", err.Error())
	case errors.Is(err, repository.ErrConflict):
		return fail(c, http.StatusConflict, KindConflict, "conflict", err.Error())
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound, KindNotFound, "not_found", err.Error())
	case errors.Is(err, repository.ErrForbidden):
		return fail(c, http.StatusForbidden, KindForbidden, "forbidden", "resource belongs to another wedding")
	}
	zerolog.Ctx(c.Request().Context()).Error().Err(err).
		Str("route", c.Path()).Msg("request failed")
	return fail(c, http.StatusInternalServerError, KindPersistence, "internal", "internal error")
}
