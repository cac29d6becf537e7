package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wedding-planner/internal/model"
)

type saveChartReq struct {
	Tables  []model.Table `json:"tables"`
	Version uint32        `json:"version"`
}

// seatReq is shared by assign, unassign and move.
type seatReq struct {
	TableID    string `json:"tableId"`
	SeatNumber int    `json:"seatNumber"`
	GuestID    string `json:"guestId"`
	Version    uint32 `json:"version"`
}

func (r seatReq) check(needGuest bool) *model.ValidationError {
	switch {
	case r.TableID == "":
		return &model.ValidationError{Code: model.CodeRequired, Field: "tableId", Message: "tableId is required"}
	case r.SeatNumber < 1:
		return &model.ValidationError{Code: model.CodeRequired, Field: "seatNumber", Message: "seatNumber must be at least 1"}
	case needGuest && r.GuestID == "":
		return &model.ValidationError{Code: model.CodeRequired, Field: "guestId", Message: "guestId is required"}
	}
	return nil
}

// GetChart returns the chart with seats of deleted guests filtered out.
func (h *PlanningHandler) GetChart(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	wp, err := h.weddingFor(ctx, c)
	if err != nil {
		return planningError(c, err)
	}
	view, err := wp.LoadChart(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"chart": view.Chart, "orphaned": view.Orphaned, "summary": view.Summary})
}

// SaveChart replaces the chart. A non-zero version makes the write
// conditional.
func (h *PlanningHandler) SaveChart(c echo.Context) error {
	var req saveChartReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, model.CodeInvalidField, "", "invalid body")
	}
	if req.Tables == nil {
		return badRequest(c, model.CodeRequired, "tables", "tables is required")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	wp, err := h.weddingFor(ctx, c)
	if err != nil {
		return planningError(c, err)
	}
	chart, err := wp.SaveChart(ctx, req.Tables, req.Version)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "chart": chart})
}

// AssignSeat seats a guest at tableId/seatNumber.
func (h *PlanningHandler) AssignSeat(c echo.Context) error {
	var req seatReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, model.CodeInvalidField, "", "invalid body")
	}
	if ve := req.check(true); ve != nil {
		return writeError(c, ve)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	wp, err := h.weddingFor(ctx, c)
	if err != nil {
		return planningError(c, err)
	}
	chart, err := wp.AssignSeat(ctx, req.TableID, req.SeatNumber, req.GuestID, req.Version)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "chart": chart})
}

// UnassignSeat frees a seat.
func (h *PlanningHandler) UnassignSeat(c echo.Context) error {
	var req seatReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, model.CodeInvalidField, "", "invalid body")
	}
	if ve := req.check(false); ve != nil {
		return writeError(c, ve)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	wp, err := h.weddingFor(ctx, c)
	if err != nil {
		return planningError(c, err)
	}
	chart, err := wp.UnassignSeat(ctx, req.TableID, req.SeatNumber, req.Version)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "chart": chart})
}

// MoveGuest moves an already seated guest to another seat.
func (h *PlanningHandler) MoveGuest(c echo.Context) error {
	var req seatReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, model.CodeInvalidField, "", "invalid body")
	}
	if ve := req.check(true); ve != nil {
		return writeError(c, ve)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	wp, err := h.weddingFor(ctx, c)
	if err != nil {
		return planningError(c, err)
	}
	chart, err := wp.MoveGuest(ctx, req.GuestID, req.TableID, req.SeatNumber, req.Version)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "chart": chart})
}

// ReconcileChart persists the removal of seats held by deleted guests.
func (h *PlanningHandler) ReconcileChart(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	wp, err := h.weddingFor(ctx, c)
	if err != nil {
		return planningError(c, err)
	}
	chart, orphaned, err := wp.ReconcileChart(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "chart": chart, "orphaned": orphaned})
}

// DeleteChart removes the chart and answers 204.
func (h *PlanningHandler) DeleteChart(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	wp, err := h.weddingFor(ctx, c)
	if err != nil {
		return planningError(c, err)
	}
	if err := wp.DeleteChart(ctx); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
