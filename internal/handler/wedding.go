package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wedding-planner/internal/middleware"
	"github.com/iliyamo/wedding-planner/internal/model"
)

// WeddingStore is the wedding persistence used by WeddingHandler.
type WeddingStore interface {
	WeddingFinder
	Create(ctx context.Context, w *model.Wedding) error
}

type WeddingHandler struct {
	Weddings WeddingStore
}

func NewWeddingHandler(w WeddingStore) *WeddingHandler {
	return &WeddingHandler{Weddings: w}
}

type createWeddingReq struct {
	Name      string `json:"name"`
	EventDate string `json:"event_date"` // YYYY-MM-DD, optional
}

// Get returns the caller's wedding.
func (h *WeddingHandler) Get(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, KindUnauthorized, "missing_user", "authentication required")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	w, err := h.Weddings.GetByOwner(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"wedding": w})
}

// Create opens a wedding for the caller. Each user owns at most one.
func (h *WeddingHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, KindUnauthorized, "missing_user", "authentication required")
	}
	var req createWeddingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, model.CodeInvalidField, "", "invalid body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return badRequest(c, model.CodeRequired, "name", "name is required")
	}
	if err := model.CheckLength("name", name, model.MaxWeddingNameLen); err != nil {
		return writeError(c, err)
	}
	w := &model.Wedding{OwnerUserID: uid, Name: name}
	if d := strings.TrimSpace(req.EventDate); d != "" {
		t, err := time.Parse(time.DateOnly, d)
		if err != nil {
			return badRequest(c, model.CodeInvalidField, "event_date", "event_date must be YYYY-MM-DD")
		}
		w.EventDate = &t
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Weddings.Create(ctx, w); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"wedding": w})
}
