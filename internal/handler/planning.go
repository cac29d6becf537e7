package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wedding-planner/internal/middleware"
	"github.com/iliyamo/wedding-planner/internal/model"
	"github.com/iliyamo/wedding-planner/internal/service"
)

// WeddingFinder resolves the wedding owned by the caller.
type WeddingFinder interface {
	GetByOwner(ctx context.Context, userID uint64) (*model.Wedding, error)
}

// PlanningHandler serves the guest roster and seating chart endpoints.
// Each request is bound to the caller's own wedding.
type PlanningHandler struct {
	Planning *service.Planning
	Weddings WeddingFinder
}

func NewPlanningHandler(p *service.Planning, w WeddingFinder) *PlanningHandler {
	return &PlanningHandler{Planning: p, Weddings: w}
}

// errNoUser is returned when the JWT middleware did not run for a route.
var errNoUser = errors.New("no authenticated user")

// weddingFor resolves the caller's wedding. A caller without one gets
// repository.ErrWeddingNotFound.
func (h *PlanningHandler) weddingFor(ctx context.Context, c echo.Context) (*service.WeddingPlanning, error) {
	uid, ok := middleware.UserID(c)
	if !ok {
		return nil, errNoUser
	}
	w, err := h.Weddings.GetByOwner(ctx, uid)
	if err != nil {
		return nil, err
	}
	return h.Planning.ForWedding(w.ID).As(uid), nil
}

// planningError writes err, treating a missing user as 401.
func planningError(c echo.Context, err error) error {
	if errors.Is(err, errNoUser) {
		return fail(c, http.StatusUnauthorized, KindUnauthorized, "missing_user", "authentication required")
	}
	return writeError(c, err)
}
