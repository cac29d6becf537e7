package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wedding-planner/internal/model"
	"github.com/iliyamo/wedding-planner/internal/repository"
)

// UserFinder loads users by id.
type UserFinder interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// ProfileHandler serves public user profiles. Responses are cached by the
// Redis cache middleware.
type ProfileHandler struct {
	Users UserFinder
}

func NewProfileHandler(u UserFinder) *ProfileHandler { return &ProfileHandler{Users: u} }

func (h *ProfileHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return badRequest(c, model.CodeInvalidField, "id", "id must be a positive integer")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if !u.IsActive {
		return writeError(c, repository.ErrUserNotFound)
	}
	return c.JSON(http.StatusOK, echo.Map{"profile": u.Profile()})
}
