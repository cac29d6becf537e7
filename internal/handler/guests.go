package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wedding-planner/internal/importer"
	"github.com/iliyamo/wedding-planner/internal/model"
	"github.com/iliyamo/wedding-planner/internal/repository"
	"github.com/iliyamo/wedding-planner/internal/service"
)

const (
	maxGuestBody   = 1 << 20
	maxImportBytes = 5 << 20
	xlsxMIME       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ListGuests returns the caller's roster. A caller without a wedding gets
// an empty list rather than an error.
func (h *PlanningHandler) ListGuests(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	wp, err := h.weddingFor(ctx, c)
	if errors.Is(err, repository.ErrWeddingNotFound) {
		return c.JSON(http.StatusOK, echo.Map{"guests": []model.Guest{}, "weddingId": nil})
	}
	if err != nil {
		return planningError(c, err)
	}
	guests, err := wp.ListGuests(ctx)
	if err != nil {
		return writeError(c, err)
	}
	if guests == nil {
		guests = []model.Guest{}
	}
	return c.JSON(http.StatusOK, echo.Map{"guests": guests, "weddingId": wp.WeddingID()})
}

// PostGuests executes one roster command selected by `intent`.
func (h *PlanningHandler) PostGuests(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxGuestBody))
	if err != nil {
		return badRequest(c, model.CodeInvalidField, "", "could not read request body")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	wp, err := h.weddingFor(ctx, c)
	if err != nil {
		return planningError(c, err)
	}
	cmd, err := service.DecodeGuestCommand(body)
	if err != nil {
		return writeError(c, err)
	}
	res, err := wp.Dispatch(ctx, cmd)
	if err != nil {
		return writeError(c, err)
	}

	switch cmd.(type) {
	case service.CreateGuestCommand:
		return c.JSON(http.StatusCreated, echo.Map{"success": true, "guest": res.Guest})
	case service.UpdateGuestCommand:
		return c.JSON(http.StatusOK, echo.Map{"success": true, "guest": res.Guest})
	case service.BulkImportCommand:
		return c.JSON(http.StatusCreated, echo.Map{"success": true, "guests": nonNil(res.Guests)})
	default:
		return c.JSON(http.StatusOK, echo.Map{"success": true})
	}
}

type rsvpReq struct {
	Status string `json:"status"`
}

// SetRSVP handles PATCH /guests/:id/rsvp.
func (h *PlanningHandler) SetRSVP(c echo.Context) error {
	var req rsvpReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, model.CodeInvalidField, "", "invalid body")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	wp, err := h.weddingFor(ctx, c)
	if err != nil {
		return planningError(c, err)
	}
	g, err := wp.SetRSVP(ctx, c.Param("id"), req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "guest": g})
}

// ImportGuests bulk-creates guests from an uploaded xlsx sheet. Either
// every row is created or none.
func (h *PlanningHandler) ImportGuests(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, model.CodeRequired, "file", "multipart field \"file\" is required")
	}
	if fh.Size > maxImportBytes {
		return badRequest(c, model.CodeInvalidField, "file", "file is too large")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, model.CodeInvalidField, "file", "could not open upload")
	}
	defer f.Close()

	inputs, err := importer.Parse(f)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	wp, err := h.weddingFor(ctx, c)
	if err != nil {
		return planningError(c, err)
	}
	guests, err := wp.BulkImport(ctx, inputs)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "guests": nonNil(guests), "count": len(guests)})
}

// ExportGuests streams the roster as an xlsx attachment.
func (h *PlanningHandler) ExportGuests(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	wp, err := h.weddingFor(ctx, c)
	if err != nil {
		return planningError(c, err)
	}
	guests, err := wp.ListGuests(ctx)
	if err != nil {
		return writeError(c, err)
	}
	data, err := importer.Export(guests)
	if err != nil {
		return writeError(c, err)
	}
	name := "guests-" + strconv.FormatUint(wp.WeddingID(), 10) + "-" + time.Now().UTC().Format("20060102") + ".xlsx"
	return attachment(c, name, data)
}

// GuestTemplate returns an empty sheet with the import header row.
func (h *PlanningHandler) GuestTemplate(c echo.Context) error {
	data, err := importer.Template()
	if err != nil {
		return writeError(c, err)
	}
	return attachment(c, "guests-template.xlsx", data)
}

func attachment(c echo.Context, name string, data []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, xlsxMIME, data)
}

func nonNil(gs []model.Guest) []model.Guest {
	if gs == nil {
		return []model.Guest{}
	}
	return gs
}
