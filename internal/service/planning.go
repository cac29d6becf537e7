// Package service holds the planning use cases. A Planning value is built
// once at startup; ForWedding binds it to one wedding for the duration of a
// request, so no mutable state is shared between requests.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/wedding-planner/internal/logging"
	"github.com/iliyamo/wedding-planner/internal/metrics"
	"github.com/iliyamo/wedding-planner/internal/model"
	"github.com/iliyamo/wedding-planner/internal/planner"
	"github.com/iliyamo/wedding-planner/internal/queue"
	"github.com/iliyamo/wedding-planner/internal/repository"
)

// GuestStore is the roster persistence used by the service.
type GuestStore interface {
	Create(ctx context.Context, weddingID uint64, in model.GuestInput) (*model.Guest, error)
	BulkCreate(ctx context.Context, weddingID uint64, inputs []model.GuestInput) ([]model.Guest, error)
	GetByID(ctx context.Context, id string) (*model.Guest, error)
	ListByWedding(ctx context.Context, weddingID uint64) ([]model.Guest, error)
	Update(ctx context.Context, id string, p model.GuestPatch) (*model.Guest, error)
	SetRSVP(ctx context.Context, id string, status model.RSVPStatus) (*model.Guest, error)
	Delete(ctx context.Context, id string) error
}

// SeatingChartStore is the seating document persistence used by the service.
type SeatingChartStore interface {
	LoadByWedding(ctx context.Context, weddingID uint64) (*model.SeatingChart, error)
	Upsert(ctx context.Context, weddingID uint64, tables []model.Table, expectedVersion uint32) (*model.SeatingChart, error)
	Delete(ctx context.Context, id string) error
}

// Deps are the collaborators of Planning. Events, Metrics and Log may be
// left zero.
type Deps struct {
	Guests  GuestStore
	Charts  SeatingChartStore
	Events  EventPublisher
	Metrics *metrics.Metrics
	Log     zerolog.Logger
}

const publishTimeout = 3 * time.Second

// Planning holds the shared collaborators; per-request work goes through
// ForWedding.
type Planning struct {
	deps Deps
}

// NewPlanning builds a Planning. A nil Events publisher discards events.
func NewPlanning(d Deps) *Planning {
	if d.Events == nil {
		d.Events = NopPublisher{}
	}
	return &Planning{deps: d}
}

// ForWedding returns the planning operations of one wedding.
func (p *Planning) ForWedding(weddingID uint64) *WeddingPlanning {
	return &WeddingPlanning{
		Deps:      p.deps,
		weddingID: weddingID,
		log:       p.deps.Log.With().Uint64(logging.WEDDING, weddingID).Logger(),
	}
}

// WeddingPlanning is bound to one wedding and optionally to the acting user,
// who is recorded on published events.
type WeddingPlanning struct {
	Deps
	weddingID uint64
	actorID   uint64
	log       zerolog.Logger
}

// As returns a copy attributed to userID.
func (w *WeddingPlanning) As(userID uint64) *WeddingPlanning {
	c := *w
	c.actorID = userID
	c.log = w.log.With().Uint64(logging.USER, userID).Logger()
	return &c
}

// WeddingID is the wedding this value is bound to.
func (w *WeddingPlanning) WeddingID() uint64 { return w.weddingID }

// ChartView is a loaded chart after in-memory reconciliation.
type ChartView struct {
	Chart    *model.SeatingChart
	Orphaned int
	Summary  planner.Summary
}

// GuestResult is the outcome of a dispatched GuestCommand.
type GuestResult struct {
	Guest   *model.Guest
	Guests  []model.Guest
	Created bool
}

// Dispatch executes one roster command.
func (w *WeddingPlanning) Dispatch(ctx context.Context, cmd GuestCommand) (GuestResult, error) {
	switch c := cmd.(type) {
	case CreateGuestCommand:
		g, err := w.CreateGuest(ctx, c.Guest)
		return GuestResult{Guest: g, Created: true}, err
	case UpdateGuestCommand:
		g, err := w.UpdateGuest(ctx, c.GuestID, c.Patch)
		return GuestResult{Guest: g}, err
	case DeleteGuestCommand:
		return GuestResult{}, w.DeleteGuest(ctx, c.GuestID)
	case BulkImportCommand:
		gs, err := w.BulkImport(ctx, c.Guests)
		return GuestResult{Guests: gs, Created: true}, err
	default:
		return GuestResult{}, fmt.Errorf("unsupported guest command %T", cmd)
	}
}

func (w *WeddingPlanning) ListGuests(ctx context.Context) ([]model.Guest, error) {
	return w.Guests.ListByWedding(ctx, w.weddingID)
}

func (w *WeddingPlanning) CreateGuest(ctx context.Context, in model.GuestInput) (*model.Guest, error) {
	g, err := w.Guests.Create(ctx, w.weddingID, in)
	w.Metrics.Operation("guest.create", err)
	if err != nil {
		return nil, err
	}
	w.publish(ctx, queue.GuestCreated, func(ev *queue.PlanningEvent) { ev.GuestIDs = []string{g.ID} })
	return g, nil
}

// UpdateGuest merges patch into a guest of this wedding. A rename also
// refreshes the cached label in the chart, best effort.
func (w *WeddingPlanning) UpdateGuest(ctx context.Context, guestID string, patch model.GuestPatch) (*model.Guest, error) {
	before, err := w.ownGuest(ctx, guestID)
	if err != nil {
		return nil, err
	}
	g, err := w.Guests.Update(ctx, guestID, patch)
	w.Metrics.Operation("guest.update", err)
	if err != nil {
		return nil, err
	}
	if g.Name != before.Name {
		w.refreshGuestLabel(ctx, g.ID, g.Name)
	}
	w.publish(ctx, queue.GuestUpdated, func(ev *queue.PlanningEvent) { ev.GuestIDs = []string{g.ID} })
	return g, nil
}

// SetRSVP moves a guest to any of the three statuses.
func (w *WeddingPlanning) SetRSVP(ctx context.Context, guestID, status string) (*model.Guest, error) {
	if strings.TrimSpace(status) == "" {
		return nil, &model.ValidationError{Code: model.CodeRequired, Field: "status", Message: "status is required"}
	}
	s, err := model.ParseRSVPStatus(status)
	if err != nil {
		return nil, err
	}
	if _, err := w.ownGuest(ctx, guestID); err != nil {
		return nil, err
	}
	g, err := w.Guests.SetRSVP(ctx, guestID, s)
	w.Metrics.Operation("guest.rsvp", err)
	if err != nil {
		return nil, err
	}
	w.publish(ctx, queue.GuestUpdated, func(ev *queue.PlanningEvent) { ev.GuestIDs = []string{g.ID} })
	return g, nil
}

// DeleteGuest removes a guest and then sweeps their seat out of the chart.
// A failing sweep is logged; the seat is repaired on the next load.
func (w *WeddingPlanning) DeleteGuest(ctx context.Context, guestID string) error {
	if _, err := w.ownGuest(ctx, guestID); err != nil {
		return err
	}
	err := w.Guests.Delete(ctx, guestID)
	w.Metrics.Operation("guest.delete", err)
	if err != nil {
		return err
	}
	w.unseatDeletedGuest(ctx, guestID)
	w.publish(ctx, queue.GuestDeleted, func(ev *queue.PlanningEvent) { ev.GuestIDs = []string{guestID} })
	return nil
}

// BulkImport creates all guests or none.
func (w *WeddingPlanning) BulkImport(ctx context.Context, inputs []model.GuestInput) ([]model.Guest, error) {
	gs, err := w.Guests.BulkCreate(ctx, w.weddingID, inputs)
	w.Metrics.Operation("guest.bulk_import", err)
	if err != nil {
		return nil, err
	}
	w.Metrics.GuestsImported(len(gs))
	if len(gs) > 0 {
		w.publish(ctx, queue.GuestsImported, func(ev *queue.PlanningEvent) { ev.Count = len(gs) })
	}
	return gs, nil
}

// LoadChart returns the wedding's chart with references to deleted guests
// removed in memory. The stored document is left as is.
func (w *WeddingPlanning) LoadChart(ctx context.Context) (ChartView, error) {
	chart, err := w.Charts.LoadByWedding(ctx, w.weddingID)
	if err != nil {
		return ChartView{}, err
	}
	roster, err := w.roster(ctx)
	if err != nil {
		return ChartView{}, err
	}
	tables, orphaned := planner.ReconcileGuestReferences(chart.Tables, roster.ids)
	if orphaned > 0 {
		w.Metrics.OrphanedSeats(orphaned)
		w.log.Info().Str(logging.CHART, chart.ID).Int("orphaned", orphaned).Msg("chart has seats of deleted guests")
	}
	chart.Tables = tables
	return ChartView{Chart: chart, Orphaned: orphaned, Summary: planner.Summarize(tables)}, nil
}

// SaveChart replaces the whole chart. expectedVersion 0 is last-writer-wins;
// any other value must match the stored version. Every seated guest must
// exist in this wedding's roster; blank labels are filled from it.
func (w *WeddingPlanning) SaveChart(ctx context.Context, tables []model.Table, expectedVersion uint32) (*model.SeatingChart, error) {
	if err := planner.Validate(tables); err != nil {
		return nil, err
	}
	roster, err := w.roster(ctx)
	if err != nil {
		return nil, err
	}
	if missing := planner.UnknownGuests(tables, roster.ids); len(missing) > 0 {
		return nil, &model.ValidationError{Code: model.CodeUnknownGuest, GuestID: missing[0],
			Message: fmt.Sprintf("guest %q is not on this wedding's roster", missing[0])}
	}
	tables = roster.fillLabels(tables)
	chart, err := w.Charts.Upsert(ctx, w.weddingID, tables, expectedVersion)
	w.Metrics.Operation("seating.save", err)
	if err != nil {
		return nil, err
	}
	w.publishChart(ctx, chart, 0)
	return chart, nil
}

// AssignSeat seats guestID at (tableID, seatNumber).
func (w *WeddingPlanning) AssignSeat(ctx context.Context, tableID string, seatNumber int, guestID string, version uint32) (*model.SeatingChart, error) {
	g, err := w.ownGuest(ctx, guestID)
	if err != nil {
		return nil, err
	}
	return w.mutateChart(ctx, "seating.assign", version, func(tables []model.Table) ([]model.Table, error) {
		return planner.AssignGuest(tables, tableID, seatNumber, g.ID, g.Name)
	})
}

// UnassignSeat clears (tableID, seatNumber).
func (w *WeddingPlanning) UnassignSeat(ctx context.Context, tableID string, seatNumber int, version uint32) (*model.SeatingChart, error) {
	return w.mutateChart(ctx, "seating.unassign", version, func(tables []model.Table) ([]model.Table, error) {
		return planner.UnassignSeat(tables, tableID, seatNumber)
	})
}

// MoveGuest re-seats an already seated guest.
func (w *WeddingPlanning) MoveGuest(ctx context.Context, guestID, tableID string, seatNumber int, version uint32) (*model.SeatingChart, error) {
	if _, err := w.ownGuest(ctx, guestID); err != nil {
		return nil, err
	}
	return w.mutateChart(ctx, "seating.move", version, func(tables []model.Table) ([]model.Table, error) {
		return planner.MoveGuest(tables, guestID, tableID, seatNumber)
	})
}

// ReconcileChart persists the removal of seats held by deleted guests and
// reports how many were removed. Nothing is written when the chart is clean.
func (w *WeddingPlanning) ReconcileChart(ctx context.Context) (*model.SeatingChart, int, error) {
	chart, err := w.Charts.LoadByWedding(ctx, w.weddingID)
	if err != nil {
		return nil, 0, err
	}
	roster, err := w.roster(ctx)
	if err != nil {
		return nil, 0, err
	}
	tables, orphaned := planner.ReconcileGuestReferences(chart.Tables, roster.ids)
	if orphaned == 0 {
		return chart, 0, nil
	}
	saved, err := w.Charts.Upsert(ctx, w.weddingID, tables, chart.Version)
	w.Metrics.Operation("seating.reconcile", err)
	if err != nil {
		return nil, 0, err
	}
	w.Metrics.OrphanedSeats(orphaned)
	w.publishChart(ctx, saved, orphaned)
	return saved, orphaned, nil
}

// DeleteChart removes the wedding's chart; guests are untouched.
func (w *WeddingPlanning) DeleteChart(ctx context.Context) error {
	chart, err := w.Charts.LoadByWedding(ctx, w.weddingID)
	if err != nil {
		return err
	}
	err = w.Charts.Delete(ctx, chart.ID)
	w.Metrics.Operation("seating.delete", err)
	if err != nil {
		return err
	}
	w.publish(ctx, queue.SeatingDeleted, nil)
	return nil
}

// mutateChart is the read-modify-write used by the seat endpoints. The
// write is always conditional on the version that was read, so two
// concurrent edits cannot silently discard each other. A client supplied
// version that no longer matches fails before the mutation is attempted.
func (w *WeddingPlanning) mutateChart(ctx context.Context, op string, clientVersion uint32, fn func([]model.Table) ([]model.Table, error)) (*model.SeatingChart, error) {
	chart, err := w.Charts.LoadByWedding(ctx, w.weddingID)
	if err != nil {
		return nil, err
	}
	if clientVersion > 0 && clientVersion != chart.Version {
		return nil, repository.ErrStaleChart
	}
	roster, err := w.roster(ctx)
	if err != nil {
		return nil, err
	}
	tables, orphaned := planner.ReconcileGuestReferences(chart.Tables, roster.ids)
	tables, err = fn(tables)
	if err != nil {
		return nil, err
	}
	saved, err := w.Charts.Upsert(ctx, w.weddingID, tables, chart.Version)
	w.Metrics.Operation(op, err)
	if err != nil {
		return nil, err
	}
	w.Metrics.OrphanedSeats(orphaned)
	w.publishChart(ctx, saved, orphaned)
	return saved, nil
}

// ownGuest loads a guest and checks it belongs to this wedding.
func (w *WeddingPlanning) ownGuest(ctx context.Context, guestID string) (*model.Guest, error) {
	g, err := w.Guests.GetByID(ctx, guestID)
	if err != nil {
		return nil, err
	}
	if g.WeddingID != w.weddingID {
		return nil, repository.ErrForbidden
	}
	return g, nil
}

func (w *WeddingPlanning) refreshGuestLabel(ctx context.Context, guestID, name string) {
	chart, err := w.Charts.LoadByWedding(ctx, w.weddingID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			w.log.Warn().Err(err).Str(logging.GUEST, guestID).Msg("rename: chart load failed")
		}
		return
	}
	tables, found := planner.RenameGuest(chart.Tables, guestID, name)
	if !found {
		return
	}
	if _, err := w.Charts.Upsert(ctx, w.weddingID, tables, chart.Version); err != nil {
		w.log.Warn().Err(err).Str(logging.CHART, chart.ID).Str(logging.GUEST, guestID).
			Msg("rename: chart label not refreshed")
	}
}

func (w *WeddingPlanning) unseatDeletedGuest(ctx context.Context, guestID string) {
	chart, err := w.Charts.LoadByWedding(ctx, w.weddingID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			w.log.Warn().Err(err).Str(logging.GUEST, guestID).Msg("delete: chart load failed")
		}
		return
	}
	at, seated := planner.FindGuest(chart.Tables, guestID)
	if !seated {
		return
	}
	tables, err := planner.UnassignSeat(chart.Tables, at.TableID, at.SeatNumber)
	if err == nil {
		_, err = w.Charts.Upsert(ctx, w.weddingID, tables, chart.Version)
	}
	if err != nil {
		w.log.Warn().Err(err).Str(logging.CHART, chart.ID).Str(logging.GUEST, guestID).
			Msg("delete: seat left for reconciliation")
	}
}

type rosterIndex struct {
	ids   planner.GuestSet
	names map[string]string
}

func (w *WeddingPlanning) roster(ctx context.Context) (rosterIndex, error) {
	guests, err := w.Guests.ListByWedding(ctx, w.weddingID)
	if err != nil {
		return rosterIndex{}, err
	}
	r := rosterIndex{ids: make(planner.GuestSet, len(guests)), names: make(map[string]string, len(guests))}
	for _, g := range guests {
		r.ids[g.ID] = struct{}{}
		r.names[g.ID] = g.Name
	}
	return r, nil
}

func (r rosterIndex) fillLabels(tables []model.Table) []model.Table {
	out := model.CloneTables(tables)
	for i := range out {
		for j, s := range out[i].AssignedSeats {
			if s.Occupied() && s.GuestName == "" {
				out[i].AssignedSeats[j].GuestName = r.names[s.GuestID]
			}
		}
	}
	return out
}

func (w *WeddingPlanning) publishChart(ctx context.Context, chart *model.SeatingChart, orphaned int) {
	w.publish(ctx, queue.SeatingSaved, func(ev *queue.PlanningEvent) {
		ev.ChartVersion = chart.Version
		ev.Orphaned = orphaned
	})
}

func (w *WeddingPlanning) publish(ctx context.Context, eventType string, fill func(*queue.PlanningEvent)) {
	ev := queue.NewEvent(eventType, w.weddingID, w.actorID)
	if fill != nil {
		fill(&ev)
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := w.Events.Publish(pctx, ev); err != nil {
		w.log.Warn().Err(err).Str(logging.EVENT, eventType).Msg("planning event not published")
	}
}
