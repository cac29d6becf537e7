package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/wedding-planner/internal/logging"
	"github.com/iliyamo/wedding-planner/internal/metrics"
	"github.com/iliyamo/wedding-planner/internal/model"
	"github.com/iliyamo/wedding-planner/internal/planner"
	"github.com/iliyamo/wedding-planner/internal/queue"
	"github.com/iliyamo/wedding-planner/internal/repository"
)

type fixture struct {
	guests *memGuests
	charts *memCharts
	events *recordingPublisher
	svc    *Planning
}

func newFixture() *fixture {
	f := &fixture{guests: newMemGuests(), charts: newMemCharts(), events: &recordingPublisher{}}
	f.svc = NewPlanning(Deps{
		Guests:  f.guests,
		Charts:  f.charts,
		Events:  f.events,
		Metrics: metrics.New(metrics.NewRegistry(false)),
		Log:     zerolog.Nop(),
	})
	return f
}

func round(id string, seats int, assigned ...model.TableSeat) model.Table {
	if assigned == nil {
		assigned = []model.TableSeat{}
	}
	return model.Table{ID: id, Name: id, Shape: model.ShapeRound, Seats: seats, AssignedSeats: assigned}
}

func mustGuest(t *testing.T, w *WeddingPlanning, name string) *model.Guest {
	t.Helper()
	g, err := w.CreateGuest(context.Background(), model.GuestInput{Name: name})
	require.NoError(t, err)
	return g
}

func validationCode(t *testing.T, err error) string {
	t.Helper()
	var ve *model.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	return ve.Code
}

func TestDispatch_AllCommands(t *testing.T) {
	f := newFixture()
	w := f.svc.ForWedding(7).As(3)
	ctx := context.Background()

	res, err := w.Dispatch(ctx, CreateGuestCommand{Guest: model.GuestInput{Name: "Ann"}})
	require.NoError(t, err)
	assert.True(t, res.Created)
	require.NotNil(t, res.Guest)
	assert.Equal(t, uint64(7), res.Guest.WeddingID)
	assert.Equal(t, model.RSVPPending, res.Guest.RSVPStatus)

	yes := "yes"
	res, err = w.Dispatch(ctx, UpdateGuestCommand{GuestID: res.Guest.ID, Patch: model.GuestPatch{RSVPStatus: &yes}})
	require.NoError(t, err)
	assert.Equal(t, model.RSVPYes, res.Guest.RSVPStatus)
	assert.Equal(t, "Ann", res.Guest.Name)

	res, err = w.Dispatch(ctx, BulkImportCommand{Guests: []model.GuestInput{{Name: "Bob"}, {Name: "Cy"}}})
	require.NoError(t, err)
	assert.Len(t, res.Guests, 2)

	list, err := w.ListGuests(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Ann", "Bob", "Cy"}, []string{list[0].Name, list[1].Name, list[2].Name})

	_, err = w.Dispatch(ctx, DeleteGuestCommand{GuestID: list[0].ID})
	require.NoError(t, err)
	_, err = w.Dispatch(ctx, DeleteGuestCommand{GuestID: list[0].ID})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.Equal(t, []string{queue.GuestCreated, queue.GuestUpdated, queue.GuestsImported, queue.GuestDeleted}, f.events.types())
	for _, ev := range f.events.events {
		assert.Equal(t, uint64(7), ev.WeddingID)
		assert.Equal(t, uint64(3), ev.UserID)
	}
}

func TestGuestOwnership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mine := mustGuest(t, f.svc.ForWedding(1), "Ann")
	other := f.svc.ForWedding(2)

	name := "Hijack"
	_, err := other.UpdateGuest(ctx, mine.ID, model.GuestPatch{Name: &name})
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.ErrorIs(t, other.DeleteGuest(ctx, mine.ID), repository.ErrForbidden)
	_, err = other.SetRSVP(ctx, mine.ID, "yes")
	assert.ErrorIs(t, err, repository.ErrForbidden)

	g, err := f.guests.GetByID(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", g.Name)
}

func TestSetRSVP_AnyTransition(t *testing.T) {
	f := newFixture()
	w := f.svc.ForWedding(1)
	ctx := context.Background()
	g := mustGuest(t, w, "Ann")

	for _, s := range []string{"yes", "no", "pending", "YES", "no"} {
		got, err := w.SetRSVP(ctx, g.ID, s)
		require.NoError(t, err)
		assert.Equal(t, model.RSVPStatus(lower(s)), got.RSVPStatus)
	}

	_, err := w.SetRSVP(ctx, g.ID, "maybe")
	assert.Equal(t, model.CodeInvalidRSVP, validationCode(t, err))
	_, err = w.SetRSVP(ctx, g.ID, " ")
	assert.Equal(t, model.CodeRequired, validationCode(t, err))
}

func lower(s string) string {
	if s == "YES" {
		return "yes"
	}
	return s
}

func TestBulkImport_AllOrNothing(t *testing.T) {
	f := newFixture()
	w := f.svc.ForWedding(1)
	ctx := context.Background()

	_, err := w.BulkImport(ctx, []model.GuestInput{{Name: "Ann"}, {Name: ""}})
	assert.Equal(t, model.CodeRequired, validationCode(t, err))

	f.guests.failAll = errStoreDown
	_, err = w.BulkImport(ctx, []model.GuestInput{{Name: "Ann"}, {Name: "Bob"}})
	assert.ErrorIs(t, err, errStoreDown)

	list, err := w.ListGuests(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, f.events.types())
}

func TestSeatingScenario(t *testing.T) {
	f := newFixture()
	w := f.svc.ForWedding(1)
	ctx := context.Background()
	g1 := mustGuest(t, w, "Ann")
	g2 := mustGuest(t, w, "Bob")

	chart, err := w.SaveChart(ctx, []model.Table{round("t1", 4)}, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), chart.Version)

	chart, err = w.AssignSeat(ctx, "t1", 1, g1.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []model.TableSeat{{SeatNumber: 1, GuestID: g1.ID, GuestName: "Ann"}}, chart.Tables[0].AssignedSeats)

	_, err = w.AssignSeat(ctx, "t1", 1, g2.ID, 0)
	assert.Equal(t, model.CodeSeatOccupied, validationCode(t, err))

	_, err = w.UnassignSeat(ctx, "t1", 1, 0)
	require.NoError(t, err)
	chart, err = w.AssignSeat(ctx, "t1", 1, g2.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, g2.ID, chart.Tables[0].AssignedSeats[0].GuestID)

	chart, err = w.MoveGuest(ctx, g2.ID, "t1", 3, 0)
	require.NoError(t, err)
	loc, ok := planner.FindGuest(chart.Tables, g2.ID)
	require.True(t, ok)
	assert.Equal(t, 3, loc.SeatNumber)
	assert.Equal(t, uint32(5), chart.Version)
}

func TestSaveChart_RejectsBeforeStorage(t *testing.T) {
	f := newFixture()
	w := f.svc.ForWedding(1)
	ctx := context.Background()
	g := mustGuest(t, w, "Ann")

	_, err := w.SaveChart(ctx, []model.Table{round("t1", 2, model.TableSeat{SeatNumber: 3, GuestID: g.ID})}, 0)
	assert.Equal(t, model.CodeSeatOutOfRange, validationCode(t, err))

	_, err = w.SaveChart(ctx, []model.Table{round("t1", 2, model.TableSeat{SeatNumber: 1, GuestID: "ghost"})}, 0)
	assert.Equal(t, model.CodeUnknownGuest, validationCode(t, err))

	foreign := mustGuest(t, f.svc.ForWedding(2), "Stranger")
	_, err = w.SaveChart(ctx, []model.Table{round("t1", 2, model.TableSeat{SeatNumber: 1, GuestID: foreign.ID})}, 0)
	assert.Equal(t, model.CodeUnknownGuest, validationCode(t, err))

	assert.Zero(t, f.charts.writes)
}

func TestSaveChart_FillsLabelsAndReplacesWhole(t *testing.T) {
	f := newFixture()
	w := f.svc.ForWedding(1)
	ctx := context.Background()
	g := mustGuest(t, w, "Ann")

	_, err := w.SaveChart(ctx, []model.Table{round("t1", 4, model.TableSeat{SeatNumber: 2, GuestID: g.ID}), round("t2", 4)}, 0)
	require.NoError(t, err)
	chart, err := w.SaveChart(ctx, []model.Table{round("t9", 2)}, 0)
	require.NoError(t, err)
	require.Len(t, chart.Tables, 1)
	assert.Equal(t, "t9", chart.Tables[0].ID)

	chart, err = w.SaveChart(ctx, []model.Table{round("t1", 4, model.TableSeat{SeatNumber: 2, GuestID: g.ID})}, chart.Version)
	require.NoError(t, err)
	assert.Equal(t, "Ann", chart.Tables[0].AssignedSeats[0].GuestName)
}

func TestConcurrentEditsDetected(t *testing.T) {
	f := newFixture()
	w := f.svc.ForWedding(1)
	ctx := context.Background()
	g := mustGuest(t, w, "Ann")

	base, err := w.SaveChart(ctx, []model.Table{round("t1", 4)}, 0)
	require.NoError(t, err)

	_, err = w.SaveChart(ctx, []model.Table{round("t1", 6)}, base.Version)
	require.NoError(t, err)

	_, err = w.SaveChart(ctx, []model.Table{round("t1", 8)}, base.Version)
	assert.ErrorIs(t, err, repository.ErrStaleChart)
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = w.AssignSeat(ctx, "t1", 1, g.ID, base.Version)
	assert.ErrorIs(t, err, repository.ErrStaleChart)

	view, err := w.LoadChart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, view.Chart.Tables[0].Seats)
}

func TestDeleteGuest_SweepsSeat(t *testing.T) {
	f := newFixture()
	w := f.svc.ForWedding(1)
	ctx := context.Background()
	g := mustGuest(t, w, "Ann")

	_, err := w.SaveChart(ctx, []model.Table{round("t1", 4, model.TableSeat{SeatNumber: 1, GuestID: g.ID})}, 0)
	require.NoError(t, err)

	require.NoError(t, w.DeleteGuest(ctx, g.ID))
	view, err := w.LoadChart(ctx)
	require.NoError(t, err)
	assert.Empty(t, view.Chart.Tables[0].AssignedSeats)
	assert.Zero(t, view.Orphaned)
}

func TestDeleteGuest_SweepFailureDoesNotFailDelete(t *testing.T) {
	f := newFixture()
	w := f.svc.ForWedding(1)
	ctx := context.Background()
	g := mustGuest(t, w, "Ann")
	_, err := w.SaveChart(ctx, []model.Table{round("t1", 4, model.TableSeat{SeatNumber: 1, GuestID: g.ID})}, 0)
	require.NoError(t, err)

	f.charts.failErr = errStoreDown
	require.NoError(t, w.DeleteGuest(ctx, g.ID))
	f.charts.failErr = nil

	view, err := w.LoadChart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Orphaned)
	assert.Empty(t, view.Chart.Tables[0].AssignedSeats)
	assert.Equal(t, 4, view.Summary.Free)

	chart, orphaned, err := w.ReconcileChart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, orphaned)
	assert.Empty(t, chart.Tables[0].AssignedSeats)

	_, orphaned, err = w.ReconcileChart(ctx)
	require.NoError(t, err)
	assert.Zero(t, orphaned)
}

func TestDeleteGuest_SweepFailureIsLoggedWithChart(t *testing.T) {
	f := newFixture()
	var buf bytes.Buffer
	f.svc.deps.Log = zerolog.New(&buf)
	w := f.svc.ForWedding(1)
	ctx := context.Background()
	g := mustGuest(t, w, "Ann")
	saved, err := w.SaveChart(ctx, []model.Table{round("t1", 2, model.TableSeat{SeatNumber: 1, GuestID: g.ID})}, 0)
	require.NoError(t, err)

	f.charts.failErr = errStoreDown
	require.NoError(t, w.DeleteGuest(ctx, g.ID))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry), buf.String())
	assert.Equal(t, saved.ID, entry[logging.CHART])
	assert.Equal(t, g.ID, entry[logging.GUEST])
	assert.Equal(t, "warn", entry["level"])
}

func TestRenameRefreshesChartLabel(t *testing.T) {
	f := newFixture()
	w := f.svc.ForWedding(1)
	ctx := context.Background()
	g := mustGuest(t, w, "Ann")
	_, err := w.AssignSeat(ctx, "t1", 1, g.ID, 0)
	assert.ErrorIs(t, err, repository.ErrChartNotFound)

	_, err = w.SaveChart(ctx, []model.Table{round("t1", 4, model.TableSeat{SeatNumber: 1, GuestID: g.ID, GuestName: "Ann"})}, 0)
	require.NoError(t, err)

	name := "Ann Lee"
	_, err = w.UpdateGuest(ctx, g.ID, model.GuestPatch{Name: &name})
	require.NoError(t, err)
	view, err := w.LoadChart(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", view.Chart.Tables[0].AssignedSeats[0].GuestName)
}

func TestMoveGuest_RequiresSeatedGuest(t *testing.T) {
	f := newFixture()
	w := f.svc.ForWedding(1)
	ctx := context.Background()
	g := mustGuest(t, w, "Ann")
	_, err := w.SaveChart(ctx, []model.Table{round("t1", 4)}, 0)
	require.NoError(t, err)

	_, err = w.MoveGuest(ctx, g.ID, "t1", 2, 0)
	assert.Equal(t, model.CodeGuestNotSeated, validationCode(t, err))
}

func TestDeleteChart(t *testing.T) {
	f := newFixture()
	w := f.svc.ForWedding(1)
	ctx := context.Background()

	assert.ErrorIs(t, w.DeleteChart(ctx), repository.ErrNotFound)
	_, err := w.SaveChart(ctx, []model.Table{round("t1", 4)}, 0)
	require.NoError(t, err)
	require.NoError(t, w.DeleteChart(ctx))
	_, err = w.LoadChart(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Contains(t, f.events.types(), queue.SeatingDeleted)
}

func TestPublishFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.events.err = errStoreDown
	w := f.svc.ForWedding(1)

	g, err := w.CreateGuest(context.Background(), model.GuestInput{Name: "Ann"})
	require.NoError(t, err)
	assert.NotEmpty(t, g.ID)
}

func TestPlanningIsolatedPerWedding(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mustGuest(t, f.svc.ForWedding(1), "Ann")
	mustGuest(t, f.svc.ForWedding(2), "Bob")

	a, err := f.svc.ForWedding(1).ListGuests(ctx)
	require.NoError(t, err)
	b, err := f.svc.ForWedding(2).ListGuests(ctx)
	require.NoError(t, err)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, "Ann", a[0].Name)
	assert.Equal(t, "Bob", b[0].Name)
}
