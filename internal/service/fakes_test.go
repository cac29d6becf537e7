package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/wedding-planner/internal/model"
	"github.com/iliyamo/wedding-planner/internal/planner"
	"github.com/iliyamo/wedding-planner/internal/queue"
	"github.com/iliyamo/wedding-planner/internal/repository"
)

type memGuests struct {
	mu      sync.Mutex
	rows    map[string]model.Guest
	failAll error
}

func newMemGuests() *memGuests { return &memGuests{rows: map[string]model.Guest{}} }

func (m *memGuests) Create(_ context.Context, weddingID uint64, in model.GuestInput) (*model.Guest, error) {
	g, err := model.NewGuest(weddingID, in)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = uuid.NewString()
	g.CreatedAt, g.UpdatedAt = time.Now(), time.Now()
	m.rows[g.ID] = g
	return &g, nil
}

func (m *memGuests) BulkCreate(_ context.Context, weddingID uint64, inputs []model.GuestInput) ([]model.Guest, error) {
	if m.failAll != nil {
		return nil, m.failAll
	}
	out := make([]model.Guest, 0, len(inputs))
	for _, in := range inputs {
		g, err := model.NewGuest(weddingID, in)
		if err != nil {
			return nil, err
		}
		g.ID = uuid.NewString()
		out = append(out, g)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range out {
		m.rows[g.ID] = g
	}
	return out, nil
}

func (m *memGuests) GetByID(_ context.Context, id string) (*model.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrGuestNotFound
	}
	return &g, nil
}

func (m *memGuests) ListByWedding(_ context.Context, weddingID uint64) ([]model.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Guest{}
	for _, g := range m.rows {
		if g.WeddingID == weddingID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memGuests) Update(ctx context.Context, id string, p model.GuestPatch) (*model.Guest, error) {
	g, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := p.Apply(*g)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.rows[id] = updated
	m.mu.Unlock()
	return &updated, nil
}

func (m *memGuests) SetRSVP(ctx context.Context, id string, status model.RSVPStatus) (*model.Guest, error) {
	s := string(status)
	return m.Update(ctx, id, model.GuestPatch{RSVPStatus: &s})
}

func (m *memGuests) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrGuestNotFound
	}
	delete(m.rows, id)
	return nil
}

// memCharts mirrors SeatingChartRepo: validation before write, whole
// document replace, version bump, conditional writes.
type memCharts struct {
	mu      sync.Mutex
	charts  map[uint64]model.SeatingChart
	writes  int
	failErr error
}

func newMemCharts() *memCharts { return &memCharts{charts: map[uint64]model.SeatingChart{}} }

func (m *memCharts) LoadByWedding(_ context.Context, weddingID uint64) (*model.SeatingChart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.charts[weddingID]
	if !ok {
		return nil, repository.ErrChartNotFound
	}
	c.Tables = model.CloneTables(c.Tables)
	return &c, nil
}

func (m *memCharts) Upsert(_ context.Context, weddingID uint64, tables []model.Table, expectedVersion uint32) (*model.SeatingChart, error) {
	if err := planner.Validate(tables); err != nil {
		return nil, err
	}
	if m.failErr != nil {
		return nil, m.failErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.charts[weddingID]
	switch {
	case expectedVersion > 0 && !ok:
		return nil, repository.ErrChartNotFound
	case expectedVersion > 0 && c.Version != expectedVersion:
		return nil, repository.ErrStaleChart
	case !ok:
		c = model.SeatingChart{ID: uuid.NewString(), WeddingID: weddingID, CreatedAt: time.Now()}
	}
	c.Tables = model.CloneTables(tables)
	c.Version++
	c.UpdatedAt = time.Now()
	m.charts[weddingID] = c
	m.writes++
	out := c
	out.Tables = model.CloneTables(c.Tables)
	return &out, nil
}

func (m *memCharts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, c := range m.charts {
		if c.ID == id {
			delete(m.charts, k)
			return nil
		}
	}
	return repository.ErrChartNotFound
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.PlanningEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev queue.PlanningEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

var errStoreDown = errors.New("store down")
