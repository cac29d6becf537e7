package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/wedding-planner/internal/model"
	"github.com/iliyamo/wedding-planner/internal/planner"
	"github.com/iliyamo/wedding-planner/internal/repository"
	"github.com/iliyamo/wedding-planner/internal/utils"
)

type memGuests struct {
	mu   sync.Mutex
	rows map[string]model.Guest
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
	var out []model.Guest
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

type memCharts struct {
	mu     sync.Mutex
	charts map[uint64]model.SeatingChart
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
	out := c
	out.Tables = model.CloneTables(c.Tables)
	return &out, nil
}

// put stores a chart as is, bypassing validation, to simulate drifted data.
func (m *memCharts) put(c model.SeatingChart) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.charts[c.WeddingID] = c
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

// memWeddings keys weddings by owner.
type memWeddings struct {
	mu    sync.Mutex
	byOwn map[uint64]model.Wedding
	next  uint64
	err   error
}

func newMemWeddings() *memWeddings { return &memWeddings{byOwn: map[uint64]model.Wedding{}, next: 100} }

func (m *memWeddings) GetByOwner(_ context.Context, userID uint64) (*model.Wedding, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.byOwn[userID]
	if !ok {
		return nil, repository.ErrWeddingNotFound
	}
	return &w, nil
}

func (m *memWeddings) Create(_ context.Context, w *model.Wedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byOwn[w.OwnerUserID]; ok {
		return repository.ErrWeddingExists
	}
	m.next++
	w.ID = m.next
	w.CreatedAt, w.UpdatedAt = time.Now(), time.Now()
	m.byOwn[w.OwnerUserID] = *w
	return nil
}

type memUsers struct {
	mu    sync.Mutex
	rows  map[uint64]model.User
	next  uint64
	email map[string]uint64
}

func newMemUsers() *memUsers {
	return &memUsers{rows: map[uint64]model.User{}, email: map[string]uint64{}}
}

func (m *memUsers) Create(_ context.Context, email, password, role, displayName string, _ int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.email[email]; ok {
		return 0, repository.ErrEmailExists
	}
	m.next++
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		return 0, err
	}
	m.rows[m.next] = model.User{ID: m.next, Email: email, PasswordHash: hash, Role: role,
		DisplayName: displayName, IsActive: true, CreatedAt: time.Now()}
	m.email[email] = m.next
	return m.next, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.email[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u := m.rows[id]
	return &u, nil
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

type refreshRow struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type memTokens struct {
	mu   sync.Mutex
	rows map[string]*refreshRow
}

func newMemTokens() *memTokens { return &memTokens{rows: map[string]*refreshRow{}} }

func (m *memTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[hash] = &refreshRow{userID: userID, exp: exp}
	return nil
}

func (m *memTokens) ConsumeRefresh(_ context.Context, hash string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[hash]
	if !ok || r.revoked || time.Now().After(r.exp) {
		return 0, repository.ErrInvalidRefresh
	}
	r.revoked = true
	return r.userID, nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID uint64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rows {
		if r.userID == userID && !r.revoked {
			r.revoked = true
			n++
		}
	}
	return n, nil
}

type recordingSessions struct {
	mu      sync.Mutex
	revoked map[uint64]time.Time
}

func (r *recordingSessions) Revoke(_ context.Context, userID uint64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revoked == nil {
		r.revoked = map[uint64]time.Time{}
	}
	r.revoked[userID] = at
	return nil
}

func (r *recordingSessions) RevokedSince(_ context.Context, userID uint64) (time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.revoked[userID]
	return at, ok, nil
}
