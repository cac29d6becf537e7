package repository // repository holds data access logic for planning aggregates

import (
	"context"      // context is used to manage deadlines and cancellation
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sql.ErrNoRows comparisons
	"fmt"          // fmt wraps persistence errors
	"strings"      // strings builds dynamic statements
	"time"         // time stamps bulk-inserted rows

	"github.com/google/uuid"

	"github.com/iliyamo/wedding-planner/internal/model"
)

const guestColumns = `id, wedding_id, name, rsvp_status, email, phone, group_name, dietary, notes, plus_ones, created_at, updated_at`

// GuestRepo persists guest rows.  Every write is a single statement (or
// one transaction for bulk import); there is no caching layer.
type GuestRepo struct {
	db *sql.DB // db is the underlying database connection
}

// NewGuestRepo constructs a GuestRepo with the given DB handle.
func NewGuestRepo(db *sql.DB) *GuestRepo {
	return &GuestRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGuest(s rowScanner) (*model.Guest, error) {
	var (
		g                                   model.Guest
		status                              string
		email, phone, group, dietary, notes sql.NullString
	)
	if err := s.Scan(&g.ID, &g.WeddingID, &g.Name, &status, &email, &phone, &group, &dietary, &notes,
		&g.PlusOnes, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.RSVPStatus = model.RSVPStatus(status)
	g.Email = nullToPtr(email)
	g.Phone = nullToPtr(phone)
	g.GroupName = nullToPtr(group)
	g.Dietary = nullToPtr(dietary)
	g.Notes = nullToPtr(notes)
	return &g, nil
}

// Create validates in, assigns a new id and inserts the row.  The stored
// row is read back so that timestamps come from the database.
func (r *GuestRepo) Create(ctx context.Context, weddingID uint64, in model.GuestInput) (*model.Guest, error) {
	g, err := model.NewGuest(weddingID, in)
	if err != nil {
		return nil, err
	}
	g.ID = uuid.NewString()
	const q = `INSERT INTO guests (id, wedding_id, name, rsvp_status, email, phone, group_name, dietary, notes, plus_ones)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, g.ID, g.WeddingID, g.Name, string(g.RSVPStatus),
		g.Email, g.Phone, g.GroupName, g.Dietary, g.Notes, g.PlusOnes); err != nil {
		return nil, fmt.Errorf("insert guest: %w", err)
	}
	return r.GetByID(ctx, g.ID)
}

const guestInsertCols = 12

// bulkChunkRows keeps one multi-row INSERT under MySQL's 65535
// placeholder limit.
const bulkChunkRows = 65535 / guestInsertCols

// BulkCreate inserts all guests in one transaction, in chunks of at most
// bulkChunkRows rows.  Input is validated up front; if the database
// rejects any chunk nothing is persisted.
func (r *GuestRepo) BulkCreate(ctx context.Context, weddingID uint64, inputs []model.GuestInput) ([]model.Guest, error) {
	if len(inputs) == 0 {
		return []model.Guest{}, nil
	}
	now := time.Now().UTC().Truncate(time.Second)
	guests := make([]model.Guest, 0, len(inputs))
	for i, in := range inputs {
		g, err := model.NewGuest(weddingID, in)
		if err != nil {
			var ve *model.ValidationError
			if errors.As(err, &ve) {
				ve.Field = fmt.Sprintf("guests[%d].%s", i, ve.Field)
			}
			return nil, err
		}
		g.ID = uuid.NewString()
		g.CreatedAt, g.UpdatedAt = now, now
		guests = append(guests, g)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk import: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for start := 0; start < len(guests); start += bulkChunkRows {
		end := min(start+bulkChunkRows, len(guests))
		q, args := bulkInsertGuests(guests[start:end])
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return nil, fmt.Errorf("bulk insert guests %d-%d: %w", start, end-1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk import: %w", err)
	}
	committed = true
	return guests, nil
}

func bulkInsertGuests(guests []model.Guest) (string, []any) {
	var b strings.Builder
	b.WriteString(`INSERT INTO guests (id, wedding_id, name, rsvp_status, email, phone, group_name, dietary, notes, plus_ones, created_at, updated_at) VALUES `)
	args := make([]any, 0, len(guests)*guestInsertCols)
	for i, g := range guests {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, g.ID, g.WeddingID, g.Name, string(g.RSVPStatus), g.Email, g.Phone,
			g.GroupName, g.Dietary, g.Notes, g.PlusOnes, g.CreatedAt, g.UpdatedAt)
	}
	return b.String(), args
}

// GetByID returns ErrGuestNotFound when no row matches.
func (r *GuestRepo) GetByID(ctx context.Context, id string) (*model.Guest, error) {
	q := `SELECT ` + guestColumns + ` FROM guests WHERE id = ?`
	g, err := scanGuest(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGuestNotFound
		}
		return nil, fmt.Errorf("select guest: %w", err)
	}
	return g, nil
}

// ListByWedding returns the roster ordered by name.  A wedding without
// guests yields an empty slice.
func (r *GuestRepo) ListByWedding(ctx context.Context, weddingID uint64) ([]model.Guest, error) {
	q := `SELECT ` + guestColumns + ` FROM guests WHERE wedding_id = ? ORDER BY name ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, weddingID)
	if err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}
	defer rows.Close()

	out := []model.Guest{}
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guest: %w", err)
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}
	return out, nil
}

// IDsByWedding returns the ids of every guest of a wedding.
func (r *GuestRepo) IDsByWedding(ctx context.Context, weddingID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM guests WHERE wedding_id = ?`, weddingID)
	if err != nil {
		return nil, fmt.Errorf("list guest ids: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan guest id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Update merges only the supplied fields.  The current row is loaded
// first so that the merged result can be validated and a missing guest
// reported as ErrGuestNotFound.  wedding_id is never written.
func (r *GuestRepo) Update(ctx context.Context, id string, p model.GuestPatch) (*model.Guest, error) {
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	merged, err := p.Apply(*cur)
	if err != nil {
		return nil, err
	}
	if p.Empty() {
		return cur, nil
	}

	sets := make([]string, 0, 9)
	args := make([]any, 0, 10)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Name != nil {
		set("name", merged.Name)
	}
	if p.RSVPStatus != nil {
		set("rsvp_status", string(merged.RSVPStatus))
	}
	if p.Email != nil {
		set("email", merged.Email)
	}
	if p.Phone != nil {
		set("phone", merged.Phone)
	}
	if p.GroupName != nil {
		set("group_name", merged.GroupName)
	}
	if p.Dietary != nil {
		set("dietary", merged.Dietary)
	}
	if p.Notes != nil {
		set("notes", merged.Notes)
	}
	if p.PlusOnes != nil {
		set("plus_ones", merged.PlusOnes)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	q := `UPDATE guests SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("update guest: %w", err)
	}
	return r.GetByID(ctx, id)
}

// SetRSVP changes the RSVP status.  Every status is reachable from every
// other one.
func (r *GuestRepo) SetRSVP(ctx context.Context, id string, status model.RSVPStatus) (*model.Guest, error) {
	s := string(status)
	return r.Update(ctx, id, model.GuestPatch{RSVPStatus: &s})
}

// Delete removes a guest permanently.
func (r *GuestRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM guests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete guest: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrGuestNotFound
	}
	return nil
}

func nullToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
