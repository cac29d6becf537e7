package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iliyamo/wedding-planner/internal/model"
	"github.com/iliyamo/wedding-planner/internal/planner"
)

const chartColumns = `id, wedding_id, tables, version, created_at, updated_at`

// SeatingChartRepo stores one seating document per wedding.  The tables
// collection is kept as a single JSON column and always replaced as a
// whole.  Every write runs planner.Validate first; an invalid chart never
// reaches the database.
//
// The version column backs optimistic concurrency: writers that pass the
// version they loaded get ErrStaleChart if somebody saved in between.
// Writers that pass 0 keep last-writer-wins semantics.
type SeatingChartRepo struct {
	db *sql.DB
}

// NewSeatingChartRepo constructs a SeatingChartRepo with the given DB handle.
func NewSeatingChartRepo(db *sql.DB) *SeatingChartRepo {
	return &SeatingChartRepo{db: db}
}

func scanChart(s rowScanner) (*model.SeatingChart, error) {
	var (
		c   model.SeatingChart
		raw []byte
	)
	if err := s.Scan(&c.ID, &c.WeddingID, &raw, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c.Tables); err != nil {
			return nil, fmt.Errorf("decode seating chart %s: %w", c.ID, err)
		}
	}
	c.Tables = normalizeTables(c.Tables)
	return &c, nil
}

// encodeTables validates and serializes the document.
func encodeTables(tables []model.Table) ([]byte, error) {
	if err := planner.Validate(tables); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeTables(tables))
}

// normalizeTables turns nil slices into empty ones so the stored document
// never carries nulls.
func normalizeTables(tables []model.Table) []model.Table {
	if tables == nil {
		return []model.Table{}
	}
	out := model.CloneTables(tables)
	for i := range out {
		if out[i].AssignedSeats == nil {
			out[i].AssignedSeats = []model.TableSeat{}
		}
	}
	return out
}

// LoadByWedding returns the chart of a wedding or ErrChartNotFound.
func (r *SeatingChartRepo) LoadByWedding(ctx context.Context, weddingID uint64) (*model.SeatingChart, error) {
	q := `SELECT ` + chartColumns + ` FROM seating_charts WHERE wedding_id = ?`
	c, err := scanChart(r.db.QueryRowContext(ctx, q, weddingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChartNotFound
		}
		return nil, fmt.Errorf("select seating chart: %w", err)
	}
	return c, nil
}

// GetByID returns a chart by id or ErrChartNotFound.
func (r *SeatingChartRepo) GetByID(ctx context.Context, id string) (*model.SeatingChart, error) {
	q := `SELECT ` + chartColumns + ` FROM seating_charts WHERE id = ?`
	c, err := scanChart(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChartNotFound
		}
		return nil, fmt.Errorf("select seating chart: %w", err)
	}
	return c, nil
}

// Create stores the first chart of a wedding.  A second chart for the same
// wedding violates the unique key and yields ErrChartExists.
func (r *SeatingChartRepo) Create(ctx context.Context, weddingID uint64, tables []model.Table) (*model.SeatingChart, error) {
	doc, err := encodeTables(tables)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	const q = `INSERT INTO seating_charts (id, wedding_id, tables, version) VALUES (?, ?, ?, 1)`
	if _, err := r.db.ExecContext(ctx, q, id, weddingID, doc); err != nil {
		if isDuplicateKey(err) {
			return nil, ErrChartExists
		}
		return nil, fmt.Errorf("insert seating chart: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Update replaces the tables of chart id.  With expectedVersion > 0 the
// write only applies if the stored version still matches.
func (r *SeatingChartRepo) Update(ctx context.Context, id string, tables []model.Table, expectedVersion uint32) (*model.SeatingChart, error) {
	doc, err := encodeTables(tables)
	if err != nil {
		return nil, err
	}
	q := `UPDATE seating_charts SET tables = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	args := []any{doc, id}
	if expectedVersion > 0 {
		q += ` AND version = ?`
		args = append(args, expectedVersion)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("update seating chart: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrStaleChart
	}
	return r.GetByID(ctx, id)
}

// Upsert creates the wedding's chart or replaces it as a whole.
//
// expectedVersion == 0 is last-writer-wins: the stored document becomes
// exactly tables, whatever was there before.  expectedVersion > 0 is a
// conditional replace of an existing chart.
func (r *SeatingChartRepo) Upsert(ctx context.Context, weddingID uint64, tables []model.Table, expectedVersion uint32) (*model.SeatingChart, error) {
	doc, err := encodeTables(tables)
	if err != nil {
		return nil, err
	}
	if expectedVersion > 0 {
		const q = `UPDATE seating_charts SET tables = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		           WHERE wedding_id = ? AND version = ?`
		res, err := r.db.ExecContext(ctx, q, doc, weddingID, expectedVersion)
		if err != nil {
			return nil, fmt.Errorf("update seating chart: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if _, err := r.LoadByWedding(ctx, weddingID); err != nil {
				return nil, err
			}
			return nil, ErrStaleChart
		}
		return r.LoadByWedding(ctx, weddingID)
	}

	const q = `INSERT INTO seating_charts (id, wedding_id, tables, version) VALUES (?, ?, ?, 1)
	           ON DUPLICATE KEY UPDATE tables = VALUES(tables), version = version + 1, updated_at = CURRENT_TIMESTAMP`
	if _, err := r.db.ExecContext(ctx, q, uuid.NewString(), weddingID, doc); err != nil {
		return nil, fmt.Errorf("upsert seating chart: %w", err)
	}
	return r.LoadByWedding(ctx, weddingID)
}

// Delete removes a chart by id.
func (r *SeatingChartRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM seating_charts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete seating chart: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrChartNotFound
	}
	return nil
}
