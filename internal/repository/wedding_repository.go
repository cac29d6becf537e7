package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/wedding-planner/internal/model"
)

// WeddingRepo resolves the wedding a user owns.
type WeddingRepo struct{ db *sql.DB }

func NewWeddingRepo(db *sql.DB) *WeddingRepo { return &WeddingRepo{db: db} }

// GetByOwner returns the wedding owned by userID or ErrWeddingNotFound.
func (r *WeddingRepo) GetByOwner(ctx context.Context, userID uint64) (*model.Wedding, error) {
	var (
		w    model.Wedding
		date sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, owner_user_id, name, event_date, created_at, updated_at FROM weddings WHERE owner_user_id=? LIMIT 1",
		userID).Scan(&w.ID, &w.OwnerUserID, &w.Name, &date, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWeddingNotFound
		}
		return nil, fmt.Errorf("select wedding: %w", err)
	}
	if date.Valid {
		d := date.Time
		w.EventDate = &d
	}
	return &w, nil
}

// Create inserts a wedding for w.OwnerUserID.  A user owns at most one
// wedding; a second insert yields ErrWeddingExists.
func (r *WeddingRepo) Create(ctx context.Context, w *model.Wedding) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO weddings (owner_user_id, name, event_date) VALUES (?,?,?)",
		w.OwnerUserID, w.Name, w.EventDate)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrWeddingExists
		}
		return fmt.Errorf("insert wedding: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = uint64(id)
	created, err := r.GetByOwner(ctx, w.OwnerUserID)
	if err != nil {
		return err
	}
	*w = *created
	return nil
}
