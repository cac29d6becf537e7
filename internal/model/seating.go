package model

import "time"

// TableShape is the physical shape of a table on the floor plan.
type TableShape string

const (
	ShapeRound       TableShape = "round"
	ShapeRectangular TableShape = "rectangular"
)

// Valid reports whether the shape is one of the supported values.
func (s TableShape) Valid() bool {
	return s == ShapeRound || s == ShapeRectangular
}

// Position is an optional layout coordinate of a table.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TableSeat is one numbered seat entry.  GuestName is a cached label that
// is not kept in sync with the guest row and may drift.
type TableSeat struct {
	SeatNumber int    `json:"seatNumber"`
	GuestID    string `json:"guestId,omitempty"`
	GuestName  string `json:"guestName,omitempty"`
}

// Occupied reports whether a guest sits in this seat.
func (s TableSeat) Occupied() bool { return s.GuestID != "" }

// Table is a named seating unit with a capacity and its seat assignments.
type Table struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Shape         TableShape  `json:"shape"`
	Seats         int         `json:"seats"`
	AssignedSeats []TableSeat `json:"assignedSeats"`
	Position      *Position   `json:"position,omitempty"`
	Color         string      `json:"color,omitempty"`
	Notes         string      `json:"notes,omitempty"`
}

// SeatingChart is the whole table layout of one wedding.  It is stored as
// one document in `seating_charts.tables` and replaced as a whole; Version
// increases by one on every write and backs optimistic concurrency.
type SeatingChart struct {
	ID        string    `json:"id"`         // seating_charts.id
	WeddingID uint64    `json:"wedding_id"` // seating_charts.wedding_id (unique)
	Tables    []Table   `json:"tables"`     // seating_charts.tables (JSON)
	Version   uint32    `json:"version"`    // seating_charts.version
	CreatedAt time.Time `json:"created_at"` // seating_charts.created_at
	UpdatedAt time.Time `json:"updated_at"` // seating_charts.updated_at
}

// CloneTables returns a deep copy of tables so callers can mutate the
// result without touching shared state.
func CloneTables(tables []Table) []Table {
	if tables == nil {
		return nil
	}
	out := make([]Table, len(tables))
	for i, t := range tables {
		out[i] = t
		if t.AssignedSeats != nil {
			out[i].AssignedSeats = append([]TableSeat(nil), t.AssignedSeats...)
		}
		if t.Position != nil {
			p := *t.Position
			out[i].Position = &p
		}
	}
	return out
}
