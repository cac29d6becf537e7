package planner

import "github.com/iliyamo/wedding-planner/internal/model"

// GuestSet is a set of guest ids.
type GuestSet map[string]struct{}

// NewGuestSet builds a set from ids.
func NewGuestSet(ids ...string) GuestSet {
	s := make(GuestSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s GuestSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// seatRef locates one seat in a chart.
type seatRef struct {
	TableID    string
	SeatNumber int
}

// SeatLocation is where a guest currently sits.
type SeatLocation struct {
	TableID    string `json:"tableId"`
	SeatNumber int    `json:"seatNumber"`
	GuestName  string `json:"guestName,omitempty"`
}

// FindGuest returns the seat held by guestID, if any.
func FindGuest(tables []model.Table, guestID string) (SeatLocation, bool) {
	if guestID == "" {
		return SeatLocation{}, false
	}
	for _, t := range tables {
		for _, s := range t.AssignedSeats {
			if s.GuestID == guestID {
				return SeatLocation{TableID: t.ID, SeatNumber: s.SeatNumber, GuestName: s.GuestName}, true
			}
		}
	}
	return SeatLocation{}, false
}

// Summary counts capacity and occupancy of a chart.
type Summary struct {
	Tables   int `json:"tables"`
	Capacity int `json:"capacity"`
	Occupied int `json:"occupied"`
	Free     int `json:"free"`
}

// Summarize reports how many seats exist and how many are taken.
func Summarize(tables []model.Table) Summary {
	var sum Summary
	sum.Tables = len(tables)
	for _, t := range tables {
		sum.Capacity += t.Seats
		for _, s := range t.AssignedSeats {
			if s.Occupied() {
				sum.Occupied++
			}
		}
	}
	sum.Free = sum.Capacity - sum.Occupied
	if sum.Free < 0 {
		sum.Free = 0
	}
	return sum
}
