// Package planner holds the seating rules of a wedding: validation of a
// table collection against the chart invariants and the assignment
// helpers used by the API.  Every function is pure.  Inputs are never
// modified; mutations return a deep copy, so the functions can be called
// from concurrent requests without locking.
package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/wedding-planner/internal/model"
)

// Validate checks a table collection before it is persisted:
//
//  1. every table has len(assignedSeats) <= seats and seat numbers in [1, seats]
//  2. seat numbers are unique within a table
//  3. a guest occupies at most one seat across the whole chart
//
// Table ids, shapes and capacities are checked as well; an empty shape is
// accepted and rendered as round.  The first
// violation is returned; tables are visited in the given order and seats
// in ascending seat number, so the reported violation is deterministic.
func Validate(tables []model.Table) error {
	tableIDs := make(map[string]struct{}, len(tables))
	guests := make(map[string]seatRef)

	for _, t := range tables {
		if strings.TrimSpace(t.ID) == "" {
			return &model.ValidationError{Code: model.CodeRequired, Field: "id", Message: "every table needs an id"}
		}
		if _, dup := tableIDs[t.ID]; dup {
			return &model.ValidationError{Code: model.CodeDuplicateTable, TableID: t.ID,
				Message: fmt.Sprintf("table id %q is used more than once", t.ID)}
		}
		tableIDs[t.ID] = struct{}{}

		if t.Shape != "" && !t.Shape.Valid() {
			return &model.ValidationError{Code: model.CodeInvalidShape, TableID: t.ID,
				Message: fmt.Sprintf("table %q has unsupported shape %q", t.ID, t.Shape)}
		}
		if t.Seats <= 0 {
			return &model.ValidationError{Code: model.CodeInvalidCapacity, TableID: t.ID,
				Message: fmt.Sprintf("table %q must have at least one seat", t.ID)}
		}
		if len(t.AssignedSeats) > t.Seats {
			return &model.ValidationError{Code: model.CodeOverCapacity, TableID: t.ID,
				Message: fmt.Sprintf("table %q has %d assigned seats but only %d seats", t.ID, len(t.AssignedSeats), t.Seats)}
		}

		prev := 0
		for _, s := range sortedSeats(t.AssignedSeats) {
			if s.SeatNumber < 1 || s.SeatNumber > t.Seats {
				return &model.ValidationError{Code: model.CodeSeatOutOfRange, TableID: t.ID, SeatNumber: s.SeatNumber,
					Message: fmt.Sprintf("seat %d is outside 1..%d at table %q", s.SeatNumber, t.Seats, t.ID)}
			}
			if s.SeatNumber == prev {
				return &model.ValidationError{Code: model.CodeDuplicateSeat, TableID: t.ID, SeatNumber: s.SeatNumber,
					Message: fmt.Sprintf("seat %d appears more than once at table %q", s.SeatNumber, t.ID)}
			}
			prev = s.SeatNumber
			if !s.Occupied() {
				continue
			}
			if at, dup := guests[s.GuestID]; dup {
				return &model.ValidationError{Code: model.CodeGuestDoubleBooked, TableID: t.ID, SeatNumber: s.SeatNumber, GuestID: s.GuestID,
					Message: fmt.Sprintf("guest %q is already seated at table %q seat %d", s.GuestID, at.TableID, at.SeatNumber)}
			}
			guests[s.GuestID] = seatRef{TableID: t.ID, SeatNumber: s.SeatNumber}
		}
	}
	return nil
}

// AssignGuest seats guestID at (tableID, seatNumber).  It fails when the
// table is unknown, the seat is out of range or taken by another guest, or
// the guest already sits elsewhere; re-seating requires UnassignSeat first
// (or MoveGuest).  Assigning a guest to the seat they already hold is a
// no-op apart from refreshing the cached name.
func AssignGuest(tables []model.Table, tableID string, seatNumber int, guestID, guestName string) ([]model.Table, error) {
	guestID = strings.TrimSpace(guestID)
	if guestID == "" {
		return nil, &model.ValidationError{Code: model.CodeRequired, Field: "guestId", Message: "guestId is required"}
	}
	out := model.CloneTables(tables)
	ti := indexOfTable(out, tableID)
	if ti < 0 {
		return nil, tableNotFound(tableID)
	}
	t := &out[ti]
	if seatNumber < 1 || seatNumber > t.Seats {
		return nil, &model.ValidationError{Code: model.CodeSeatOutOfRange, TableID: tableID, SeatNumber: seatNumber,
			Message: fmt.Sprintf("seat %d is outside 1..%d at table %q", seatNumber, t.Seats, tableID)}
	}

	if at, ok := FindGuest(out, guestID); ok {
		if at.TableID == tableID && at.SeatNumber == seatNumber {
			if guestName != "" {
				t.AssignedSeats[indexOfSeat(t.AssignedSeats, seatNumber)].GuestName = guestName
			}
			return out, nil
		}
		return nil, &model.ValidationError{Code: model.CodeGuestSeated, TableID: at.TableID, SeatNumber: at.SeatNumber, GuestID: guestID,
			Message: fmt.Sprintf("guest %q is already seated at table %q seat %d; unassign first", guestID, at.TableID, at.SeatNumber)}
	}

	if si := indexOfSeat(t.AssignedSeats, seatNumber); si >= 0 {
		if t.AssignedSeats[si].Occupied() {
			return nil, &model.ValidationError{Code: model.CodeSeatOccupied, TableID: tableID, SeatNumber: seatNumber,
				GuestID: t.AssignedSeats[si].GuestID,
				Message: fmt.Sprintf("seat %d at table %q is already occupied", seatNumber, tableID)}
		}
		t.AssignedSeats[si].GuestID = guestID
		t.AssignedSeats[si].GuestName = guestName
		return out, nil
	}

	if len(t.AssignedSeats) >= t.Seats {
		return nil, &model.ValidationError{Code: model.CodeTableFull, TableID: tableID,
			Message: fmt.Sprintf("table %q has no free seats", tableID)}
	}
	t.AssignedSeats = append(t.AssignedSeats, model.TableSeat{SeatNumber: seatNumber, GuestID: guestID, GuestName: guestName})
	t.AssignedSeats = sortedSeats(t.AssignedSeats)
	return out, nil
}

// UnassignSeat clears the occupant of (tableID, seatNumber).  Clearing an
// empty seat is a no-op.
func UnassignSeat(tables []model.Table, tableID string, seatNumber int) ([]model.Table, error) {
	out := model.CloneTables(tables)
	ti := indexOfTable(out, tableID)
	if ti < 0 {
		return nil, tableNotFound(tableID)
	}
	t := &out[ti]
	if seatNumber < 1 || seatNumber > t.Seats {
		return nil, &model.ValidationError{Code: model.CodeSeatOutOfRange, TableID: tableID, SeatNumber: seatNumber,
			Message: fmt.Sprintf("seat %d is outside 1..%d at table %q", seatNumber, t.Seats, tableID)}
	}
	if si := indexOfSeat(t.AssignedSeats, seatNumber); si >= 0 {
		t.AssignedSeats = append(t.AssignedSeats[:si], t.AssignedSeats[si+1:]...)
	}
	return out, nil
}

// MoveGuest re-seats a guest who is already seated: it unassigns the
// current seat and assigns the new one in a single step.
func MoveGuest(tables []model.Table, guestID, toTableID string, toSeat int) ([]model.Table, error) {
	at, ok := FindGuest(tables, guestID)
	if !ok {
		return nil, &model.ValidationError{Code: model.CodeGuestNotSeated, GuestID: guestID,
			Message: fmt.Sprintf("guest %q is not seated", guestID)}
	}
	if at.TableID == toTableID && at.SeatNumber == toSeat {
		return model.CloneTables(tables), nil
	}
	cleared, err := UnassignSeat(tables, at.TableID, at.SeatNumber)
	if err != nil {
		return nil, err
	}
	return AssignGuest(cleared, toTableID, toSeat, guestID, at.GuestName)
}

// ReconcileGuestReferences drops every seat whose guest is not in valid
// and reports how many were dropped.  It repairs references left behind
// when a guest is deleted outside the chart's own write.
func ReconcileGuestReferences(tables []model.Table, valid GuestSet) ([]model.Table, int) {
	out := model.CloneTables(tables)
	orphaned := 0
	for i := range out {
		kept := out[i].AssignedSeats[:0]
		for _, s := range out[i].AssignedSeats {
			if s.Occupied() && !valid.Has(s.GuestID) {
				orphaned++
				continue
			}
			kept = append(kept, s)
		}
		out[i].AssignedSeats = kept
	}
	return out, orphaned
}

// RenameGuest refreshes the cached guestName of guestID.  It reports
// whether the guest was found in the chart.
func RenameGuest(tables []model.Table, guestID, name string) ([]model.Table, bool) {
	out := model.CloneTables(tables)
	for i := range out {
		for j := range out[i].AssignedSeats {
			if out[i].AssignedSeats[j].GuestID == guestID {
				out[i].AssignedSeats[j].GuestName = name
				return out, true
			}
		}
	}
	return out, false
}

// UnknownGuests returns the seated guest ids that are missing from valid,
// in chart order.
func UnknownGuests(tables []model.Table, valid GuestSet) []string {
	var missing []string
	for _, t := range tables {
		for _, s := range sortedSeats(t.AssignedSeats) {
			if s.Occupied() && !valid.Has(s.GuestID) {
				missing = append(missing, s.GuestID)
			}
		}
	}
	return missing
}

func tableNotFound(id string) error {
	return &model.ValidationError{Code: model.CodeTableNotFound, TableID: id,
		Message: fmt.Sprintf("table %q does not exist", id)}
}

func indexOfTable(tables []model.Table, id string) int {
	for i := range tables {
		if tables[i].ID == id {
			return i
		}
	}
	return -1
}

func indexOfSeat(seats []model.TableSeat, n int) int {
	for i := range seats {
		if seats[i].SeatNumber == n {
			return i
		}
	}
	return -1
}

// sortedSeats returns a copy of seats ordered by seat number.
func sortedSeats(seats []model.TableSeat) []model.TableSeat {
	out := append([]model.TableSeat(nil), seats...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out
}
