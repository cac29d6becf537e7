package model

import "fmt"

// Validation codes shared by guest validation and the seat planner.  They
// are returned to clients verbatim in the error body.
const (
	CodeRequired          = "required"
	CodeInvalidField      = "invalid_field"
	CodeInvalidRSVP       = "invalid_rsvp_status"
	CodeInvalidShape      = "invalid_shape"
	CodeInvalidCapacity   = "invalid_capacity"
	CodeDuplicateTable    = "duplicate_table"
	CodeOverCapacity      = "over_capacity"
	CodeSeatOutOfRange    = "seat_out_of_range"
	CodeDuplicateSeat     = "duplicate_seat"
	CodeSeatOccupied      = "seat_occupied"
	CodeGuestDoubleBooked = "guest_double_booked"
	CodeGuestSeated       = "guest_already_seated"
	CodeGuestNotSeated    = "guest_not_seated"
	CodeTableNotFound     = "table_not_found"
	CodeTableFull         = "table_full"
	CodeUnknownGuest      = "unknown_guest"
	CodeUnknownIntent     = "unknown_intent"
)

// ValidationError reports malformed input or a seating invariant violation.
// It never reaches the storage layer.
type ValidationError struct {
	Code       string `json:"code"`
	Field      string `json:"field,omitempty"`
	Message    string `json:"message"`
	TableID    string `json:"tableId,omitempty"`
	SeatNumber int    `json:"seatNumber,omitempty"`
	GuestID    string `json:"guestId,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed (%s): %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed (%s): %s", e.Code, e.Message)
}
