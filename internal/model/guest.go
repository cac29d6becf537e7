package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Column limits of the guests table, in characters.
const (
	MaxGuestNameLen = 160
	MaxEmailLen     = 255
	MaxPhoneLen     = 40
	MaxGroupLen     = 120
	MaxDietaryLen   = 255
	MaxNotesLen     = 10000
	MaxPlusOnes     = 99
)

// CheckLength rejects values longer than max characters.
func CheckLength(field, v string, max int) error {
	if utf8.RuneCountInString(v) > max {
		return &ValidationError{Code: CodeInvalidField, Field: field,
			Message: fmt.Sprintf("%s must be at most %d characters", field, max)}
	}
	return nil
}

func checkPlusOnes(n int) error {
	if n < 0 || n > MaxPlusOnes {
		return &ValidationError{Code: CodeInvalidField, Field: "plus_ones",
			Message: fmt.Sprintf("plus_ones must be between 0 and %d", MaxPlusOnes)}
	}
	return nil
}

// checkLimits validates g's fields against the column sizes.
func checkLimits(g Guest) error {
	if err := CheckLength("name", g.Name, MaxGuestNameLen); err != nil {
		return err
	}
	for _, f := range []struct {
		name string
		v    *string
		max  int
	}{
		{"email", g.Email, MaxEmailLen},
		{"phone", g.Phone, MaxPhoneLen},
		{"group_name", g.GroupName, MaxGroupLen},
		{"dietary", g.Dietary, MaxDietaryLen},
		{"notes", g.Notes, MaxNotesLen},
	} {
		if f.v == nil {
			continue
		}
		if err := CheckLength(f.name, *f.v, f.max); err != nil {
			return err
		}
	}
	return checkPlusOnes(g.PlusOnes)
}

// RSVPStatus is a guest's response to the invitation.  Any status may move
// to any other; there is no state machine.
type RSVPStatus string

const (
	RSVPPending RSVPStatus = "pending"
	RSVPYes     RSVPStatus = "yes"
	RSVPNo      RSVPStatus = "no"
)

// Valid reports whether s is one of the three known statuses.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPPending, RSVPYes, RSVPNo:
		return true
	}
	return false
}

// ParseRSVPStatus normalizes user input ("YES", " pending ") into an
// RSVPStatus.  An empty string maps to pending.
func ParseRSVPStatus(raw string) (RSVPStatus, error) {
	s := RSVPStatus(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return RSVPPending, nil
	}
	if !s.Valid() {
		return "", &ValidationError{Code: CodeInvalidRSVP, Message: "rsvp_status must be one of yes, no, pending"}
	}
	return s, nil
}

// Guest represents one invitee on a wedding's roster.  This struct
// corresponds to a row in the `guests` table.  WeddingID never changes
// after the row is created.
//
// Fields:
//
//	ID         uuid primary key generated on create.
//	WeddingID  owning wedding.
//	Name       display name, required.
//	RSVPStatus yes, no or pending.
//	PlusOnes   number of additional people the guest brings.
type Guest struct {
	ID         string     `json:"id"`                   // guests.id
	WeddingID  uint64     `json:"wedding_id"`           // guests.wedding_id
	Name       string     `json:"name"`                 // guests.name
	RSVPStatus RSVPStatus `json:"rsvp_status"`          // guests.rsvp_status
	Email      *string    `json:"email,omitempty"`      // guests.email (nullable)
	Phone      *string    `json:"phone,omitempty"`      // guests.phone (nullable)
	GroupName  *string    `json:"group_name,omitempty"` // guests.group_name (nullable)
	Dietary    *string    `json:"dietary,omitempty"`    // guests.dietary (nullable)
	Notes      *string    `json:"notes,omitempty"`      // guests.notes (nullable)
	PlusOnes   int        `json:"plus_ones"`            // guests.plus_ones
	CreatedAt  time.Time  `json:"created_at"`           // guests.created_at
	UpdatedAt  time.Time  `json:"updated_at"`           // guests.updated_at
}

// GuestInput is the payload accepted when creating a guest, singly or in bulk.
type GuestInput struct {
	Name       string  `json:"name"`
	RSVPStatus string  `json:"rsvp_status"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	GroupName  *string `json:"group_name"`
	Dietary    *string `json:"dietary"`
	Notes      *string `json:"notes"`
	PlusOnes   int     `json:"plus_ones"`
}

// GuestPatch carries a partial update; nil fields are left untouched.
type GuestPatch struct {
	Name       *string `json:"name"`
	RSVPStatus *string `json:"rsvp_status"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	GroupName  *string `json:"group_name"`
	Dietary    *string `json:"dietary"`
	Notes      *string `json:"notes"`
	PlusOnes   *int    `json:"plus_ones"`
}

// Empty reports whether the patch changes nothing.
func (p GuestPatch) Empty() bool {
	return p.Name == nil && p.RSVPStatus == nil && p.Email == nil && p.Phone == nil &&
		p.GroupName == nil && p.Dietary == nil && p.Notes == nil && p.PlusOnes == nil
}

// NewGuest validates in and builds a Guest for weddingID.  The caller is
// responsible for assigning ID and timestamps.
func NewGuest(weddingID uint64, in GuestInput) (Guest, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Guest{}, &ValidationError{Code: CodeRequired, Field: "name", Message: "name is required"}
	}
	status, err := ParseRSVPStatus(in.RSVPStatus)
	if err != nil {
		return Guest{}, err
	}
	g := Guest{
		WeddingID:  weddingID,
		Name:       name,
		RSVPStatus: status,
		Email:      trimOptional(in.Email),
		Phone:      trimOptional(in.Phone),
		GroupName:  trimOptional(in.GroupName),
		Dietary:    trimOptional(in.Dietary),
		Notes:      trimOptional(in.Notes),
		PlusOnes:   in.PlusOnes,
	}
	if err := checkLimits(g); err != nil {
		return Guest{}, err
	}
	return g, nil
}

// Apply merges p into g and validates the result.  WeddingID and ID are
// never modified.
func (p GuestPatch) Apply(g Guest) (Guest, error) {
	orig := g
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return orig, &ValidationError{Code: CodeRequired, Field: "name", Message: "name must not be empty"}
		}
		g.Name = name
	}
	if p.RSVPStatus != nil {
		s, err := ParseRSVPStatus(*p.RSVPStatus)
		if err != nil {
			return orig, err
		}
		g.RSVPStatus = s
	}
	if p.Email != nil {
		g.Email = trimOptional(p.Email)
	}
	if p.Phone != nil {
		g.Phone = trimOptional(p.Phone)
	}
	if p.GroupName != nil {
		g.GroupName = trimOptional(p.GroupName)
	}
	if p.Dietary != nil {
		g.Dietary = trimOptional(p.Dietary)
	}
	if p.Notes != nil {
		g.Notes = trimOptional(p.Notes)
	}
	if p.PlusOnes != nil {
		g.PlusOnes = *p.PlusOnes
	}
	if err := checkLimits(g); err != nil {
		return orig, err
	}
	return g, nil
}

// trimOptional returns nil for nil or blank input so that empty strings
// clear a nullable column.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
