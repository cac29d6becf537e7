package model

import "time"

const MaxWeddingNameLen = 160

// Wedding is the aggregate that owns a guest list and a seating chart.
// Each user owns at most one wedding (weddings.owner_user_id is unique).
type Wedding struct {
	ID          uint64     `json:"id"`                   // weddings.id
	OwnerUserID uint64     `json:"owner_user_id"`        // weddings.owner_user_id
	Name        string     `json:"name"`                 // weddings.name
	EventDate   *time.Time `json:"event_date,omitempty"` // weddings.event_date (nullable)
	CreatedAt   time.Time  `json:"created_at"`           // weddings.created_at
	UpdatedAt   time.Time  `json:"updated_at"`           // weddings.updated_at
}
