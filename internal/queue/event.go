// Package queue defines the planning event payload and its broker consumer.
package queue

import (
	"fmt"
	"strings"
	"time"
)

// PlanningQueue is the durable queue every planning event goes to.
const PlanningQueue = "planning.events"

// Event types.
const (
	GuestCreated   = "guest.created"
	GuestUpdated   = "guest.updated"
	GuestDeleted   = "guest.deleted"
	GuestsImported = "guests.imported"
	SeatingSaved   = "seating.saved"
	SeatingDeleted = "seating.deleted"
)

// PlanningEvent is published after a successful roster or seating write.
// It carries enough for consumers to log or notify without reading the
// primary database.
type PlanningEvent struct {
	Type         string   `json:"type"`
	WeddingID    uint64   `json:"wedding_id"`
	UserID       uint64   `json:"user_id,omitempty"`
	GuestIDs     []string `json:"guest_ids,omitempty"`
	Count        int      `json:"count,omitempty"`
	ChartVersion uint32   `json:"chart_version,omitempty"`
	Orphaned     int      `json:"orphaned,omitempty"`
	OccurredAt   string   `json:"occurred_at"`
}

// NewEvent stamps an event with the current UTC time.
func NewEvent(eventType string, weddingID, userID uint64) PlanningEvent {
	return PlanningEvent{
		Type:       eventType,
		WeddingID:  weddingID,
		UserID:     userID,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Line renders the single-line form written to logs/planning.log.
func (ev PlanningEvent) Line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | wedding_id=%d", ev.OccurredAt, ev.Type, ev.WeddingID)
	if ev.UserID > 0 {
		fmt.Fprintf(&b, " | user_id=%d", ev.UserID)
	}
	if len(ev.GuestIDs) > 0 {
		fmt.Fprintf(&b, " | guests=[%s]", strings.Join(ev.GuestIDs, ","))
	}
	if ev.Count > 0 {
		fmt.Fprintf(&b, " | count=%d", ev.Count)
	}
	if ev.ChartVersion > 0 {
		fmt.Fprintf(&b, " | chart_version=%d", ev.ChartVersion)
	}
	if ev.Orphaned > 0 {
		fmt.Fprintf(&b, " | orphaned=%d", ev.Orphaned)
	}
	b.WriteByte('\n')
	return b.String()
}
