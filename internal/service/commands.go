package service

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/iliyamo/wedding-planner/internal/model"
)

// GuestCommand is the closed set of roster writes accepted by
// POST /guests. Only the types in this file implement it.
type GuestCommand interface {
	guestCommand()
}

// CreateGuestCommand adds one guest.
type CreateGuestCommand struct {
	Guest model.GuestInput
}

// UpdateGuestCommand merges Patch into an existing guest.
type UpdateGuestCommand struct {
	GuestID string
	Patch   model.GuestPatch
}

// DeleteGuestCommand removes a guest and frees their seat.
type DeleteGuestCommand struct {
	GuestID string
}

// BulkImportCommand adds many guests atomically.
type BulkImportCommand struct {
	Guests []model.GuestInput
}

func (CreateGuestCommand) guestCommand() {}
func (UpdateGuestCommand) guestCommand() {}
func (DeleteGuestCommand) guestCommand() {}
func (BulkImportCommand) guestCommand()  {}

// Intent names on the wire.
const (
	IntentCreate     = "create"
	IntentUpdate     = "update"
	IntentDelete     = "delete"
	IntentBulkImport = "bulk-import"
)

type guestEnvelope struct {
	Intent  string             `json:"intent"`
	GuestID string             `json:"guestId"`
	Guest   json.RawMessage    `json:"guest"`
	Guests  []model.GuestInput `json:"guests"`
}

// DecodeGuestCommand turns a POST /guests body into its command. Unknown
// or missing intents and malformed payloads are ValidationErrors.
func DecodeGuestCommand(body []byte) (GuestCommand, error) {
	var env guestEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &model.ValidationError{Code: model.CodeInvalidField, Message: "malformed request body"}
	}

	switch strings.TrimSpace(env.Intent) {
	case IntentCreate:
		var in model.GuestInput
		if err := decodeObject(env.Guest, &in); err != nil {
			return nil, err
		}
		return CreateGuestCommand{Guest: in}, nil
	case IntentUpdate:
		id, err := requireGuestID(env.GuestID)
		if err != nil {
			return nil, err
		}
		var p model.GuestPatch
		if err := decodeObject(env.Guest, &p); err != nil {
			return nil, err
		}
		return UpdateGuestCommand{GuestID: id, Patch: p}, nil
	case IntentDelete:
		id, err := requireGuestID(env.GuestID)
		if err != nil {
			return nil, err
		}
		return DeleteGuestCommand{GuestID: id}, nil
	case IntentBulkImport:
		if env.Guests == nil {
			return nil, &model.ValidationError{Code: model.CodeRequired, Field: "guests", Message: "guests is required"}
		}
		return BulkImportCommand{Guests: env.Guests}, nil
	case "":
		return nil, &model.ValidationError{Code: model.CodeRequired, Field: "intent", Message: "intent is required"}
	default:
		return nil, &model.ValidationError{Code: model.CodeUnknownIntent, Field: "intent",
			Message: "intent must be one of create, update, delete, bulk-import"}
	}
}

func requireGuestID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", &model.ValidationError{Code: model.CodeRequired, Field: "guestId", Message: "guestId is required"}
	}
	return id, nil
}

func decodeObject(raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return &model.ValidationError{Code: model.CodeRequired, Field: "guest", Message: "guest is required"}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &model.ValidationError{Code: model.CodeInvalidField, Field: "guest", Message: "guest has an invalid shape"}
	}
	return nil
}
