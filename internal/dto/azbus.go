package dto

import (
	"fmt"
	"time"
)

type ChangeAction string

const (
	ChangeCreated ChangeAction = "created"
	ChangeUpdated ChangeAction = "updated"
	ChangeDeleted ChangeAction = "deleted"
)

// ChangeMessage announces a committed write so other instances can drop
// their cached snapshot.
type ChangeMessage struct {
	Action     ChangeAction `json:"action"`
	DocumentID string       `json:"document_id"`
	HRMSID     string       `json:"hrms_id,omitempty"`
	Origin     string       `json:"origin"`
	OccurredAt time.Time    `json:"occurred_at"`
}

func (s *ChangeMessage) Validate() error {
	switch s.Action {
	case ChangeCreated, ChangeUpdated, ChangeDeleted:
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}
	if s.DocumentID == "" {
		return fmt.Errorf("document_id is required")
	}
	if s.Origin == "" {
		return fmt.Errorf("origin is required")
	}
	return nil
}
