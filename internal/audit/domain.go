// Package audit is the read side of the audit trail: listing and filtering the
// append-only audit_logs written by shared.AuditRecorder.
package audit

import (
	"encoding/json"
	"time"
)

// Entry is one recorded mutation.
type Entry struct {
	ID        int64           `json:"id"`
	ActorID   *int64          `json:"actor_id,omitempty"`
	Action    string          `json:"action"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entity_id"`
	OldValues json.RawMessage `json:"old_values,omitempty"`
	NewValues json.RawMessage `json:"new_values,omitempty"`
	IP        string          `json:"ip,omitempty"`
	UserAgent string          `json:"user_agent,omitempty"`
	At        time.Time       `json:"occurred_at"`
}

// ListRequest filters the trail.
type ListRequest struct {
	Entity   *string
	EntityID *string
	ActorID  *int64
	Action   *string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}
