package types

import "time"

// Event channels published after successful state changes.
const (
	EventUserFired            = "users.fired"
	EventUserPromoted         = "users.promoted"
	EventUserSalaryChanged    = "users.salary_changed"
	EventPayrollRequested     = "payroll.requested"
	EventPayrollStatusChanged = "payroll.status_changed"
	EventPayrollPaid          = "payroll.paid"
)

// Event is the JSON body of a published domain event.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	EntityID   string         `json:"entityId"`
	Actor      string         `json:"actor,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}
