package models

import "time"

// AuditLog is one row of a tenant's logs table, joined with the acting
// user's name for display.
type AuditLog struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Audit action names recorded by the engine.
const (
	ActionLogin        = "login"
	ActionRunReport    = "run_report"
	ActionCreateReport = "create_report"
	ActionUpdateReport = "update_report"
	ActionDeleteReport = "delete_report"
	ActionSetup        = "setup"
	ActionResetSystem  = "reset_system"
)
