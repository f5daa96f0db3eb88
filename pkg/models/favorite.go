package models

import "time"

// Favorite marks a report a user pinned in a tenant's favorites table.
type Favorite struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	ReportName string    `json:"report_name"`
	CreatedAt  time.Time `json:"created_at"`
}
