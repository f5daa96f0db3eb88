package models

import "time"

// Report is a registered report in a tenant's reports table.
type Report struct {
	ID          int64          `json:"id"`
	ReportName  string         `json:"report_name"`
	DisplayName string         `json:"display_name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Parameters  map[string]any `json:"parameters"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CatalogEntry is one row of the merged report catalog: a registered report,
// a template that exists only on disk, or both.
type CatalogEntry struct {
	ReportName   string         `json:"report_name"`
	DisplayName  string         `json:"display_name"`
	Description  string         `json:"description"`
	Category     string         `json:"category"`
	Parameters   map[string]any `json:"parameters"`
	IsActive     bool           `json:"is_active"`
	IsRegistered bool           `json:"is_registered"`
}

// ParameterSpec describes one report parameter in the catalog metadata.
type ParameterSpec struct {
	Type    string   `json:"type"` // 'string', 'date', 'number'
	Default string   `json:"default,omitempty"`
	Options []string `json:"options,omitempty"`
}
