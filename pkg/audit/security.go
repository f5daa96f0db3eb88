// Package audit provides security audit logging for SIEM consumption.
// Security-relevant events are logged as structured JSON, separate from the
// tenant's in-database activity log.
package audit

import (
	"time"

	"go.uber.org/zap"
)

// SecurityEventType categorizes security-relevant events for filtering and
// alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection detects SQL
	// injection patterns in a report parameter.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventLoginFailure is logged for rejected login attempts.
	EventLoginFailure SecurityEventType = "login_failure"
	// EventSystemReset is logged when an admin drops the tenant's tables.
	EventSystemReset SecurityEventType = "system_reset"
)

// SQLInjectionDetails contains specifics of a detected injection attempt.
type SQLInjectionDetails struct {
	ReportName  string `json:"report_name"`
	ParamName   string `json:"param_name"`
	ParamValue  string `json:"param_value"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a SecurityAuditor writing through the given
// logger.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger}
}

// LogInjectionAttempt records a rejected report parameter.
func (a *SecurityAuditor) LogInjectionAttempt(username string, details SQLInjectionDetails) {
	a.log(EventSQLInjectionAttempt, "critical", username,
		zap.String("report_name", details.ReportName),
		zap.String("param_name", details.ParamName),
		zap.String("param_value", details.ParamValue),
		zap.String("fingerprint", details.Fingerprint))
}

// LogLoginFailure records a rejected login attempt.
func (a *SecurityAuditor) LogLoginFailure(username, clientIP string) {
	a.log(EventLoginFailure, "warning", username,
		zap.String("client_ip", clientIP))
}

// LogSystemReset records an admin-triggered tenant reset.
func (a *SecurityAuditor) LogSystemReset(username string) {
	a.log(EventSystemReset, "critical", username)
}

func (a *SecurityAuditor) log(eventType SecurityEventType, severity, username string, fields ...zap.Field) {
	base := []zap.Field{
		zap.Time("timestamp", time.Now().UTC()),
		zap.String("event_type", string(eventType)),
		zap.String("severity", severity),
		zap.String("username", username),
	}
	a.logger.Warn("security event", append(base, fields...)...)
}
