package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionFinding describes a SQL injection pattern detected in a
// caller-supplied parameter value.
type InjectionFinding struct {
	ParamName   string // placeholder the value was supplied for
	ParamValue  string // the offending value
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// ScreenValue checks a single parameter value for SQL injection patterns
// using libinjection. Returns nil when the value is clean.
//
// Values are screened before rendering because rendered values are
// concatenated into the SQL text rather than bound as parameters; the
// quote doubling in Render is the second layer of the same defense.
func ScreenValue(paramName, value string) *InjectionFinding {
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionFinding{
		ParamName:   paramName,
		ParamValue:  value,
		Fingerprint: string(fingerprint),
	}
}

// ScreenValues checks every caller-supplied parameter value and returns a
// finding per dirty value. An empty result means all values are clean.
// Resolver-produced defaults are trusted and must not be passed here; only
// values that crossed the API boundary need screening.
func ScreenValues(values map[string]string) []*InjectionFinding {
	var findings []*InjectionFinding
	for name, value := range values {
		if finding := ScreenValue(name, value); finding != nil {
			findings = append(findings, finding)
		}
	}
	return findings
}
