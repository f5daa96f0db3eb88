package sql

import "time"

// FallbackTableName is the target table used for {TABLE_NAME} when no
// table has been configured for the tenant yet.
const FallbackTableName = "customer_denizmuzesi"

// excludedWordsDefault is the stop-word list fed into IN (...) clauses by
// word-frequency reports. Turkish function words, already quoted.
const excludedWordsDefault = "'ve', 'veya', 'için', 'bir', 'ile', 'bu', 'de', 'da'"

// topicCaseDefault is the fallback CASE expression used by topic reports
// when the caller supplies no categorization SQL of its own.
const topicCaseDefault = "CASE WHEN LOWER(content) LIKE '%saat%' THEN 'Çalışma Saatleri' ELSE 'Diğer' END"

// Defaults resolves placeholder names to context-appropriate default
// values. The zero value resolves {TABLE_NAME} to FallbackTableName and
// date placeholders against the wall clock; both can be overridden, the
// table name from tenant configuration and the clock for tests.
//
// Resolution must behave identically wherever it is invoked (conversion,
// catalog listing, execution), so all call sites share this type.
type Defaults struct {
	// TableName overrides the {TABLE_NAME} default when non-empty.
	TableName string

	// Now supplies the clock for date defaults. Nil means time.Now.
	Now func() time.Time
}

// For returns the default value for a placeholder name. Unknown names
// return the empty string, never an error: template authors may invent
// ad-hoc placeholders, and the caller decides whether empty is acceptable.
// Date defaults are computed from "now" at resolution time, so every
// execution gets a fresh relative window.
func (d Defaults) For(name string) string {
	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}

	switch name {
	case "TABLE_NAME":
		if d.TableName != "" {
			return d.TableName
		}
		return FallbackTableName
	case "START_DATE":
		return now.AddDate(0, 0, -7).Format("2006-01-02")
	case "END_DATE", "SELECTED_DATE":
		return now.Format("2006-01-02")
	case "INTERVAL":
		return "24 hours"
	case "TIME_ZONE":
		return "UTC"
	case "DAYS_INTERVAL":
		return "30"
	case "HOURS_INTERVAL":
		return "24"
	case "EXCLUDED_WORDS":
		return excludedWordsDefault
	case "MIN_WORD_LENGTH":
		return "3"
	case "MIN_WORD_COUNT", "MIN_OCCURRENCE":
		return "5"
	case "WORD_LIMIT", "RESULT_LIMIT":
		return "100"
	case "RESPONSE_TIME_THRESHOLD":
		return "10"
	case "SESSION_LENGTH_MIN":
		return "3"
	case "MESSAGE_COUNT_MIN":
		return "5"
	case "MIN_MESSAGE_COUNT":
		return "2"
	case "SESSION_ID", "USER_ID":
		return ""
	case "CONTEXT_FILTER":
		return "TRUE"
	case "TOPIC_CASE_EXPRESSION":
		return topicCaseDefault
	default:
		return ""
	}
}

// ResolveAll maps every placeholder name through For. Used by callers that
// need a full default value set for a template in one step.
func (d Defaults) ResolveAll(names []string) map[string]string {
	values := make(map[string]string, len(names))
	for _, name := range names {
		values[name] = d.For(name)
	}
	return values
}
