package sql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 20, 15, 4, 5, 0, time.UTC)
}

func TestDefaultsFor(t *testing.T) {
	d := Defaults{Now: fixedClock}

	tests := []struct {
		name     string
		expected string
	}{
		{"TABLE_NAME", FallbackTableName},
		{"START_DATE", "2024-05-13"},
		{"END_DATE", "2024-05-20"},
		{"SELECTED_DATE", "2024-05-20"},
		{"INTERVAL", "24 hours"},
		{"TIME_ZONE", "UTC"},
		{"DAYS_INTERVAL", "30"},
		{"HOURS_INTERVAL", "24"},
		{"EXCLUDED_WORDS", "'ve', 'veya', 'için', 'bir', 'ile', 'bu', 'de', 'da'"},
		{"MIN_WORD_LENGTH", "3"},
		{"MIN_WORD_COUNT", "5"},
		{"MIN_OCCURRENCE", "5"},
		{"WORD_LIMIT", "100"},
		{"RESULT_LIMIT", "100"},
		{"RESPONSE_TIME_THRESHOLD", "10"},
		{"SESSION_LENGTH_MIN", "3"},
		{"MESSAGE_COUNT_MIN", "5"},
		{"MIN_MESSAGE_COUNT", "2"},
		{"SESSION_ID", ""},
		{"USER_ID", ""},
		{"CONTEXT_FILTER", "TRUE"},
		{"UNKNOWN_PARAM", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, d.For(tt.name))
		})
	}
}

func TestDefaultsTableNameOverride(t *testing.T) {
	d := Defaults{TableName: "customer_museum"}
	assert.Equal(t, "customer_museum", d.For("TABLE_NAME"))

	// Override affects only the table name.
	assert.Equal(t, "100", d.For("RESULT_LIMIT"))
}

func TestDefaultsTopicCaseExpression(t *testing.T) {
	d := Defaults{}
	expr := d.For("TOPIC_CASE_EXPRESSION")
	assert.Contains(t, expr, "CASE WHEN")
	assert.Contains(t, expr, "ELSE")
	assert.Contains(t, expr, "END")
}

// Non-date defaults are constant; date defaults are deterministic for a
// fixed clock.
func TestDefaultsDeterministic(t *testing.T) {
	d := Defaults{Now: fixedClock}
	for _, name := range []string{"START_DATE", "END_DATE", "RESULT_LIMIT", "EXCLUDED_WORDS"} {
		assert.Equal(t, d.For(name), d.For(name), "default for %s changed between calls", name)
	}
}

func TestDefaultsResolveAll(t *testing.T) {
	d := Defaults{Now: fixedClock, TableName: "customer_acme"}
	values := d.ResolveAll([]string{"START_DATE", "TABLE_NAME", "NOT_A_REAL_ONE"})

	assert.Equal(t, map[string]string{
		"START_DATE":     "2024-05-13",
		"TABLE_NAME":     "customer_acme",
		"NOT_A_REAL_ONE": "",
	}, values)
}
