package graph

import (
	"encoding/json"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/utils"
)

const dateLayout = "2006-01-02"

func intArg(args map[string]interface{}, name string) (int, error) {
	switch v := args[name].(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, utils.NewValidationError(camelToSnake(name), "invalid integer %s", v)
		}
		return int(n), nil
	default:
		return 0, utils.NewValidationError(camelToSnake(name), "invalid integer %v", v)
	}
}

func stringArg(args map[string]interface{}, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}

// parseTime accepts RFC3339 timestamps and plain dates. dateOnly reports the latter.
func parseTime(field string, v interface{}) (t time.Time, dateOnly bool, err error) {
	switch v := v.(type) {
	case time.Time:
		return v, false, nil
	case string:
		s := strings.TrimSpace(v)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t, false, nil
		}
		if t, err := time.Parse(dateLayout, s); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, utils.NewValidationError(field, "invalid date %v, expected YYYY-MM-DD or RFC3339", v)
}

// timeArg reads an optional Time argument. A plain date used as an upper bound covers the whole day.
func timeArg(args map[string]interface{}, name string, def time.Time, upperBound bool) (time.Time, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	t, dateOnly, err := parseTime(camelToSnake(name), v)
	if err != nil {
		return time.Time{}, err
	}
	if dateOnly && upperBound {
		t = endOfDay(t)
	}
	return t, nil
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)
}

// camelToSnake maps schema names onto the models' json names: bankAccountId -> bank_account_id.
func camelToSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
