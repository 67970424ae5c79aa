package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableID(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

// marshalJSON encodes v, returning nil for empty collections so the column
// stays NULL instead of holding "[]" or "null" literals.
func marshalJSON(v any) (any, error) {
	switch value := v.(type) {
	case []string:
		if len(value) == 0 {
			return nil, nil
		}
	case []AuditEntry:
		if len(value) == 0 {
			return nil, nil
		}
	case *PendingConfirmation:
		if value == nil {
			return nil, nil
		}
	case *Resolution:
		if value == nil {
			return nil, nil
		}
	case nil:
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json column: %w", err)
	}
	return string(raw), nil
}

func unmarshalStrings(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil, fmt.Errorf("unmarshal string list: %w", err)
	}
	return out, nil
}

func intPointer(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int64)
	return &v
}
