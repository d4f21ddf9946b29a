package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const (
	MetadataKeyBefore = "before"
	MetadataKeyAfter  = "after"
)

// Metadata is an open map of structured activity details.
// Values are restricted to JSON-representable types so entries stay
// queryable in the JSONB column.
type Metadata map[string]any

// Validate checks every key and value in the map
func (m Metadata) Validate() error {
	for k, v := range m {
		if k == "" {
			return fmt.Errorf("metadata key cannot be empty")
		}
		if err := validateMetadataValue(v); err != nil {
			return fmt.Errorf("metadata key %q: %w", k, err)
		}
	}
	return nil
}

func validateMetadataValue(v any) error {
	switch val := v.(type) {
	case nil, string, bool, json.Number, time.Time,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		[]string, []int:
		return nil
	case float32:
		return validateFloat(float64(val))
	case float64:
		return validateFloat(val)
	case []any:
		for i, item := range val {
			if err := validateMetadataValue(item); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	case map[string]any:
		return Metadata(val).Validate()
	case Metadata:
		return val.Validate()
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
}

func validateFloat(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite number")
	}
	return nil
}

// Value implements driver.Valuer for the JSONB column
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return data, nil
}

// Scan implements sql.Scanner for the JSONB column
func (m *Metadata) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Metadata", src)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	out := Metadata{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	*m = out
	return nil
}
