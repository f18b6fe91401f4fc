package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// DataMap is the open key/value container a conversation accumulates across
// turns. Stored as JSONB.
type DataMap map[string]string

func (m DataMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *DataMap) Scan(src any) error {
	if src == nil {
		*m = DataMap{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into DataMap", src)
	}
	if len(raw) == 0 {
		*m = DataMap{}
		return nil
	}
	return json.Unmarshal(raw, m)
}

// Clone returns a shallow copy so engines can mutate turn-local state
// without aliasing the loaded row.
func (m DataMap) Clone() DataMap {
	out := make(DataMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
