package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/seedling/internal/ir"
)

// RecordKey is the key-value store key for a record of typeName under id.
// The NUL separator keeps type names from running into ids.
func RecordKey(typeName, id string) []byte {
	key := make([]byte, 0, len("record/")+len(typeName)+1+len(id))
	key = append(key, "record/"...)
	key = append(key, typeName...)
	key = append(key, 0)
	return append(key, id...)
}

// MarshalRecord encodes rec for key-value backends.
func MarshalRecord(rec *Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}
	return data, nil
}

// UnmarshalRecord decodes a record written by MarshalRecord.
func UnmarshalRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	if rec.Attributes == nil {
		rec.Attributes = ir.IRObject{}
	}
	return &rec, nil
}
