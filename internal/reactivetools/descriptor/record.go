package descriptor

import (
	"encoding/hex"
	"fmt"
)

// Record is a single nodes[]/modules[] entry. Node and module schemas vary
// per backend, so rather than one struct per backend this package
// keeps the raw key/value map and lets the orchestrator's node/module
// factories pull out the fields their backend needs; Get* return the zero
// value when a key is absent so optional fields stay optional.
type Record map[string]interface{}

func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (r Record) Bool(key string) bool {
	v, ok := r[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func (r Record) Uint16(key string) uint16 {
	return uint16(r.number(key))
}

func (r Record) Uint32(key string) uint32 {
	return uint32(r.number(key))
}

func (r Record) number(key string) int64 {
	v, ok := r[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case uint64:
		return int64(n)
	default:
		return 0
	}
}

// IntPtr returns a priority-style optional integer: nil when the key is
// absent, matching model.ModuleBase.Priority.
func (r Record) IntPtr(key string) *int {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	n := int(r.number(key))
	return &n
}

// Bytes hex-decodes a string field; byte fields are stored hex-encoded.
func (r Record) Bytes(key string) ([]byte, error) {
	s := r.String(key)
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("descriptor: field %q is not valid hex: %w", key, err)
	}
	return b, nil
}

// StringSlice returns a []string field (e.g. cflags, ldflags).
func (r Record) StringSlice(key string) []string {
	v, ok := r[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// SetBytes hex-encodes v into key, the inverse of Bytes.
func (r Record) SetBytes(key string, v []byte) {
	if len(v) == 0 {
		return
	}
	r[key] = hex.EncodeToString(v)
}
