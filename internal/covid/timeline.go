package covid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Timeline is an insertion-ordered map of date keys (d_20200321) to
// cumulative counts. JSON round-trips preserve key order, which follows
// the source table's column order.
type Timeline struct {
	keys   []string
	values map[string]int64
}

// NewTimeline creates an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{values: make(map[string]int64)}
}

// Set stores a count for a date key. An existing key is updated in
// place and keeps its position.
func (t *Timeline) Set(key string, v int64) {
	if t.values == nil {
		t.values = make(map[string]int64)
	}
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = v
}

// Get returns the count for a date key.
func (t *Timeline) Get(key string) (int64, bool) {
	v, ok := t.values[key]
	return v, ok
}

// Len returns the number of entries.
func (t *Timeline) Len() int {
	return len(t.keys)
}

// Keys returns the date keys in insertion order.
func (t *Timeline) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Latest returns the final entry, which for cumulative series is the
// most recent count. ok is false for an empty timeline.
func (t *Timeline) Latest() (key string, v int64, ok bool) {
	if len(t.keys) == 0 {
		return "", 0, false
	}
	key = t.keys[len(t.keys)-1]
	return key, t.values[key], true
}

// MarshalJSON renders the timeline as a JSON object with keys in
// insertion order.
func (t *Timeline) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range t.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(t.values[k], 10))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving its key order.
func (t *Timeline) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("timeline: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("timeline: expected object, got %v", tok)
	}

	t.keys = nil
	t.values = make(map[string]int64)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("timeline: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("timeline: expected string key, got %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("timeline %s: %w", key, err)
		}
		num, ok := valTok.(json.Number)
		if !ok {
			return fmt.Errorf("timeline %s: expected number, got %v", key, valTok)
		}
		v, err := num.Int64()
		if err != nil {
			return fmt.Errorf("timeline %s: %w", key, err)
		}
		t.Set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("timeline: %w", err)
	}
	return nil
}
