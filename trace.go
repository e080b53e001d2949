package chainmap

import (
	"encoding/json"
)

// Trace captures the audit trail of a single lookup: every level the walk
// visited, in handle-to-root order, and what each contributed.
type Trace struct {
	Key    any          `json:"key"`
	Levels []Provenance `json:"levels"`
}

// Provenance describes one visited level.
type Provenance struct {
	LevelID     string `json:"level_id"`
	Depth       int    `json:"depth"`
	Transparent bool   `json:"transparent,omitempty"`
	Locked      bool   `json:"locked,omitempty"`
	Found       bool   `json:"found"`
	Value       any    `json:"value,omitempty"`
}

// Explain performs the Get walk for key but records every level instead of
// stopping at the first hit. The first entry with Found set reports the
// value Get would return; later entries show the shadowed bindings beneath
// it.
func (c *ChainMap[K, V]) Explain(key K) Trace {
	trace := Trace{Key: key}
	depth := 0
	for level := c.head; level != nil; level = level.parent {
		entry := Provenance{
			LevelID:     level.id,
			Depth:       depth,
			Transparent: level.transparent,
			Locked:      level.locked,
		}
		if value, ok := level.getLocal(key); ok {
			entry.Found = true
			entry.Value = value
		}
		trace.Levels = append(trace.Levels, entry)
		depth++
	}
	return trace
}

// ToJSON serialises the trace for logging or transport.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload previously produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
