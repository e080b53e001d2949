package chainmap

import (
	"testing"
)

func TestExplainRecordsEveryLevel(t *testing.T) {
	ch0 := NewWith(map[string]int{"a": 1})
	ch1 := ch0.ExtendFallthrough()
	ch2 := ch1.ExtendWith(map[string]int{"a": 2})

	trace := ch2.Explain("a")
	if len(trace.Levels) != 3 {
		t.Fatalf("expected 3 visited levels, got %d", len(trace.Levels))
	}

	top := trace.Levels[0]
	if !top.Found || top.Value != 2 || top.Depth != 0 {
		t.Fatalf("unexpected top provenance: %+v", top)
	}
	if top.LevelID != ch2.LevelID() {
		t.Fatalf("expected top level id to match handle")
	}

	middle := trace.Levels[1]
	if !middle.Transparent || middle.Found {
		t.Fatalf("expected transparent middle level, got %+v", middle)
	}

	bottom := trace.Levels[2]
	if !bottom.Found || bottom.Value != 1 {
		t.Fatalf("expected shadowed root binding in trace, got %+v", bottom)
	}
}

func TestExplainMarksLockedLevels(t *testing.T) {
	readonly := New[string, int]().Readonly()
	trace := readonly.Explain("missing")
	if len(trace.Levels) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(trace.Levels))
	}
	if !trace.Levels[0].Locked {
		t.Fatalf("expected top level to report locked")
	}
	for _, level := range trace.Levels {
		if level.Found {
			t.Fatalf("expected no hits, got %+v", level)
		}
	}
}

func TestTraceJSONRoundTrip(t *testing.T) {
	ch := NewWith(map[string]int{"a": 1})
	trace := ch.Explain("a")

	payload, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	decoded, err := TraceFromJSON(payload)
	if err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if decoded.Key != "a" {
		t.Fatalf("expected key to survive round trip, got %v", decoded.Key)
	}
	if len(decoded.Levels) != 1 || !decoded.Levels[0].Found {
		t.Fatalf("unexpected decoded levels: %+v", decoded.Levels)
	}
	if decoded.Levels[0].LevelID != trace.Levels[0].LevelID {
		t.Fatalf("expected level id to survive round trip")
	}
}
