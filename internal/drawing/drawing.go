// Package drawing implements the live freehand channel: a single drawer
// publishes batched line segments with a strictly increasing sequence number,
// observers reconcile by sequence, and older segments are periodically folded
// into a checkpoint so per-update payloads stay bounded as a drawing grows.
package drawing

import "time"

// Segment is one straight stroke piece in canvas coordinates.
type Segment struct {
	X0    float64 `json:"x0"`
	Y0    float64 `json:"y0"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	Width float64 `json:"width"`
	Color string  `json:"color"`
}

// LiveState mirrors the live-drawing document. Events holds only the
// unchecked-pointed tail; Checkpoint holds everything flushed before it.
type LiveState struct {
	Round      int
	Seq        int
	Events     []Segment
	Checkpoint []Segment
	UpdatedAt  time.Time
}

// EncodeSegments converts segments into store field values.
func EncodeSegments(segments []Segment) []any {
	out := make([]any, len(segments))
	for i, s := range segments {
		out[i] = map[string]any{
			"x0":    s.X0,
			"y0":    s.Y0,
			"x1":    s.X1,
			"y1":    s.Y1,
			"width": s.Width,
			"color": s.Color,
		}
	}
	return out
}

// DecodeSegments reads segments back out of a store field value. Entries
// that are not field maps and fields of unexpected types are skipped rather
// than failing the whole snapshot.
func DecodeSegments(value any) []Segment {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]Segment, 0, len(list))
	for _, item := range list {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		seg := Segment{
			X0:    floatField(fields, "x0"),
			Y0:    floatField(fields, "y0"),
			X1:    floatField(fields, "x1"),
			Y1:    floatField(fields, "y1"),
			Width: floatField(fields, "width"),
		}
		if c, ok := fields["color"].(string); ok {
			seg.Color = c
		}
		out = append(out, seg)
	}
	return out
}

// DecodeLive reads a LiveState from a document field map. Unknown fields are
// ignored; missing fields keep zero values.
func DecodeLive(fields map[string]any) LiveState {
	state := LiveState{
		Round:      intField(fields, "round"),
		Seq:        intField(fields, "seq"),
		Events:     DecodeSegments(fields["events"]),
		Checkpoint: DecodeSegments(fields["checkpoint"]),
	}
	if t, ok := fields["updatedAt"].(time.Time); ok {
		state.UpdatedAt = t
	} else if s, ok := fields["updatedAt"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			state.UpdatedAt = parsed
		}
	}
	return state
}

func floatField(fields map[string]any, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func intField(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
