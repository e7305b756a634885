package drawing

import (
	"testing"
	"time"
)

func seg(x float64) Segment {
	return Segment{X0: x, Y0: x, X1: x + 1, Y1: x + 1, Width: 3, Color: "#111111"}
}

func TestObserverDiscardsStaleSeq(t *testing.T) {
	var o Observer
	accepted := []int{}
	for _, seq := range []int{3, 1, 4, 2} {
		if o.Apply(LiveState{Round: 0, Seq: seq}) {
			accepted = append(accepted, seq)
		}
	}
	if len(accepted) != 2 || accepted[0] != 3 || accepted[1] != 4 {
		t.Fatalf("expected accepted [3 4], got %v", accepted)
	}
	if o.Seq() != 4 {
		t.Fatalf("last-seen seq should be 4, got %d", o.Seq())
	}
}

func TestObserverAcceptsRoundReset(t *testing.T) {
	var o Observer
	if !o.Apply(LiveState{Round: 1, Seq: 9, Events: []Segment{seg(1)}}) {
		t.Fatalf("first snapshot should be accepted")
	}
	// New round arrives with a lower seq; it is a reset, not a stale update.
	if !o.Apply(LiveState{Round: 2, Seq: 1, Events: []Segment{seg(2)}}) {
		t.Fatalf("round transition must be accepted despite lower seq")
	}
	if o.Round() != 2 || o.Seq() != 1 {
		t.Fatalf("observer did not reset: round=%d seq=%d", o.Round(), o.Seq())
	}
}

func TestObserverDiscardsOldRoundReplay(t *testing.T) {
	var o Observer
	if !o.Apply(LiveState{Round: 1, Seq: 1, Events: []Segment{seg(1)}}) {
		t.Fatalf("first snapshot should be accepted")
	}
	// A replayed snapshot from the superseded round arrives late. Its high
	// seq must not drag the canvas back to the old round.
	if o.Apply(LiveState{Round: 0, Seq: 9, Events: []Segment{seg(0)}}) {
		t.Fatalf("old-round replay must be discarded")
	}
	if o.Round() != 1 || o.Seq() != 1 {
		t.Fatalf("observer regressed: round=%d seq=%d", o.Round(), o.Seq())
	}
	// The current round keeps flowing without being treated as a new reset.
	if !o.Apply(LiveState{Round: 1, Seq: 2, Events: []Segment{seg(1), seg(2)}}) {
		t.Fatalf("next current-round snapshot should be accepted")
	}
	if got := len(o.Canvas()); got != 2 {
		t.Fatalf("expected 2 segments on canvas, got %d", got)
	}
}

func TestObserverCanvasOrdersCheckpointFirst(t *testing.T) {
	var o Observer
	o.Apply(LiveState{
		Round:      0,
		Seq:        5,
		Checkpoint: []Segment{seg(1), seg(2)},
		Events:     []Segment{seg(3)},
	})
	canvas := o.Canvas()
	if len(canvas) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(canvas))
	}
	if canvas[0].X0 != 1 || canvas[1].X0 != 2 || canvas[2].X0 != 3 {
		t.Fatalf("wrong render order: %#v", canvas)
	}
}

func TestDrawerSeqStrictlyIncreasing(t *testing.T) {
	d := NewDrawer(0)
	now := time.Now()
	last := 0
	for i := 0; i < 10; i++ {
		d.Add(seg(float64(i)))
		fields, ok := d.Flush(now)
		if !ok {
			t.Fatalf("flush %d produced nothing", i)
		}
		seq := fields["seq"].(int)
		if seq != last+1 {
			t.Fatalf("seq not contiguous: got %d after %d", seq, last)
		}
		last = seq
	}
}

func TestDrawerFlushEmpty(t *testing.T) {
	d := NewDrawer(0)
	if _, ok := d.Flush(time.Now()); ok {
		t.Fatalf("flush with no pending segments should be a no-op")
	}
	if d.Seq() != 0 {
		t.Fatalf("no-op flush must not advance seq")
	}
}

func TestDrawerCheckpointCompaction(t *testing.T) {
	d := NewDrawer(4)
	now := time.Now()

	// Publish 4 segments one flush at a time; tail reaches the threshold.
	for i := 0; i < 4; i++ {
		d.Add(seg(float64(i)))
		fields, _ := d.Flush(now)
		if _, hasCheckpoint := fields["checkpoint"]; hasCheckpoint {
			t.Fatalf("flush %d should not compact yet", i)
		}
	}

	// The next flush folds the published tail into the checkpoint and
	// carries only the new batch in events.
	d.Add(seg(100))
	fields, _ := d.Flush(now)
	checkpoint, hasCheckpoint := fields["checkpoint"].([]any)
	if !hasCheckpoint || len(checkpoint) != 4 {
		t.Fatalf("expected 4 checkpointed segments, got %#v", fields["checkpoint"])
	}
	events := fields["events"].([]any)
	if len(events) != 1 {
		t.Fatalf("events should hold only the unflushed tail, got %d", len(events))
	}
}

func TestDrawerNextRoundResets(t *testing.T) {
	d := NewDrawer(2)
	now := time.Now()
	d.Add(seg(1), seg(2), seg(3))
	d.Flush(now)

	fields := d.NextRound(now)
	if fields["round"] != 1 || fields["seq"] != 0 {
		t.Fatalf("unexpected reset fields: %#v", fields)
	}
	if len(fields["events"].([]any)) != 0 || len(fields["checkpoint"].([]any)) != 0 {
		t.Fatalf("round reset must clear events and checkpoint")
	}

	d.Add(seg(4))
	next, _ := d.Flush(now)
	if next["seq"] != 1 || next["round"] != 1 {
		t.Fatalf("seq should restart at 1 in the new round: %#v", next)
	}
}

func TestSegmentCodecRoundTrip(t *testing.T) {
	in := []Segment{seg(1), {X0: 0.5, Y0: 1.5, X1: 2.5, Y1: 3.5, Width: 8, Color: "#abcdef"}}
	out := DecodeSegments(EncodeSegments(in))
	if len(out) != len(in) {
		t.Fatalf("length mismatch: %d != %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("segment %d mismatch: %#v != %#v", i, out[i], in[i])
		}
	}
}

func TestDecodeLiveToleratesGarbage(t *testing.T) {
	state := DecodeLive(map[string]any{
		"round":     "not-a-number",
		"seq":       float64(7), // json decoding yields float64
		"events":    []any{"junk", map[string]any{"x0": 1.0, "color": 5}},
		"mystery":   true,
		"updatedAt": "2025-06-01T12:00:00Z",
	})
	if state.Seq != 7 {
		t.Fatalf("seq should decode from float64, got %d", state.Seq)
	}
	if state.Round != 0 {
		t.Fatalf("bad round should fall back to zero, got %d", state.Round)
	}
	if len(state.Events) != 1 || state.Events[0].X0 != 1.0 {
		t.Fatalf("non-map entries should be skipped: %#v", state.Events)
	}
	if state.UpdatedAt.IsZero() {
		t.Fatalf("RFC3339 updatedAt should parse")
	}
}
