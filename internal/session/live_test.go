package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"partydeck/internal/drawing"
	"partydeck/internal/store"
)

// End-to-end drawing round: the pen holder batches and flushes segments
// through the store, a late-joining observer reconstructs the full canvas
// from checkpoint plus tail.
func TestLiveDrawingRoundTrip(t *testing.T) {
	m := store.NewMemory()
	defer m.Close()

	drawer := newTestSync(t, m, "artist")
	drawer.SetPenHolder("s1", "artist")
	pen := drawing.NewDrawer(4)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	total := 0
	for batch := 0; batch < 7; batch++ {
		pen.Add(drawing.Segment{X0: float64(total), X1: float64(total) + 1, Width: 2, Color: "#000"})
		total++
		fields, ok := pen.Flush(now)
		if !ok {
			t.Fatalf("flush %d empty", batch)
		}
		if err := drawer.PublishDrawing("s1", fields); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}

	// Late joiner: first snapshot must already carry the whole drawing.
	viewer := newTestSync(t, m, "watcher")
	watch, err := viewer.WatchLive("s1")
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer watch.Close()

	var obs drawing.Observer
	update := waitFor(t, watch.Updates, func(u WatchUpdate[drawing.LiveState]) bool { return u.Exists })
	if !obs.Apply(update.Value) {
		t.Fatalf("first snapshot rejected")
	}
	if got := len(obs.Canvas()); got != total {
		t.Fatalf("late joiner canvas incomplete: %d of %d segments", got, total)
	}
	if obs.Seq() != 7 {
		t.Fatalf("expected seq 7, got %d", obs.Seq())
	}

	// Replayed stale snapshot is discarded.
	if obs.Apply(update.Value) {
		t.Fatalf("duplicate snapshot must be discarded")
	}

	// Round reset propagates and clears the canvas.
	if err := drawer.ResetDrawingRound("s1", pen); err != nil {
		t.Fatalf("round reset failed: %v", err)
	}
	reset := waitFor(t, watch.Updates, func(u WatchUpdate[drawing.LiveState]) bool {
		return u.Exists && u.Value.Round == 1
	})
	if !obs.Apply(reset.Value) {
		t.Fatalf("round transition must be accepted")
	}
	if len(obs.Canvas()) != 0 || obs.Seq() != 0 {
		t.Fatalf("canvas not cleared on round reset: %d segments, seq %d", len(obs.Canvas()), obs.Seq())
	}
}

// liveFailStore rejects merge writes to live drawing documents on demand.
type liveFailStore struct {
	*store.Memory
	fail bool
}

func (s *liveFailStore) WriteMerge(path string, fields map[string]any) error {
	if s.fail && strings.HasSuffix(path, "/pictionary/live") {
		return errors.New("injected live write failure")
	}
	return s.Memory.WriteMerge(path, fields)
}

func TestResetDrawingRoundLeavesDrawerOnFailure(t *testing.T) {
	m := store.NewMemory()
	defer m.Close()
	failing := &liveFailStore{Memory: m}
	drawer := newTestSync(t, failing, "artist")
	drawer.SetPenHolder("s1", "artist")
	pen := drawing.NewDrawer(4)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	pen.Add(drawing.Segment{X1: 1, Width: 2, Color: "#000"})
	fields, ok := pen.Flush(now)
	if !ok {
		t.Fatalf("flush empty")
	}
	if err := drawer.PublishDrawing("s1", fields); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	failing.fail = true
	if err := drawer.ResetDrawingRound("s1", pen); err == nil {
		t.Fatalf("reset must surface the write failure")
	}
	// The drawer must not have advanced past the shared document.
	if pen.Round() != 0 || pen.Seq() != 1 {
		t.Fatalf("drawer desynchronized after failed reset: round=%d seq=%d", pen.Round(), pen.Seq())
	}

	// With the store healthy again the same reset goes through and commits.
	failing.fail = false
	if err := drawer.ResetDrawingRound("s1", pen); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if pen.Round() != 1 || pen.Seq() != 0 {
		t.Fatalf("drawer did not advance after successful reset: round=%d seq=%d", pen.Round(), pen.Seq())
	}
}
