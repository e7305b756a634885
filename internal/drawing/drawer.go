package drawing

import "time"

// DefaultCheckpointEvery is how large the published tail may grow before a
// flush folds it into the checkpoint.
const DefaultCheckpointEvery = 64

// Drawer batches segments for the single client holding the pen. It owns the
// sequence counter; no other writer may touch the live document within a
// round, which is what keeps seq strictly increasing and contiguous.
type Drawer struct {
	round           int
	seq             int
	tail            []Segment
	checkpoint      []Segment
	pending         []Segment
	checkpointEvery int
}

func NewDrawer(checkpointEvery int) *Drawer {
	if checkpointEvery <= 0 {
		checkpointEvery = DefaultCheckpointEvery
	}
	return &Drawer{checkpointEvery: checkpointEvery}
}

func (d *Drawer) Round() int { return d.round }

func (d *Drawer) Seq() int { return d.seq }

// Add buffers newly drawn segments until the next Flush.
func (d *Drawer) Add(segments ...Segment) {
	d.pending = append(d.pending, segments...)
}

// Flush publishes buffered segments as the next sequence step and returns
// the field map to merge-write into the live document. The events field
// always replaces wholesale; the checkpoint field is written only on the
// flush that compacts, so steady-state updates stay small. Returns false
// when nothing is buffered.
func (d *Drawer) Flush(now time.Time) (map[string]any, bool) {
	if len(d.pending) == 0 {
		return nil, false
	}
	d.seq++
	fields := map[string]any{
		"round":     d.round,
		"seq":       d.seq,
		"updatedAt": now.UTC(),
	}
	if len(d.tail) >= d.checkpointEvery {
		// Fold the already-published tail into the checkpoint and restart
		// the tail with just this batch.
		d.checkpoint = append(d.checkpoint, d.tail...)
		d.tail = d.pending
		fields["checkpoint"] = EncodeSegments(d.checkpoint)
	} else {
		d.tail = append(d.tail, d.pending...)
	}
	d.pending = nil
	fields["events"] = EncodeSegments(d.tail)
	return fields, true
}

// NextRoundFields returns the field map announcing the following round
// without advancing the drawer. Callers that publish the reset remotely use
// this first and commit with AdvanceRound once the write lands, so a failed
// publish leaves the drawer aligned with the shared document.
func (d *Drawer) NextRoundFields(now time.Time) map[string]any {
	return map[string]any{
		"round":      d.round + 1,
		"seq":        0,
		"events":     []any{},
		"checkpoint": []any{},
		"updatedAt":  now.UTC(),
	}
}

// AdvanceRound commits the round transition locally: seq back to zero,
// events and checkpoint cleared.
func (d *Drawer) AdvanceRound() {
	d.round++
	d.seq = 0
	d.tail = nil
	d.checkpoint = nil
	d.pending = nil
}

// NextRound advances the round and returns the reset announcement in one
// step, for callers that do not need publish-then-commit ordering.
func (d *Drawer) NextRound(now time.Time) map[string]any {
	fields := d.NextRoundFields(now)
	d.AdvanceRound()
	return fields
}
