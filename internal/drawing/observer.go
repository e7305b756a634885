package drawing

// Observer reconciles live-document snapshots for one viewer. The transport
// is eventually consistent and may replay or reorder snapshots of the same
// document, so every update is gated on the sequence number.
type Observer struct {
	started bool
	round   int
	seq     int
	state   LiveState
}

// Apply reconciles a snapshot. It reports false and changes nothing when the
// snapshot is stale: an earlier round, or the same round with seq at or
// below the last-seen value. Rounds only move forward (the drawer increments
// them), so a forward round change is accepted as a reset, whatever its seq.
func (o *Observer) Apply(state LiveState) bool {
	if o.started {
		if state.Round < o.round {
			return false
		}
		if state.Round == o.round && state.Seq <= o.seq {
			return false
		}
	}
	o.started = true
	o.round = state.Round
	o.seq = state.Seq
	o.state = state
	return true
}

func (o *Observer) Round() int { return o.round }

func (o *Observer) Seq() int { return o.seq }

// Canvas returns every segment to render, checkpoint first then the live
// tail. A late joiner gets the complete drawing from its first snapshot.
func (o *Observer) Canvas() []Segment {
	out := make([]Segment, 0, len(o.state.Checkpoint)+len(o.state.Events))
	out = append(out, o.state.Checkpoint...)
	out = append(out, o.state.Events...)
	return out
}
