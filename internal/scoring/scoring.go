// Package scoring converts raw mini-game scores to a common scale and defines
// the canonical orderings for the lifetime scoreboard and the in-session
// player list.
package scoring

import (
	"math"
	"sort"
	"time"
)

// Different games award points on different scales; team games in particular
// hand out larger absolute totals. Multipliers bring everything onto one
// scale before lifetime aggregation. Unknown game ids pass through at 1.0.
var multipliers = map[string]float64{
	"trivia":      1.0,
	"emoji":       1.0,
	"wyr":         1.0,
	"race":        1.0,
	"pictionary":  0.8,
	"family_feud": 0.5,
}

// Normalize scales a raw score by the game's multiplier, rounded to the
// nearest integer.
func Normalize(gameID string, raw int) int {
	m, ok := multipliers[gameID]
	if !ok {
		m = 1.0
	}
	return int(math.Round(float64(raw) * m))
}

// ScoreboardEntry is one player's lifetime record within a room. TotalPoints
// always holds normalized sums, never raw per-game scores.
type ScoreboardEntry struct {
	UID         string
	Name        string
	TotalPoints int
	Wins        int
	GamesPlayed int
}

// SortScoreboard returns the entries with any points, ordered by
// (totalPoints desc, wins desc, gamesPlayed desc). Remaining ties keep their
// incoming order. The input is not modified.
func SortScoreboard(entries []ScoreboardEntry) []ScoreboardEntry {
	out := make([]ScoreboardEntry, 0, len(entries))
	for _, e := range entries {
		if e.TotalPoints > 0 {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		return a.GamesPlayed > b.GamesPlayed
	})
	return out
}

// PlayerOrder carries the fields the live leaderboard sorts on. A zero
// FinishedAt means the player has not finished and sorts after everyone who
// has.
type PlayerOrder struct {
	StageIndex int
	FinishedAt time.Time
	Score      int
	JoinedAt   time.Time
}

// PlayerLess is the live in-session ordering: stage progress first (desc),
// then earliest finisher, then score (desc), then earliest joiner. The chain
// resolves race games on progress while remaining a sensible score-driven
// ranking for everything else.
func PlayerLess(a, b PlayerOrder) bool {
	if a.StageIndex != b.StageIndex {
		return a.StageIndex > b.StageIndex
	}
	if !a.FinishedAt.Equal(b.FinishedAt) {
		if a.FinishedAt.IsZero() {
			return false
		}
		if b.FinishedAt.IsZero() {
			return true
		}
		return a.FinishedAt.Before(b.FinishedAt)
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.JoinedAt.Before(b.JoinedAt)
}
