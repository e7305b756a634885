package scoreboard

import (
	"testing"

	"partydeck/internal/scoring"
)

func TestApplyNormalizesBeforeFolding(t *testing.T) {
	board := Apply(nil, "pictionary", map[string]int{"a": 100}, map[string]string{"a": "Ada"})
	entry := board["a"]
	if entry.TotalPoints != 80 {
		t.Fatalf("lifetime points must be normalized: got %d, want 80", entry.TotalPoints)
	}
	if entry.GamesPlayed != 1 || entry.Wins != 1 {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if entry.Name != "Ada" {
		t.Fatalf("name not applied: %#v", entry)
	}
}

func TestApplyWinsForAllTiedTopScorers(t *testing.T) {
	scores := map[string]int{"a": 50, "b": 50, "c": 10}
	board := Apply(nil, "trivia", scores, nil)
	if board["a"].Wins != 1 || board["b"].Wins != 1 {
		t.Fatalf("both tied top scorers must win: %#v", board)
	}
	if board["c"].Wins != 0 {
		t.Fatalf("non-top scorer must not win: %#v", board["c"])
	}
}

func TestApplyAccumulatesAcrossSessions(t *testing.T) {
	board := Apply(nil, "trivia", map[string]int{"a": 30, "b": 40}, nil)
	board = Apply(board, "family_feud", map[string]int{"a": 100, "b": 60}, nil)

	a := board["a"]
	if a.TotalPoints != 30+50 { // 100 * 0.5
		t.Fatalf("a total: got %d, want 80", a.TotalPoints)
	}
	if a.GamesPlayed != 2 || a.Wins != 1 {
		t.Fatalf("a record: %#v", a)
	}
	b := board["b"]
	if b.TotalPoints != 40+30 || b.Wins != 1 {
		t.Fatalf("b record: %#v", b)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	original := map[string]scoring.ScoreboardEntry{
		"a": {UID: "a", TotalPoints: 10, GamesPlayed: 1},
	}
	Apply(original, "trivia", map[string]int{"a": 5}, nil)
	if original["a"].TotalPoints != 10 || original["a"].GamesPlayed != 1 {
		t.Fatalf("input board mutated: %#v", original["a"])
	}
}

func TestApplyEmptySession(t *testing.T) {
	board := map[string]scoring.ScoreboardEntry{"a": {UID: "a", TotalPoints: 3}}
	out := Apply(board, "trivia", nil, nil)
	if len(out) != 1 || out["a"].TotalPoints != 3 {
		t.Fatalf("empty session should change nothing: %#v", out)
	}
}
