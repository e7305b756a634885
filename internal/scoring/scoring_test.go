package scoring

import (
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		gameID string
		raw    int
		want   int
	}{
		{"pictionary", 100, 80},
		{"family_feud", 100, 50},
		{"unknown_game", 10, 10},
		{"trivia", 30, 30},
		{"pictionary", 0, 0},
		{"family_feud", 25, 13}, // 12.5 rounds up
	}
	for _, tc := range cases {
		if got := Normalize(tc.gameID, tc.raw); got != tc.want {
			t.Fatalf("Normalize(%q, %d) = %d, want %d", tc.gameID, tc.raw, got, tc.want)
		}
	}
}

func TestSortScoreboardFiltersZero(t *testing.T) {
	entries := []ScoreboardEntry{
		{UID: "a", TotalPoints: 0, Wins: 3},
		{UID: "b", TotalPoints: 5},
	}
	got := SortScoreboard(entries)
	if len(got) != 1 || got[0].UID != "b" {
		t.Fatalf("zero-point players must be filtered, got %#v", got)
	}
}

func TestSortScoreboardOrder(t *testing.T) {
	entries := []ScoreboardEntry{
		{UID: "a", TotalPoints: 5, Wins: 0, GamesPlayed: 9},
		{UID: "b", TotalPoints: 5, Wins: 1, GamesPlayed: 2},
		{UID: "c", TotalPoints: 8, Wins: 0, GamesPlayed: 1},
		{UID: "d", TotalPoints: 5, Wins: 1, GamesPlayed: 3},
	}
	got := SortScoreboard(entries)
	want := []string{"c", "d", "b", "a"}
	for i, uid := range want {
		if got[i].UID != uid {
			t.Fatalf("position %d: got %s, want %s (full: %#v)", i, got[i].UID, uid, got)
		}
	}
}

func TestPlayerLessStageFirst(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := PlayerOrder{StageIndex: 2, Score: 10, JoinedAt: base}
	b := PlayerOrder{StageIndex: 3, Score: 1, JoinedAt: base}
	c := PlayerOrder{StageIndex: 2, Score: 20, JoinedAt: base}

	players := []PlayerOrder{a, b, c}
	// Expected order: b (stage 3), c (stage 2, score 20), a (stage 2, score 10).
	if !PlayerLess(b, c) || !PlayerLess(c, a) || PlayerLess(a, b) {
		t.Fatalf("ordering violated for %#v", players)
	}
}

func TestPlayerLessFinishedAt(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	finished := PlayerOrder{StageIndex: 1, FinishedAt: base, Score: 0}
	unfinished := PlayerOrder{StageIndex: 1, Score: 100}
	if !PlayerLess(finished, unfinished) {
		t.Fatalf("finished player must rank above unfinished regardless of score")
	}
	earlier := PlayerOrder{StageIndex: 1, FinishedAt: base}
	later := PlayerOrder{StageIndex: 1, FinishedAt: base.Add(time.Second)}
	if !PlayerLess(earlier, later) {
		t.Fatalf("earlier finisher must rank above later finisher")
	}
}

func TestPlayerLessJoinedAtTiebreak(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	early := PlayerOrder{StageIndex: 0, Score: 5, JoinedAt: base}
	late := PlayerOrder{StageIndex: 0, Score: 5, JoinedAt: base.Add(time.Minute)}
	if !PlayerLess(early, late) {
		t.Fatalf("earlier joiner must win the final tiebreak")
	}
}
