// Package session keeps a client's local view of shared game state. It owns
// every store subscription, reconciles remote snapshots into typed documents,
// and issues the merge writes a client is allowed to make. Stored documents
// are loosely-typed field maps; the codecs here validate at the boundary and
// ignore unknown or mis-typed fields instead of propagating them.
package session

import (
	"sort"
	"strings"
	"time"

	"partydeck/internal/scoring"
	"partydeck/internal/store"
)

// Room is the persistent lobby document. The scoreboard is denormalized onto
// the room and always holds normalized lifetime sums.
type Room struct {
	RoomID     string
	Active     bool
	Scoreboard map[string]scoring.ScoreboardEntry
	CreatedAt  time.Time
}

// SortedScoreboard returns the room's lifetime entries in display order:
// zero-point players filtered out, the rest ranked per scoring.SortScoreboard.
func (r Room) SortedScoreboard() []scoring.ScoreboardEntry {
	entries := make([]scoring.ScoreboardEntry, 0, len(r.Scoreboard))
	for _, e := range r.Scoreboard {
		entries = append(entries, e)
	}
	// Map iteration order is random; pre-sort by uid so residual ties come
	// out stable across calls.
	sort.Slice(entries, func(i, j int) bool { return entries[i].UID < entries[j].UID })
	return scoring.SortScoreboard(entries)
}

// Player is one client's presence in a room. Only the owning client writes
// it (aggregation logic aside); everyone reads it.
type Player struct {
	UID          string
	RoomID       string
	DisplayName  string
	DisplayTag   string
	StageIndex   int
	Score        int
	FinishedAt   time.Time // zero = not finished
	JoinedAt     time.Time
	LastActiveAt time.Time
}

// Selected records which mini-game and content ids the session initiator
// chose. Written once, read by all.
type Selected struct {
	GameID     string
	ContentIDs []string
	ChosenBy   string
	CreatedAt  time.Time
}

// Answer is one player's submission for one question index. Resubmission
// overwrites the same document, so points are never double-counted.
type Answer struct {
	UID           string
	QuestionIndex int
	Raw           string
	Correct       bool
	Points        int
	CreatedAt     time.Time
}

// SessionScore is a player's raw running total for the session. Raw values
// are stored; normalization happens only at lifetime aggregation.
type SessionScore struct {
	UID       string
	Score     int
	UpdatedAt time.Time
}

// Guess is one pictionary guess submission, append-only.
type Guess struct {
	ID        string
	UID       string
	Name      string
	Round     int
	Guess     string
	CreatedAt time.Time
}

func decodeRoom(snap store.Snapshot) (Room, bool) {
	if !snap.Exists {
		return Room{}, false
	}
	room := Room{
		RoomID:    strField(snap.Fields, "roomId"),
		Active:    boolField(snap.Fields, "active"),
		CreatedAt: timeField(snap.Fields, "createdAt"),
	}
	if board, ok := snap.Fields["scoreboard"].(map[string]any); ok {
		room.Scoreboard = make(map[string]scoring.ScoreboardEntry, len(board))
		for uid, raw := range board {
			fields, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			room.Scoreboard[uid] = scoring.ScoreboardEntry{
				UID:         uid,
				Name:        strField(fields, "name"),
				TotalPoints: intField(fields, "totalPoints"),
				Wins:        intField(fields, "wins"),
				GamesPlayed: intField(fields, "gamesPlayed"),
			}
		}
	}
	return room, true
}

func encodeScoreboard(board map[string]scoring.ScoreboardEntry) map[string]any {
	out := make(map[string]any, len(board))
	for uid, e := range board {
		out[uid] = map[string]any{
			"name":        e.Name,
			"totalPoints": e.TotalPoints,
			"wins":        e.Wins,
			"gamesPlayed": e.GamesPlayed,
		}
	}
	return out
}

func decodePlayer(snap store.Snapshot) (Player, bool) {
	if !snap.Exists {
		return Player{}, false
	}
	return Player{
		UID:          strField(snap.Fields, "uid"),
		RoomID:       strField(snap.Fields, "roomId"),
		DisplayName:  strField(snap.Fields, "displayName"),
		DisplayTag:   strField(snap.Fields, "displayTag"),
		StageIndex:   intField(snap.Fields, "stageIndex"),
		Score:        intField(snap.Fields, "score"),
		FinishedAt:   timeField(snap.Fields, "finishedAt"),
		JoinedAt:     timeField(snap.Fields, "joinedAt"),
		LastActiveAt: timeField(snap.Fields, "lastActiveAt"),
	}, true
}

// Order maps the player onto the canonical live-leaderboard sort key.
func (p Player) Order() scoring.PlayerOrder {
	return scoring.PlayerOrder{
		StageIndex: p.StageIndex,
		FinishedAt: p.FinishedAt,
		Score:      p.Score,
		JoinedAt:   p.JoinedAt,
	}
}

func decodeSelected(snap store.Snapshot) (Selected, bool) {
	if !snap.Exists {
		return Selected{}, false
	}
	sel := Selected{
		GameID:    strField(snap.Fields, "gameId"),
		ChosenBy:  strField(snap.Fields, "by"),
		CreatedAt: timeField(snap.Fields, "createdAt"),
	}
	if ids, ok := snap.Fields["contentIds"].([]any); ok {
		sel.ContentIDs = make([]string, 0, len(ids))
		for _, id := range ids {
			if s, ok := id.(string); ok {
				sel.ContentIDs = append(sel.ContentIDs, s)
			}
		}
	}
	return sel, true
}

func decodeAnswer(snap store.Snapshot) (Answer, bool) {
	if !snap.Exists {
		return Answer{}, false
	}
	return Answer{
		UID:           strField(snap.Fields, "uid"),
		QuestionIndex: intField(snap.Fields, "questionIndex"),
		Raw:           strField(snap.Fields, "answer"),
		Correct:       boolField(snap.Fields, "correct"),
		Points:        intField(snap.Fields, "points"),
		CreatedAt:     timeField(snap.Fields, "createdAt"),
	}, true
}

func decodeSessionScore(snap store.Snapshot) (SessionScore, bool) {
	if !snap.Exists {
		return SessionScore{}, false
	}
	return SessionScore{
		UID:       strField(snap.Fields, "uid"),
		Score:     intField(snap.Fields, "score"),
		UpdatedAt: timeField(snap.Fields, "updatedAt"),
	}, true
}

func decodeGuess(snap store.Snapshot) (Guess, bool) {
	if !snap.Exists {
		return Guess{}, false
	}
	id := snap.Path
	if idx := strings.LastIndexByte(id, '/'); idx >= 0 {
		id = id[idx+1:]
	}
	return Guess{
		ID:        id,
		UID:       strField(snap.Fields, "uid"),
		Name:      strField(snap.Fields, "name"),
		Round:     intField(snap.Fields, "round"),
		Guess:     strField(snap.Fields, "guess"),
		CreatedAt: timeField(snap.Fields, "createdAt"),
	}, true
}

func strField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func boolField(fields map[string]any, key string) bool {
	if v, ok := fields[key].(bool); ok {
		return v
	}
	return false
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

// timeField accepts native time values and RFC3339 strings; anything else
// decodes to the zero time, which downstream ordering treats as "absent".
func timeField(fields map[string]any, key string) time.Time {
	switch v := fields[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
