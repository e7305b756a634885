// Package scoreboard folds per-session results into a room's lifetime
// scoreboard. One fold per finished session: the caller guarantees single
// application, the fold itself does not deduplicate.
package scoreboard

import "partydeck/internal/scoring"

// Apply normalizes a session's raw scores for the game that produced them
// and folds each player into the board: gamesPlayed increments, totalPoints
// grows by the normalized score, and every player tied for the session's top
// normalized score gains a win. Players seen for the first time get a fresh
// entry. The input board is not modified; the updated board is returned.
func Apply(board map[string]scoring.ScoreboardEntry, gameID string, rawScores map[string]int, names map[string]string) map[string]scoring.ScoreboardEntry {
	out := make(map[string]scoring.ScoreboardEntry, len(board)+len(rawScores))
	for uid, e := range board {
		out[uid] = e
	}
	if len(rawScores) == 0 {
		return out
	}

	normalized := make(map[string]int, len(rawScores))
	top := 0
	first := true
	for uid, raw := range rawScores {
		n := scoring.Normalize(gameID, raw)
		normalized[uid] = n
		if first || n > top {
			top = n
			first = false
		}
	}

	for uid, n := range normalized {
		entry := out[uid]
		entry.UID = uid
		if name, ok := names[uid]; ok && name != "" {
			entry.Name = name
		}
		entry.GamesPlayed++
		entry.TotalPoints += n
		if n == top {
			entry.Wins++
		}
		out[uid] = entry
	}
	return out
}
