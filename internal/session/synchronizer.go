package session

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"partydeck/internal/drawing"
	"partydeck/internal/scoreboard"
	"partydeck/internal/scoring"
	"partydeck/internal/store"
)

// ErrNotOwner is returned when a client tries to write a document it does
// not own under the single-writer convention.
var ErrNotOwner = errors.New("not the owner of this document")

// Synchronizer is one client's connection to a room. It is the only
// component that touches the store; everything else in the engine is a pure
// function over the data it holds.
type Synchronizer struct {
	store    store.Store
	identity Identity
	roomID   string
	now      func() time.Time

	mu         sync.Mutex
	uid        string
	lastScores map[string]int    // sessionID -> last raw score written
	penHolder  map[string]string // sessionID -> uid allowed on the live doc
}

func New(st store.Store, identity Identity, roomID string) *Synchronizer {
	return &Synchronizer{
		store:      st,
		identity:   identity,
		roomID:     roomID,
		now:        func() time.Time { return time.Now().UTC() },
		lastScores: make(map[string]int),
		penHolder:  make(map[string]string),
	}
}

func (s *Synchronizer) RoomID() string { return s.roomID }

// ensureUID acquires the anonymous uid lazily on the first write attempt.
func (s *Synchronizer) ensureUID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uid != "" {
		return s.uid, nil
	}
	uid, err := s.identity.UID()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	s.uid = uid
	return uid, nil
}

// --- watches ---

func (s *Synchronizer) WatchRoom() (*DocWatch[Room], error) {
	return watchDoc(s.store, store.RoomPath(s.roomID), decodeRoom)
}

// WatchPlayers subscribes to the room's player list. The server-side query
// orders by stageIndex desc only, because the full composite ordering would
// need an index the target deployment may not have; the remaining tie-break
// keys are applied client-side over each snapshot.
func (s *Synchronizer) WatchPlayers() (*QueryWatch[Player], error) {
	q := store.Query{OrderBy: "stageIndex", Desc: true}
	return watchQuery(s.store, store.PlayersCollection(s.roomID), q, func(docs []store.Snapshot) []Player {
		players := make([]Player, 0, len(docs))
		for _, snap := range docs {
			if p, ok := decodePlayer(snap); ok {
				players = append(players, p)
			}
		}
		sort.SliceStable(players, func(i, j int) bool {
			return scoring.PlayerLess(players[i].Order(), players[j].Order())
		})
		return players
	})
}

func (s *Synchronizer) WatchSelected(sessionID string) (*DocWatch[Selected], error) {
	return watchDoc(s.store, store.SelectedPath(s.roomID, sessionID), decodeSelected)
}

func (s *Synchronizer) WatchAnswers(sessionID string) (*QueryWatch[Answer], error) {
	q := store.Query{OrderBy: "createdAt"}
	return watchQuery(s.store, store.AnswersCollection(s.roomID, sessionID), q, func(docs []store.Snapshot) []Answer {
		answers := make([]Answer, 0, len(docs))
		for _, snap := range docs {
			if a, ok := decodeAnswer(snap); ok {
				answers = append(answers, a)
			}
		}
		return answers
	})
}

func (s *Synchronizer) WatchSessionScores(sessionID string) (*QueryWatch[SessionScore], error) {
	return watchQuery(s.store, store.ScoresCollection(s.roomID, sessionID), store.Query{}, func(docs []store.Snapshot) []SessionScore {
		scores := make([]SessionScore, 0, len(docs))
		for _, snap := range docs {
			if sc, ok := decodeSessionScore(snap); ok {
				scores = append(scores, sc)
			}
		}
		return scores
	})
}

func (s *Synchronizer) WatchLive(sessionID string) (*DocWatch[drawing.LiveState], error) {
	return watchDoc(s.store, store.LivePath(s.roomID, sessionID), func(snap store.Snapshot) (drawing.LiveState, bool) {
		if !snap.Exists {
			return drawing.LiveState{}, false
		}
		return drawing.DecodeLive(snap.Fields), true
	})
}

// WatchGuesses follows the most recent guesses, newest first.
func (s *Synchronizer) WatchGuesses(sessionID string, limit int) (*QueryWatch[Guess], error) {
	q := store.Query{OrderBy: "createdAt", Desc: true, Limit: limit}
	return watchQuery(s.store, store.GuessesCollection(s.roomID, sessionID), q, func(docs []store.Snapshot) []Guess {
		guesses := make([]Guess, 0, len(docs))
		for _, snap := range docs {
			if g, ok := decodeGuess(snap); ok {
				guesses = append(guesses, g)
			}
		}
		return guesses
	})
}

// --- writes ---

// JoinRoom creates the room on first join and this client's player document.
func (s *Synchronizer) JoinRoom(displayName, displayTag string) error {
	uid, err := s.ensureUID()
	if err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	now := s.now()
	if err := s.store.WriteMerge(store.RoomPath(s.roomID), map[string]any{
		"roomId": s.roomID,
		"active": true,
	}); err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	err = s.store.WriteMerge(store.PlayerPath(s.roomID, uid), map[string]any{
		"uid":          uid,
		"roomId":       s.roomID,
		"displayName":  displayName,
		"displayTag":   displayTag,
		"stageIndex":   0,
		"score":        0,
		"joinedAt":     now,
		"lastActiveAt": now,
	})
	if err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	log.Printf("joined room room_id=%s uid=%s name=%s", s.roomID, uid, displayName)
	return nil
}

// PlayerUpdate mutates this client's own player document. Nil fields are
// left untouched by the merge.
type PlayerUpdate struct {
	DisplayName *string
	StageIndex  *int
	Score       *int
	FinishedAt  *time.Time
}

func (s *Synchronizer) UpdateOwnPlayer(update PlayerUpdate) error {
	uid, err := s.ensureUID()
	if err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	fields := map[string]any{"lastActiveAt": s.now()}
	if update.DisplayName != nil {
		fields["displayName"] = *update.DisplayName
	}
	if update.StageIndex != nil {
		fields["stageIndex"] = *update.StageIndex
	}
	if update.Score != nil {
		fields["score"] = *update.Score
	}
	if update.FinishedAt != nil {
		fields["finishedAt"] = *update.FinishedAt
	}
	if err := s.store.WriteMerge(store.PlayerPath(s.roomID, uid), fields); err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	return nil
}

// WriteSelected publishes the chosen game and content ids for a session.
// By convention only the session initiator calls this, exactly once.
func (s *Synchronizer) WriteSelected(sessionID, gameID string, contentIDs []string) error {
	uid, err := s.ensureUID()
	if err != nil {
		return fmt.Errorf("write selected: %w", err)
	}
	ids := make([]any, len(contentIDs))
	for i, id := range contentIDs {
		ids[i] = id
	}
	err = s.store.WriteMerge(store.SelectedPath(s.roomID, sessionID), map[string]any{
		"gameId":     gameID,
		"contentIds": ids,
		"by":         uid,
		"createdAt":  s.now(),
	})
	if err != nil {
		return fmt.Errorf("write selected: %w", err)
	}
	log.Printf("selected game room_id=%s session_id=%s game_id=%s items=%d", s.roomID, sessionID, gameID, len(contentIDs))
	return nil
}

// SubmitAnswer records this client's answer for one question index. The
// document is keyed by (uid, questionIndex), so resubmitting the same
// question overwrites instead of double-counting.
func (s *Synchronizer) SubmitAnswer(sessionID string, questionIndex int, raw string, correct bool, points int) error {
	uid, err := s.ensureUID()
	if err != nil {
		return fmt.Errorf("submit answer: %w", err)
	}
	err = s.store.WriteMerge(store.AnswerPath(s.roomID, sessionID, uid, questionIndex), map[string]any{
		"uid":           uid,
		"questionIndex": questionIndex,
		"answer":        raw,
		"correct":       correct,
		"points":        points,
		"createdAt":     s.now(),
	})
	if err != nil {
		return fmt.Errorf("submit answer: %w", err)
	}
	return nil
}

// SetSessionScore writes this client's raw running total for the session.
// The total is monotonic: an update at or below the last written value is a
// no-op, which makes score re-evaluation safe against partial observations.
func (s *Synchronizer) SetSessionScore(sessionID string, score int) error {
	uid, err := s.ensureUID()
	if err != nil {
		return fmt.Errorf("set score: %w", err)
	}
	s.mu.Lock()
	if last, ok := s.lastScores[sessionID]; ok && score <= last {
		s.mu.Unlock()
		return nil
	}
	s.lastScores[sessionID] = score
	s.mu.Unlock()
	err = s.store.WriteMerge(store.ScorePath(s.roomID, sessionID, uid), map[string]any{
		"uid":       uid,
		"score":     score,
		"updatedAt": s.now(),
	})
	if err != nil {
		return fmt.Errorf("set score: %w", err)
	}
	return nil
}

// SetPenHolder records which uid currently holds the pen for the session's
// live drawing. Ownership is per round and application-level.
func (s *Synchronizer) SetPenHolder(sessionID, uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.penHolder[sessionID] = uid
}

// PublishDrawing merge-writes drawer output (see drawing.Drawer) into the
// live document. Fails with ErrNotOwner unless this client holds the pen.
func (s *Synchronizer) PublishDrawing(sessionID string, fields map[string]any) error {
	uid, err := s.ensureUID()
	if err != nil {
		return fmt.Errorf("publish drawing: %w", err)
	}
	s.mu.Lock()
	holder := s.penHolder[sessionID]
	s.mu.Unlock()
	if holder != uid {
		return fmt.Errorf("publish drawing: %w", ErrNotOwner)
	}
	if err := s.store.WriteMerge(store.LivePath(s.roomID, sessionID), fields); err != nil {
		return fmt.Errorf("publish drawing: %w", err)
	}
	return nil
}

// ResetDrawingRound publishes the next-round reset and, once the write
// lands, advances the drawer. The drawer is left untouched on failure so its
// round and seq stay aligned with the shared document.
func (s *Synchronizer) ResetDrawingRound(sessionID string, d *drawing.Drawer) error {
	if err := s.PublishDrawing(sessionID, d.NextRoundFields(s.now())); err != nil {
		return fmt.Errorf("reset drawing round: %w", err)
	}
	d.AdvanceRound()
	return nil
}

// SubmitGuess appends one pictionary guess. Delivery of the guess is the
// primary contract; the lastActiveAt presence bump is advisory and its
// failure is swallowed.
func (s *Synchronizer) SubmitGuess(sessionID, name string, round int, guess string) (string, error) {
	uid, err := s.ensureUID()
	if err != nil {
		return "", fmt.Errorf("submit guess: %w", err)
	}
	id, err := s.store.AppendNew(store.GuessesCollection(s.roomID, sessionID), map[string]any{
		"uid":       uid,
		"name":      name,
		"round":     round,
		"guess":     guess,
		"createdAt": s.now(),
	})
	if err != nil {
		return "", fmt.Errorf("submit guess: %w", err)
	}
	if err := s.store.WriteMerge(store.PlayerPath(s.roomID, uid), map[string]any{
		"lastActiveAt": s.now(),
	}); err != nil {
		log.Printf("presence update failed room_id=%s uid=%s error=%v", s.roomID, uid, err)
	}
	return id, nil
}

// AggregateSession folds a finished session's raw scores into the room's
// lifetime scoreboard. Callers must apply each session at most once; the
// fold itself does not deduplicate.
func (s *Synchronizer) AggregateSession(room Room, gameID string, rawScores map[string]int, names map[string]string) error {
	board := scoreboard.Apply(room.Scoreboard, gameID, rawScores, names)
	err := s.store.WriteMerge(store.RoomPath(s.roomID), map[string]any{
		"scoreboard": encodeScoreboard(board),
	})
	if err != nil {
		return fmt.Errorf("aggregate session: %w", err)
	}
	log.Printf("session aggregated room_id=%s game_id=%s players=%d", s.roomID, gameID, len(rawScores))
	return nil
}
