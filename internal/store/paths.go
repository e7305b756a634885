package store

import (
	"fmt"
	"strings"
)

// Document paths are hierarchical, Firestore-style: an even number of
// segments addresses a document, an odd number a collection.

func RoomPath(roomID string) string {
	return "rooms/" + roomID
}

func PlayersCollection(roomID string) string {
	return "rooms/" + roomID + "/players"
}

func PlayerPath(roomID, uid string) string {
	return PlayersCollection(roomID) + "/" + uid
}

func SelectedPath(roomID, sessionID string) string {
	return sessionPrefix(roomID, sessionID) + "/selected/selected"
}

func AnswersCollection(roomID, sessionID string) string {
	return sessionPrefix(roomID, sessionID) + "/answers"
}

// AnswerPath keys one answer by (uid, questionIndex) so a resubmission for
// the same question lands on the same document.
func AnswerPath(roomID, sessionID, uid string, questionIndex int) string {
	return fmt.Sprintf("%s/%s_%d", AnswersCollection(roomID, sessionID), uid, questionIndex)
}

func ScoresCollection(roomID, sessionID string) string {
	return sessionPrefix(roomID, sessionID) + "/scores"
}

func ScorePath(roomID, sessionID, uid string) string {
	return ScoresCollection(roomID, sessionID) + "/" + uid
}

func LivePath(roomID, sessionID string) string {
	return sessionPrefix(roomID, sessionID) + "/pictionary/live"
}

func GuessesCollection(roomID, sessionID string) string {
	return LivePath(roomID, sessionID) + "/guesses"
}

func sessionPrefix(roomID, sessionID string) string {
	return "rooms/" + roomID + "/sessions/" + sessionID
}

// ParentCollection returns the collection a document path belongs to.
func ParentCollection(docPath string) (string, bool) {
	idx := strings.LastIndexByte(docPath, '/')
	if idx <= 0 {
		return "", false
	}
	return docPath[:idx], true
}

// ValidDocPath reports whether path addresses a document (even, non-empty
// segments, none blank).
func ValidDocPath(path string) bool {
	segs, ok := splitPath(path)
	return ok && len(segs)%2 == 0
}

// ValidCollectionPath reports whether path addresses a collection.
func ValidCollectionPath(path string) bool {
	segs, ok := splitPath(path)
	return ok && len(segs)%2 == 1
}

func splitPath(path string) ([]string, bool) {
	if path == "" {
		return nil, false
	}
	segs := strings.Split(path, "/")
	for _, s := range segs {
		if s == "" {
			return nil, false
		}
	}
	return segs, true
}
