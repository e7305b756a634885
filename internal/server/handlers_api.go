package server

import (
	"log"
	"net/http"
	"sort"

	"partydeck/internal/store"
)

type mergeRequest struct {
	Path   string         `json:"path"`
	Fields map[string]any `json:"fields"`
}

type appendRequest struct {
	Collection string         `json:"collection"`
	Fields     map[string]any `json:"fields"`
}

type checkGuessRequest struct {
	ItemID string `json:"item_id"`
	Guess  string `json:"guess"`
}

// poolItem is the client-facing shape of a pool record. The canonical answer
// and its aliases stay server-side.
type poolItem struct {
	ID     string            `json:"id"`
	Text   map[string]string `json:"text"`
	Points int               `json:"points,omitempty"`
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validatePathLength(req.Path); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !store.ValidDocPath(req.Path) {
		writeError(w, http.StatusBadRequest, "malformed document path")
		return
	}
	if err := validateFields(req.Fields); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.WriteMerge(req.Path, req.Fields); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to write document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": req.Path})
}

func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validatePathLength(req.Collection); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !store.ValidCollectionPath(req.Collection) {
		writeError(w, http.StatusBadRequest, "malformed collection path")
		return
	}
	if err := validateFields(req.Fields); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.store.AppendNew(req.Collection, req.Fields)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to append document")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handlePoolList(w http.ResponseWriter, r *http.Request) {
	ids := s.library.GameIDs()
	sort.Strings(ids)
	writeJSON(w, http.StatusOK, map[string]any{"games": ids})
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameId")
	pool := s.library.Pool(gameID)
	if len(pool.Items) == 0 {
		writeError(w, http.StatusNotFound, "unknown game pool")
		return
	}
	items := make([]poolItem, 0, len(pool.Items))
	for _, item := range pool.Items {
		items = append(items, poolItem{
			ID:     item.ID,
			Text:   item.Text,
			Points: item.Points,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game_id": gameID,
		"items":   items,
	})
}

func (s *Server) handleCheckGuess(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameId")
	var req checkGuessRequest
	if !decodeBody(w, r, &req) {
		return
	}
	guess, err := validateGuess(req.Guess)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	correct, err := s.library.CheckGuess(gameID, req.ItemID, guess)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown item")
		return
	}
	log.Printf("guess checked game_id=%s item_id=%s correct=%t", gameID, req.ItemID, correct)
	writeJSON(w, http.StatusOK, map[string]bool{"correct": correct})
}
