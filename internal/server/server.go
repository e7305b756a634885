// Package server is the sync gateway: it hosts a document store, fans
// snapshot streams out to phone and TV clients over websockets, accepts
// merge/append writes over HTTP, and serves content pools with the canonical
// answers stripped.
package server

import (
	"net/http"
	"time"

	"partydeck/internal/config"
	"partydeck/internal/pools"
	"partydeck/internal/store"
)

type Server struct {
	store     store.Store
	library   *pools.Library
	cfg       config.Config
	startedAt time.Time
}

func New(st store.Store, library *pools.Library, cfg config.Config) *Server {
	return &Server{
		store:     st,
		library:   library,
		cfg:       cfg,
		startedAt: time.Now().UTC(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /ws/store", s.handleStoreWebsocket)
	mux.HandleFunc("POST /api/store/merge", s.handleMerge)
	mux.HandleFunc("POST /api/store/append", s.handleAppend)
	mux.HandleFunc("GET /api/pools", s.handlePoolList)
	mux.HandleFunc("GET /api/pools/{gameId}", s.handlePool)
	mux.HandleFunc("POST /api/pools/{gameId}/check", s.handleCheckGuess)
	return mux
}
