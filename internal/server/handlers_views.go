package server

import (
	"net/http"
	"sort"
	"time"

	"partydeck/internal/store"
	"partydeck/internal/web"

	"github.com/a-h/templ"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	games := s.library.GameIDs()
	sort.Strings(games)
	templ.Handler(web.Home(web.Status{
		Games:  games,
		Rooms:  s.roomCount(),
		Uptime: time.Since(s.startedAt).Round(time.Second).String(),
	})).ServeHTTP(w, r)
}

// roomCount takes a one-shot collection query: the initial result set is
// queued at subscribe time, so the read does not block.
func (s *Server) roomCount() int {
	sub, err := s.store.SubscribeQuery("rooms", store.Query{})
	if err != nil {
		return 0
	}
	defer sub.Close()
	docs, ok := <-sub.Results
	if !ok {
		return 0
	}
	return len(docs)
}
