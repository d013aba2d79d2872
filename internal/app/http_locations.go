package app

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// handleListLocations lists the nodes of one type, or the roots when no
// type is given.
func (s *HTTPServer) handleListLocations(w http.ResponseWriter, r *http.Request) {
	locationType := strings.TrimSpace(r.URL.Query().Get("type"))
	if locationType == "" {
		writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(s.service.LocationRoots(), locationPayload)})
		return
	}
	nodes, err := s.service.LocationsByType(locationType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(nodes, locationPayload)})
}

func (s *HTTPServer) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	node, err := s.service.Location(chi.URLParam(r, "code"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, locationPayload(node))
}

func (s *HTTPServer) handleLocationChildren(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.service.LocationChildren(chi.URLParam(r, "code"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(nodes, locationPayload)})
}

func (s *HTTPServer) handleLocationPath(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.service.LocationPath(chi.URLParam(r, "code"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(nodes, locationPayload)})
}
