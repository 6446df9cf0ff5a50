package serverapp

import (
	"encoding/json"
	"net/http"
)

// handleDebugSessions is a stateless, unauthenticated introspection
// endpoint: a JSON listing of every live session and its pending-request
// count.
func (s *Server) handleDebugSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"sessions": s.manager.List(),
	})
}
