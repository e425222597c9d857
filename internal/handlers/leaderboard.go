package handlers

import (
	"net/http"
	"strconv"
)

const defaultLadderSize = 10

// LeaderboardHandler serves the top-N ranked ladder.
func LeaderboardHandler(s *ArenaServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := defaultLadderSize
		if raw := r.URL.Query().Get("n"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 1 || v > 100 {
				http.Error(w, "n must be between 1 and 100", http.StatusBadRequest)
				return
			}
			n = v
		}

		rows, err := s.Ladder.Top(r.Context(), n)
		if err != nil {
			http.Error(w, "leaderboard unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}
