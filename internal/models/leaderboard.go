package models

// LeaderboardEntry is one row of the ranked-rating leaderboard.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
}
