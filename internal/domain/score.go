package domain

import "time"

// Mods is the client's mod selection bitmask. The server never interprets
// individual bits; it only matches them exactly for mod-filtered
// leaderboards and echoes them back on the wire.
type Mods int

// Score is one submitted score as read from the store. Scores are immutable
// once created; submission itself is handled elsewhere.
type Score struct {
	ID         int
	UserID     int
	Username   string
	TotalScore int64
	MaxCombo   int
	Count50    int
	Count100   int
	Count300   int
	CountMiss  int
	CountKatu  int
	CountGeki  int
	Perfect    bool
	Mods       Mods
	Mode       GameMode
	// SubmittedAt breaks ties between equal total scores: the earlier
	// submission ranks higher. Every leaderboard query depends on this
	// ordering.
	SubmittedAt time.Time
}
