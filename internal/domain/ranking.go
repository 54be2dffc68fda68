package domain

// GameMode is the play mode a leaderboard is partitioned by.
type GameMode int

const (
	ModeOsu GameMode = iota
	ModeTaiko
	ModeCatch
	ModeMania
)

// ParseGameMode validates a client-supplied mode value.
func ParseGameMode(v int) (GameMode, error) {
	if v < int(ModeOsu) || v > int(ModeMania) {
		return 0, ErrInvalidRequest
	}
	return GameMode(v), nil
}

// RankingType is the leaderboard scope a client requests. Exactly one is
// active per request; it decides both the range query and the scope the
// player's own rank is computed within. The numeric values are fixed by the
// client's query parameter encoding.
type RankingType int

const (
	RankingTop         RankingType = 1
	RankingSelectedMod RankingType = 2
	RankingFriends     RankingType = 3
	RankingCountry     RankingType = 4
)

// ParseRankingType validates a client-supplied ranking type value. Zero is
// accepted as Top for clients that omit the parameter entirely.
func ParseRankingType(v int) (RankingType, error) {
	switch RankingType(v) {
	case RankingTop, RankingSelectedMod, RankingFriends, RankingCountry:
		return RankingType(v), nil
	}
	if v == 0 {
		return RankingTop, nil
	}
	return 0, ErrInvalidRequest
}
