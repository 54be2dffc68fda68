package domain

// RankingStatus is the moderation lifecycle stage of a beatmap as stored by
// the authoritative database. The numeric values are the store's own scale
// and also happen to be the codes the newest protocol vocabulary emits, but
// the two are kept separate on purpose (see internal/protocol).
type RankingStatus int

const (
	StatusGraveyard RankingStatus = -2
	StatusWIP       RankingStatus = -1
	StatusPending   RankingStatus = 0
	StatusRanked    RankingStatus = 1
	StatusApproved  RankingStatus = 2
	StatusQualified RankingStatus = 3
	StatusLoved     RankingStatus = 4
)

// Beatmap is a point-in-time snapshot of one difficulty plus the set-level
// metadata the wire format needs. It is read fresh from the store on every
// request and never cached.
type Beatmap struct {
	ID           int
	SetID        int
	Checksum     string
	Filename     string
	Status       RankingStatus
	DisplayTitle string
	Offset       int
	// Diff is the legacy user-rating field shown by old clients. It is
	// unrelated to modern difficulty ratings.
	Diff float64
}

// Ranked reports whether the beatmap has a leaderboard.
func (b *Beatmap) Ranked() bool {
	return b.Status > StatusPending
}
