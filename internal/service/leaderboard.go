package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/turntable-server/turntable/internal/domain"
	"github.com/turntable-server/turntable/internal/protocol"
)

// Partition identifies one leaderboard scope: a beatmap and mode narrowed by
// exactly one ranking type. Only the filter field matching Type is
// meaningful. Rank, range and count queries over the same Partition must
// observe identical ordering and predicates or rank and leaderboard content
// will disagree.
type Partition struct {
	BeatmapID int
	Mode      domain.GameMode
	Type      domain.RankingType

	Mods      domain.Mods // SelectedMod only
	Country   string      // Country only
	FriendIDs []int       // Friends only
}

// Snapshot is one consistent read scope over the score store. All queries
// made through a single Snapshot see the same data.
type Snapshot interface {
	// PersonalBest returns the requester's best qualifying score, or
	// domain.ErrScoreNotFound. Only the mod filter applies: a player's
	// best is their own regardless of country or friend scope.
	PersonalBest(ctx context.Context, p Partition, userID int) (*domain.Score, error)
	// Index returns the 0-based rank the given score holds in the
	// ordered partition: the number of entries that beat it. On friend
	// leaderboards the requester is not part of the partition, so the
	// rank is computed against the score rather than looked up by
	// player.
	Index(ctx context.Context, p Partition, score *domain.Score) (int, error)
	// Range returns the partition's best-per-player scores in ranking
	// order, at most limit entries.
	Range(ctx context.Context, p Partition, limit int) ([]domain.Score, error)
	// Count returns the number of players holding a score in the
	// partition.
	Count(ctx context.Context, p Partition) (int, error)
}

// ScoreStore opens consistent read scopes over score data.
type ScoreStore interface {
	View(ctx context.Context, fn func(Snapshot) error) error
}

// BeatmapStore resolves beatmap identities.
type BeatmapStore interface {
	ByFilename(ctx context.Context, filename string) (*domain.Beatmap, error)
	ByChecksum(ctx context.Context, checksum string) (*domain.Beatmap, error)
}

// RelationshipStore supplies the requester's friend id set.
type RelationshipStore interface {
	FriendIDs(ctx context.Context, userID int) ([]int, error)
}

// Leaderboard resolves beatmaps, selects score partitions and renders the
// wire response for every endpoint variant. It holds no per-request state.
type Leaderboard struct {
	beatmaps      BeatmapStore
	scores        ScoreStore
	relationships RelationshipStore
	limit         int
	logger        *slog.Logger
}

// NewLeaderboard creates the leaderboard engine. limit caps the number of
// score lines per response.
func NewLeaderboard(
	beatmaps BeatmapStore,
	scores ScoreStore,
	relationships RelationshipStore,
	limit int,
	logger *slog.Logger,
) *Leaderboard {
	return &Leaderboard{
		beatmaps:      beatmaps,
		scores:        scores,
		relationships: relationships,
		limit:         limit,
		logger:        logger,
	}
}

// Request carries one leaderboard lookup. Requester is nil on the endpoint
// generations that never authenticated.
type Request struct {
	Filename       string
	Checksum       string
	Mode           domain.GameMode
	RankingType    domain.RankingType
	Mods           domain.Mods
	SkipScores     bool
	RequestVersion int
	Requester      *domain.User
}

// Result is the rendered response body plus what the engine learned on the
// way. Fresh reports that the beatmap resolved and the client's copy is
// current; side effects such as mode-change events only fire on fresh
// requests.
type Result struct {
	Body  string
	Fresh bool
}

// Fetch produces the complete response body for one request against one
// endpoint variant. Store failures abort the whole response; a partial body
// is never returned.
func (l *Leaderboard) Fetch(ctx context.Context, v protocol.Variant, req Request) (Result, error) {
	beatmap, err := l.resolve(ctx, v, req)
	if errors.Is(err, domain.ErrBeatmapNotFound) {
		return Result{Body: protocol.Assemble(v, protocol.Page{})}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("resolving beatmap: %w", err)
	}

	page := protocol.Page{
		Beatmap:        beatmap,
		SkipScores:     req.SkipScores,
		RequestVersion: req.RequestVersion,
	}

	if !v.ChecksumOnly && beatmap.Checksum != req.Checksum {
		// The client's copy is outdated. This must short-circuit
		// before any score query runs.
		page.Stale = true
		return Result{Body: protocol.Assemble(v, page)}, nil
	}

	ranked := !v.RankedGate || beatmap.Ranked()
	skip := v.RankedGate && req.SkipScores

	// The five-field header reports the partition count even when the
	// client asked to skip the score lines, so the personal best is still
	// fetched then. The plain variants stop before their best line on
	// skip, so nothing is fetched for them.
	wantBest := ranked && v.PersonalBest && req.Requester != nil && (!skip || v.HeaderCounts)
	wantRange := ranked && !skip

	if !wantBest && !wantRange {
		return Result{Body: protocol.Assemble(v, page), Fresh: true}, nil
	}

	partition, err := l.partition(ctx, v, req, beatmap.ID)
	if err != nil {
		return Result{}, err
	}

	err = l.scores.View(ctx, func(s Snapshot) error {
		if wantBest {
			if err := l.personalBest(ctx, s, partition, req.Requester.ID, v, &page); err != nil {
				return err
			}
		}
		if !wantRange {
			return nil
		}

		scores, err := s.Range(ctx, partition, l.limit)
		if err != nil {
			return fmt.Errorf("fetching score range: %w", err)
		}
		page.Scores = scores
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return Result{Body: protocol.Assemble(v, page), Fresh: true}, nil
}

// resolve finds the beatmap by file name first, falling back to checksum.
// The oldest variant only ever supplies a checksum.
func (l *Leaderboard) resolve(ctx context.Context, v protocol.Variant, req Request) (*domain.Beatmap, error) {
	if v.ChecksumOnly {
		return l.beatmaps.ByChecksum(ctx, req.Checksum)
	}

	beatmap, err := l.beatmaps.ByFilename(ctx, req.Filename)
	if err == nil {
		return beatmap, nil
	}
	if !errors.Is(err, domain.ErrBeatmapNotFound) {
		return nil, err
	}
	return l.beatmaps.ByChecksum(ctx, req.Checksum)
}

// partition builds the score partition for the request. Variants without
// ranking type selection always get the unfiltered leaderboard.
func (l *Leaderboard) partition(ctx context.Context, v protocol.Variant, req Request, beatmapID int) (Partition, error) {
	p := Partition{
		BeatmapID: beatmapID,
		Mode:      req.Mode,
		Type:      domain.RankingTop,
	}
	if !v.SelectsRanking || req.Requester == nil {
		return p, nil
	}

	p.Type = req.RankingType
	switch req.RankingType {
	case domain.RankingSelectedMod:
		p.Mods = req.Mods
	case domain.RankingCountry:
		p.Country = req.Requester.Country
	case domain.RankingFriends:
		friends, err := l.relationships.FriendIDs(ctx, req.Requester.ID)
		if err != nil {
			return Partition{}, fmt.Errorf("fetching friend ids: %w", err)
		}
		p.FriendIDs = friends
	}
	return p, nil
}

// personalBest fills the requester's best score, its rank and the partition
// count. The count only surfaces through the five-field header; per
// historical behavior it is computed only when a personal best exists, and
// friend leaderboards add one for the requester's own entry.
func (l *Leaderboard) personalBest(ctx context.Context, s Snapshot, p Partition, userID int, v protocol.Variant, page *protocol.Page) error {
	best, err := s.PersonalBest(ctx, p, userID)
	if errors.Is(err, domain.ErrScoreNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetching personal best: %w", err)
	}

	index, err := s.Index(ctx, p, best)
	if err != nil {
		return fmt.Errorf("fetching score index: %w", err)
	}
	page.PersonalBest = best
	page.PersonalRank = index

	if v.HeaderCounts {
		count, err := s.Count(ctx, p)
		if err != nil {
			return fmt.Errorf("fetching score count: %w", err)
		}
		if p.Type == domain.RankingFriends {
			count++
		}
		page.ScoreCount = count
	}
	return nil
}
