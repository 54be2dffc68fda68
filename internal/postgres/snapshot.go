package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/turntable-server/turntable/internal/domain"
	"github.com/turntable-server/turntable/internal/service"
)

// snapshot serves all score queries of one request from a single
// repeatable-read transaction. Every query builds on the same best-per-player
// subquery so the selector, the rank and the count can never disagree.
type snapshot struct {
	tx pgx.Tx
}

const scoreColumns = `
	id, user_id, name, total_score, max_combo,
	count_50, count_100, count_300, count_miss, count_katu, count_geki,
	perfect, mods, mode, submitted_at
`

// bestCTE yields each player's single best score in the partition, ranked by
// total score with earlier submissions winning ties. The score ordering here
// is the leaderboard contract; Index and Range must never diverge from it.
func bestCTE(p service.Partition) (string, []any) {
	conds := []string{"s.beatmap_id = $1", "s.mode = $2"}
	args := []any{p.BeatmapID, int(p.Mode)}

	switch p.Type {
	case domain.RankingSelectedMod:
		args = append(args, int(p.Mods))
		conds = append(conds, fmt.Sprintf("s.mods = $%d", len(args)))
	case domain.RankingCountry:
		args = append(args, p.Country)
		conds = append(conds, fmt.Sprintf("u.country = $%d", len(args)))
	case domain.RankingFriends:
		ids := p.FriendIDs
		if ids == nil {
			ids = []int{}
		}
		args = append(args, ids)
		conds = append(conds, fmt.Sprintf("s.user_id = ANY($%d)", len(args)))
	}

	cte := `
		WITH best AS (
			SELECT DISTINCT ON (s.user_id)
				s.id, s.user_id, u.name, s.total_score, s.max_combo,
				s.count_50, s.count_100, s.count_300,
				s.count_miss, s.count_katu, s.count_geki,
				s.perfect, s.mods, s.mode, s.submitted_at
			FROM scores s
			JOIN users u ON u.id = s.user_id
			WHERE ` + strings.Join(conds, " AND ") + `
			ORDER BY s.user_id, s.total_score DESC, s.submitted_at ASC
		)
	`
	return cte, args
}

func scanScore(row pgx.Row) (*domain.Score, error) {
	var s domain.Score
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Username,
		&s.TotalScore,
		&s.MaxCombo,
		&s.Count50,
		&s.Count100,
		&s.Count300,
		&s.CountMiss,
		&s.CountKatu,
		&s.CountGeki,
		&s.Perfect,
		&s.Mods,
		&s.Mode,
		&s.SubmittedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrScoreNotFound
		}
		return nil, fmt.Errorf("scanning score: %w", err)
	}
	return &s, nil
}

// PersonalBest returns the player's best score on the beatmap and mode. Only
// the mod filter narrows it; country and friend scopes never exclude the
// player's own score.
func (s *snapshot) PersonalBest(ctx context.Context, p service.Partition, userID int) (*domain.Score, error) {
	conds := []string{"s.beatmap_id = $1", "s.mode = $2", "s.user_id = $3"}
	args := []any{p.BeatmapID, int(p.Mode), userID}
	if p.Type == domain.RankingSelectedMod {
		args = append(args, int(p.Mods))
		conds = append(conds, fmt.Sprintf("s.mods = $%d", len(args)))
	}

	query := `
		SELECT
			s.id, s.user_id, u.name, s.total_score, s.max_combo,
			s.count_50, s.count_100, s.count_300,
			s.count_miss, s.count_katu, s.count_geki,
			s.perfect, s.mods, s.mode, s.submitted_at
		FROM scores s
		JOIN users u ON u.id = s.user_id
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY s.total_score DESC, s.submitted_at ASC
		LIMIT 1
	`
	return scanScore(s.tx.QueryRow(ctx, query, args...))
}

// Index returns the 0-based rank of the given score in the partition by
// counting the entries that beat it. Friend leaderboards exclude the
// requester, so the rank is computed against the score itself instead of
// being looked up by player.
func (s *snapshot) Index(ctx context.Context, p service.Partition, score *domain.Score) (int, error) {
	cte, args := bestCTE(p)
	args = append(args, score.TotalScore, score.SubmittedAt)
	query := cte + fmt.Sprintf(`
		SELECT COUNT(*) FROM best
		WHERE total_score > $%d
		   OR (total_score = $%d AND submitted_at < $%d)
	`, len(args)-1, len(args)-1, len(args))

	var index int
	if err := s.tx.QueryRow(ctx, query, args...).Scan(&index); err != nil {
		return 0, fmt.Errorf("fetching score index: %w", err)
	}
	return index, nil
}

// Range returns up to limit best-per-player scores in ranking order.
func (s *snapshot) Range(ctx context.Context, p service.Partition, limit int) ([]domain.Score, error) {
	cte, args := bestCTE(p)
	args = append(args, limit)
	query := cte + fmt.Sprintf(`
		SELECT `+scoreColumns+`
		FROM best
		ORDER BY total_score DESC, submitted_at ASC
		LIMIT $%d
	`, len(args))

	rows, err := s.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching score range: %w", err)
	}
	defer rows.Close()

	var scores []domain.Score
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, *score)
	}
	return scores, rows.Err()
}

// Count returns the number of players holding a score in the partition.
func (s *snapshot) Count(ctx context.Context, p service.Partition) (int, error) {
	cte, args := bestCTE(p)
	query := cte + `SELECT COUNT(*) FROM best`

	var count int
	if err := s.tx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("fetching score count: %w", err)
	}
	return count, nil
}
