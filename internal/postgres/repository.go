package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/turntable-server/turntable/internal/config"
	"github.com/turntable-server/turntable/internal/domain"
	"github.com/turntable-server/turntable/internal/service"
)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			country VARCHAR(2) NOT NULL DEFAULT 'XX',
			password_hash VARCHAR(255) NOT NULL,
			latest_activity TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS beatmapsets (
			id BIGSERIAL PRIMARY KEY,
			display_title TEXT NOT NULL DEFAULT '',
			global_offset INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS beatmaps (
			id BIGSERIAL PRIMARY KEY,
			set_id BIGINT NOT NULL REFERENCES beatmapsets(id) ON DELETE CASCADE,
			md5 VARCHAR(32) NOT NULL,
			filename TEXT NOT NULL,
			status SMALLINT NOT NULL DEFAULT 0,
			diff DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS scores (
			id BIGSERIAL PRIMARY KEY,
			beatmap_id BIGINT NOT NULL REFERENCES beatmaps(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			mode SMALLINT NOT NULL DEFAULT 0,
			total_score BIGINT NOT NULL,
			max_combo INT NOT NULL DEFAULT 0,
			count_50 INT NOT NULL DEFAULT 0,
			count_100 INT NOT NULL DEFAULT 0,
			count_300 INT NOT NULL DEFAULT 0,
			count_miss INT NOT NULL DEFAULT 0,
			count_katu INT NOT NULL DEFAULT 0,
			count_geki INT NOT NULL DEFAULT 0,
			perfect BOOLEAN NOT NULL DEFAULT FALSE,
			mods INT NOT NULL DEFAULT 0,
			submitted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			target_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, target_id)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_beatmaps_md5 ON beatmaps(md5)`,
		`CREATE INDEX IF NOT EXISTS idx_beatmaps_filename ON beatmaps(filename)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_leaderboard ON scores(beatmap_id, mode, total_score DESC, submitted_at ASC)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_user ON scores(user_id, beatmap_id, mode)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

const beatmapColumns = `
	b.id, b.set_id, b.md5, b.filename, b.status, b.diff,
	bs.display_title, bs.global_offset
`

func scanBeatmap(row pgx.Row) (*domain.Beatmap, error) {
	var b domain.Beatmap
	err := row.Scan(
		&b.ID,
		&b.SetID,
		&b.Checksum,
		&b.Filename,
		&b.Status,
		&b.Diff,
		&b.DisplayTitle,
		&b.Offset,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrBeatmapNotFound
		}
		return nil, fmt.Errorf("scanning beatmap: %w", err)
	}
	return &b, nil
}

// ByFilename resolves a beatmap by its client-side file name.
func (r *Repository) ByFilename(ctx context.Context, filename string) (*domain.Beatmap, error) {
	query := `
		SELECT ` + beatmapColumns + `
		FROM beatmaps b
		JOIN beatmapsets bs ON bs.id = b.set_id
		WHERE b.filename = $1
	`
	return scanBeatmap(r.pool.QueryRow(ctx, query, filename))
}

// ByChecksum resolves a beatmap by its content checksum.
func (r *Repository) ByChecksum(ctx context.Context, checksum string) (*domain.Beatmap, error) {
	query := `
		SELECT ` + beatmapColumns + `
		FROM beatmaps b
		JOIN beatmapsets bs ON bs.id = b.set_id
		WHERE b.md5 = $1
	`
	return scanBeatmap(r.pool.QueryRow(ctx, query, checksum))
}

// UserByID fetches a user by id.
func (r *Repository) UserByID(ctx context.Context, id int) (*domain.User, error) {
	query := `SELECT id, name, country, password_hash, latest_activity FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// UserByName fetches a user by name.
func (r *Repository) UserByName(ctx context.Context, name string) (*domain.User, error) {
	query := `SELECT id, name, country, password_hash, latest_activity FROM users WHERE name = $1`
	return scanUser(r.pool.QueryRow(ctx, query, name))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Country, &u.PasswordHash, &u.LatestActivity)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return &u, nil
}

// TouchActivity stamps latest_activity for a batch of users.
func (r *Repository) TouchActivity(ctx context.Context, userIDs []int) error {
	if len(userIDs) == 0 {
		return nil
	}
	query := `UPDATE users SET latest_activity = CURRENT_TIMESTAMP WHERE id = ANY($1)`
	if _, err := r.pool.Exec(ctx, query, userIDs); err != nil {
		return fmt.Errorf("touching activity: %w", err)
	}
	return nil
}

// FriendIDs returns the ids of everyone the user has added.
func (r *Repository) FriendIDs(ctx context.Context, userID int) ([]int, error) {
	query := `SELECT target_id FROM relationships WHERE user_id = $1`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching friend ids: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning friend id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// View runs fn inside one repeatable-read transaction so rank, range and
// count queries observe the same data even under concurrent submissions.
func (r *Repository) View(ctx context.Context, fn func(service.Snapshot) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("beginning read transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&snapshot{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
