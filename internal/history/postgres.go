// Package history provides an optional Postgres-backed append-only sink
// for committed drops, used for reporting and audits alongside the
// document store.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/97woo/tgbot/internal/config"
	"github.com/97woo/tgbot/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS drops (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL,
	user_name  TEXT,
	venue_id   TEXT NOT NULL,
	address    TEXT NOT NULL,
	amount_wei TEXT NOT NULL,
	tx_hash    TEXT NOT NULL,
	dropped_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS drops_user_id_idx ON drops (user_id);
CREATE INDEX IF NOT EXISTS drops_dropped_at_idx ON drops (dropped_at);
`

// PostgresSink appends committed drops to a Postgres table. Rows are
// insert-only; nothing in the bot ever updates or deletes them.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects to Postgres and ensures the drops table exists.
func NewPostgresSink(cfg *config.PostgresConfig) (*PostgresSink, error) {
	connString := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable pool_max_conns=%d",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Database,
		cfg.MaxConnections,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to create drops table: %w", err)
	}

	return &PostgresSink{pool: pool}, nil
}

// Record inserts one committed drop.
func (s *PostgresSink) Record(ctx context.Context, rec types.DropRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}

	query := `
		INSERT INTO drops (id, user_id, user_name, venue_id, address, amount_wei, tx_hash, dropped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		id,
		rec.UserID,
		rec.UserName,
		rec.VenueID,
		rec.Address,
		rec.AmountWei,
		rec.TxHash,
		time.Unix(rec.Timestamp, 0).UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert drop record: %w", err)
	}
	return nil
}

// CountForUser returns the number of drops recorded for a user.
func (s *PostgresSink) CountForUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM drops WHERE user_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count drops: %w", err)
	}
	return count, nil
}

// Close closes the connection pool.
func (s *PostgresSink) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
