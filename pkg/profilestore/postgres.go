package profilestore

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Migrations holds the goose migrations for PostgresStore. Apply them with
// pg.Migrate(ctx, pool, cfg, profilestore.Migrations, "migrations", log).
//
//go:embed migrations/*.sql
var Migrations embed.FS

// Querier is the subset of pgxpool.Pool used by PostgresStore.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore keeps profiles in the user_profiles table as jsonb.
type PostgresStore struct {
	db Querier
}

// NewPostgresStore keeps profiles in the user_profiles table. Run the
// embedded Migrations first.
func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	selectProfileSQL = `SELECT doc FROM user_profiles WHERE uid = $1`
	upsertProfileSQL = `INSERT INTO user_profiles (uid, doc, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (uid) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`
)

func (s *PostgresStore) Get(ctx context.Context, uid string) (*Profile, error) {
	if uid == "" {
		return nil, ErrEmptyUID
	}

	var raw []byte
	err := s.db.QueryRow(ctx, selectProfileSQL, uid).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profilestore: postgres select %s: %w", uid, err)
	}

	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("profilestore: decode %s: %w", uid, err)
	}
	return &p, nil
}

// Set upserts the profile for uid.
func (s *PostgresStore) Set(ctx context.Context, uid string, p Profile) error {
	if uid == "" {
		return ErrEmptyUID
	}
	p.UID = uid

	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("profilestore: encode %s: %w", uid, err)
	}
	if _, err := s.db.Exec(ctx, upsertProfileSQL, uid, string(raw)); err != nil {
		return fmt.Errorf("profilestore: postgres upsert %s: %w", uid, err)
	}
	return nil
}
