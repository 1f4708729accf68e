package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cornerstats/fight-predictor/internal/predictor"
)

// PgPool is the subset of pgxpool.Pool used by PostgresStore.
type PgPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS predictor_artifacts (
	id          UUID PRIMARY KEY,
	created_at  TIMESTAMPTZ NOT NULL,
	ensemble_accuracy DOUBLE PRECISION,
	body        JSONB NOT NULL
)`

// PostgresStore keeps every trained artifact in the predictor_artifacts
// table. Latest is the most recently created one.
type PostgresStore struct {
	pg PgPool
}

// NewPostgresStore wraps a connection pool.
func NewPostgresStore(pg PgPool) *PostgresStore {
	return &PostgresStore{pg: pg}
}

// EnsureSchema creates the artifacts table if needed.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pg.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create predictor_artifacts: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, a *predictor.Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	var body bytes.Buffer
	if err := predictor.Encode(&body, a); err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	var accuracy *float64
	if a.Metrics != nil {
		accuracy = &a.Metrics.Ensemble.TestAccuracy
	}
	_, err := s.pg.Exec(ctx, `
		INSERT INTO predictor_artifacts (id, created_at, ensemble_accuracy, body)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, ensemble_accuracy = EXCLUDED.ensemble_accuracy
	`, a.ID, a.CreatedAt, accuracy, body.String())
	if err != nil {
		return fmt.Errorf("insert artifact %s: %w", a.ID, err)
	}
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context) (*predictor.Artifact, error) {
	row := s.pg.QueryRow(ctx, `SELECT body FROM predictor_artifacts ORDER BY created_at DESC LIMIT 1`)
	return s.scan(row, "latest")
}

func (s *PostgresStore) Load(ctx context.Context, id string) (*predictor.Artifact, error) {
	row := s.pg.QueryRow(ctx, `SELECT body FROM predictor_artifacts WHERE id = $1`, id)
	return s.scan(row, id)
}

func (s *PostgresStore) scan(row pgx.Row, what string) (*predictor.Artifact, error) {
	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, what)
		}
		return nil, fmt.Errorf("query artifact %s: %w", what, err)
	}
	return predictor.Decode(bytes.NewBufferString(body))
}
