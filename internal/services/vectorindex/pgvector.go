package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/ragline-ai/ragline/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// collection names become table names, so they must be plain identifiers
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PgvectorIndex stores collections as pgvector tables, one table per
// collection, cosine distance via the <=> operator.
type PgvectorIndex struct {
	pool *pgxpool.Pool
}

// NewPgvectorIndex connects to Postgres and enables the vector extension
func NewPgvectorIndex(ctx context.Context, cfg models.PgvectorIndexConfig) (*PgvectorIndex, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres url: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	return &PgvectorIndex{pool: pool}, nil
}

// Close releases the connection pool
func (p *PgvectorIndex) Close() {
	p.pool.Close()
}

func validCollection(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}

// EnsureCollection creates the collection table if missing
func (p *PgvectorIndex) EnsureCollection(ctx context.Context, name string, dim int) error {
	if err := validCollection(name); err != nil {
		return err
	}
	if dim <= 0 {
		return fmt.Errorf("invalid dimension %d", dim)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id uuid PRIMARY KEY,
		embedding vector(%d) NOT NULL,
		payload jsonb NOT NULL DEFAULT '{}',
		created_at timestamptz NOT NULL DEFAULT now()
	)`, name, dim)
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return models.NewProviderError("pgvector", fmt.Sprintf("failed to create collection %s", name), err)
	}

	fiberlog.Debugf("pgvector: collection %s ready (dim=%d)", name, dim)
	return nil
}

// Upsert inserts points; conflicting ids are overwritten
func (p *PgvectorIndex) Upsert(ctx context.Context, collection string, points []Point) error {
	if err := validCollection(collection); err != nil {
		return err
	}

	sql := fmt.Sprintf(`INSERT INTO %s (id, embedding, payload, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding,
			payload = EXCLUDED.payload, created_at = EXCLUDED.created_at`, collection)

	for _, point := range points {
		payloadJSON, err := json.Marshal(point.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload for point %s: %w", point.ID, err)
		}
		createdAt := point.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		vec := pgvector.NewVector(point.Vector)
		if _, err := p.pool.Exec(ctx, sql, point.ID, vec, payloadJSON, createdAt); err != nil {
			return models.NewProviderError("pgvector", fmt.Sprintf("failed to upsert into %s", collection), err)
		}
	}
	return nil
}

// Search returns points above the similarity threshold, best match first
func (p *PgvectorIndex) Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]ScoredPoint, error) {
	if err := validCollection(collection); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 1
	}

	// cosine similarity = 1 - cosine distance
	sql := fmt.Sprintf(`SELECT id, payload, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, collection)

	rows, err := p.pool.Query(ctx, sql, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, models.NewProviderError("pgvector", fmt.Sprintf("search in %s failed", collection), err)
	}
	defer rows.Close()

	var results []ScoredPoint
	for rows.Next() {
		var (
			id          string
			payloadJSON []byte
			score       float64
		)
		if err := rows.Scan(&id, &payloadJSON, &score); err != nil {
			return nil, models.NewProviderError("pgvector", "failed to scan search row", err)
		}
		if float32(score) < scoreThreshold {
			continue
		}
		payload := map[string]any{}
		if err := json.Unmarshal(payloadJSON, &payload); err != nil {
			return nil, models.NewProviderError("pgvector", "failed to decode payload", err)
		}
		results = append(results, ScoredPoint{ID: id, Score: float32(score), Payload: payload})
	}
	return results, rows.Err()
}

// DeleteOlderThan removes points created before cutoff
func (p *PgvectorIndex) DeleteOlderThan(ctx context.Context, collection string, cutoff time.Time) error {
	if err := validCollection(collection); err != nil {
		return err
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE created_at < $1", collection)
	tag, err := p.pool.Exec(ctx, sql, cutoff)
	if err != nil {
		return models.NewProviderError("pgvector", fmt.Sprintf("eviction from %s failed", collection), err)
	}
	if tag.RowsAffected() > 0 {
		fiberlog.Debugf("pgvector: evicted %d points from %s", tag.RowsAffected(), collection)
	}
	return nil
}
