package adaptors

import (
	"context"
	"time"

	domain "site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/queue"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	json "github.com/json-iterator/go"
)

// DBPool is the subset of *pgxpool.Pool the repository uses.
type DBPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const createAnalysesSQL = `
CREATE TABLE IF NOT EXISTS analyses (
    id           TEXT PRIMARY KEY,
    url          TEXT NOT NULL,
    grade        TEXT NOT NULL,
    score        INTEGER NOT NULL,
    lead_tier    TEXT NOT NULL,
    document     JSONB NOT NULL,
    completed_at TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertAnalysisSQL = `
INSERT INTO analyses (id, url, grade, score, lead_tier, document, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    url = EXCLUDED.url,
    grade = EXCLUDED.grade,
    score = EXCLUDED.score,
    lead_tier = EXCLUDED.lead_tier,
    document = EXCLUDED.document,
    completed_at = EXCLUDED.completed_at,
    updated_at = now()`

const selectAnalysisSQL = `SELECT document FROM analyses WHERE id = $1`

// PostgresRepository stores analysis records as JSONB documents.
type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// ConnectPostgres opens a pool and checks it with a ping.
func ConnectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, errors.Wrap(err, `failed to parse database url`)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, `failed to create pool`)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, `failed to reach database`)
	}
	return pool, nil
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createAnalysesSQL); err != nil {
		return errors.Wrap(err, `failed to create analyses table`)
	}
	return nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, record *models.AnalysisRecord) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, `failed to encode record`)
	}
	_, err = r.pool.Exec(ctx, upsertAnalysisSQL,
		record.ID,
		record.URL,
		record.Grade.Letter,
		record.Grade.Score,
		string(record.Lead.Tier),
		doc,
		record.CompletedAt,
	)
	if err != nil {
		return classifyPostgres(errors.Wrap(err, `failed to upsert analysis`))
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	var doc []byte
	if err := r.pool.QueryRow(ctx, selectAnalysisSQL, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classifyPostgres(errors.Wrap(err, `failed to read analysis`))
	}
	var record models.AnalysisRecord
	if err := json.Unmarshal(doc, &record); err != nil {
		return nil, errors.Wrap(err, `failed to decode record`)
	}
	return &record, nil
}

// classifyPostgres marks errors pgx reports as safe to retry.
func classifyPostgres(err error) error {
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return queue.MarkTransient(err)
	}
	return err
}
