package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/nexusai/qa-gate/internal/db"
	"github.com/nexusai/qa-gate/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements are prepared on each new connection for the
// hottest store operations during sweeps.
var preparedStatements = map[string]string{
	"get_product":     `SELECT record, status, concept_key FROM products WHERE id = $1`,
	"insert_result":   `INSERT INTO qa_results (id, product_id, status, score, result, checked_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"set_status":      `UPDATE products SET status = $1, concept_key = $2, updated_at = $3 WHERE id = $4`,
	"latest_result":   `SELECT result FROM qa_results WHERE product_id = $1 ORDER BY checked_at DESC LIMIT 1`,
	"find_duplicates": `SELECT id, record->>'title', (record->>'price')::float8, status FROM products WHERE concept_key = $1 AND id <> $2 ORDER BY created_at LIMIT $3`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	record      JSONB NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	concept_key TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS qa_results (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	product_id TEXT NOT NULL REFERENCES products(id),
	status     TEXT NOT NULL,
	score      INTEGER NOT NULL,
	result     JSONB NOT NULL,
	checked_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_status ON products(status);
CREATE INDEX IF NOT EXISTS idx_products_concept_key ON products(concept_key);
CREATE INDEX IF NOT EXISTS idx_qa_results_product_id ON qa_results(product_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertProducts(ctx context.Context, products []model.ProductRecord) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(products))
	for _, p := range products {
		if p.ID == "" {
			return 0, eris.New("postgres: product record without id")
		}
		recordJSON, err := json.Marshal(p)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal product %s", p.ID)
		}
		status := p.Status
		if status == "" {
			status = model.ProductStatusPending
		}
		rows = append(rows, []any{p.ID, recordJSON, string(status), p.ConceptKey, now, now})
	}

	n, err := db.BulkUpsert(ctx, s.pool, "products",
		[]string{"id", "record", "status", "concept_key", "created_at", "updated_at"},
		[]string{"id"},
		rows,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert products")
	}
	return int(n), nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*model.ProductRecord, error) {
	var recordJSON []byte
	var status, conceptKey string

	err := s.pool.QueryRow(ctx,
		`SELECT record, status, concept_key FROM products WHERE id = $1`, id,
	).Scan(&recordJSON, &status, &conceptKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("product not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get product %s", id)
	}

	var p model.ProductRecord
	if err := json.Unmarshal(recordJSON, &p); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal product %s", id)
	}
	p.Status = model.ProductStatus(status)
	p.ConceptKey = conceptKey
	return &p, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, filter ProductFilter) ([]model.ProductRecord, error) {
	query := `SELECT record, status, concept_key FROM products WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	query += ` ORDER BY created_at`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list products")
	}
	defer rows.Close()

	var products []model.ProductRecord
	for rows.Next() {
		var recordJSON []byte
		var status, conceptKey string
		if err := rows.Scan(&recordJSON, &status, &conceptKey); err != nil {
			return nil, eris.Wrap(err, "postgres: scan product")
		}
		var p model.ProductRecord
		if err := json.Unmarshal(recordJSON, &p); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal product")
		}
		p.Status = model.ProductStatus(status)
		p.ConceptKey = conceptKey
		products = append(products, p)
	}
	return products, eris.Wrap(rows.Err(), "postgres: list products iterate")
}

func (s *PostgresStore) SaveResult(ctx context.Context, productID string, result *model.QaResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save result")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO qa_results (id, product_id, status, score, result, checked_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), productID, string(result.Status), result.Score, resultJSON, result.CheckedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert result for %s", productID)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE products SET status = $1, concept_key = $2, updated_at = $3 WHERE id = $4`,
		string(qaStatusToProduct(result.Status)), result.ConceptKey, time.Now().UTC(), productID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update product status %s", productID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("product not found: %s", productID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save result")
}

func (s *PostgresStore) LatestResult(ctx context.Context, productID string) (*model.QaResult, error) {
	var resultJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM qa_results WHERE product_id = $1 ORDER BY checked_at DESC LIMIT 1`,
		productID,
	).Scan(&resultJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest result for %s", productID)
	}

	var r model.QaResult
	if err := json.Unmarshal(resultJSON, &r); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal result for %s", productID)
	}
	return &r, nil
}

func (s *PostgresStore) FindDuplicates(ctx context.Context, conceptKey, excludeID string, limit int) ([]model.DuplicateSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, record->>'title', (record->>'price')::float8, status
		 FROM products
		 WHERE concept_key = $1 AND id <> $2
		 ORDER BY created_at
		 LIMIT $3`,
		conceptKey, excludeID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find duplicates")
	}
	defer rows.Close()

	var dups []model.DuplicateSummary
	for rows.Next() {
		var d model.DuplicateSummary
		var title *string
		var price *float64
		var status string
		if err := rows.Scan(&d.ID, &title, &price, &status); err != nil {
			return nil, eris.Wrap(err, "postgres: scan duplicate")
		}
		if title != nil {
			d.Title = *title
		}
		d.Price = price
		d.Status = model.ProductStatus(status)
		dups = append(dups, d)
	}
	return dups, eris.Wrap(rows.Err(), "postgres: find duplicates iterate")
}
