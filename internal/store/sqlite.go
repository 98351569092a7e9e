package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/nexusai/qa-gate/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	record      TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	concept_key TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS qa_results (
	id         TEXT PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES products(id),
	status     TEXT NOT NULL,
	score      INTEGER NOT NULL,
	result     TEXT NOT NULL,
	checked_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_status ON products(status);
CREATE INDEX IF NOT EXISTS idx_products_concept_key ON products(concept_key);
CREATE INDEX IF NOT EXISTS idx_qa_results_product_id ON qa_results(product_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertProducts(ctx context.Context, products []model.ProductRecord) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for _, p := range products {
		if p.ID == "" {
			return 0, eris.New("sqlite: product record without id")
		}
		recordJSON, err := json.Marshal(p)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal product %s", p.ID)
		}
		status := p.Status
		if status == "" {
			status = model.ProductStatusPending
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO products (id, record, status, concept_key, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   record = excluded.record,
			   status = excluded.status,
			   concept_key = excluded.concept_key,
			   updated_at = excluded.updated_at`,
			p.ID, string(recordJSON), string(status), p.ConceptKey, now, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert product %s", p.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return len(products), nil
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*model.ProductRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT record, status, concept_key FROM products WHERE id = ?`, id,
	)

	var recordJSON string
	var status, conceptKey string
	err := row.Scan(&recordJSON, &status, &conceptKey)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("product not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get product %s", id)
	}

	var p model.ProductRecord
	if err := json.Unmarshal([]byte(recordJSON), &p); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal product %s", id)
	}
	p.Status = model.ProductStatus(status)
	p.ConceptKey = conceptKey
	return &p, nil
}

func (s *SQLiteStore) ListProducts(ctx context.Context, filter ProductFilter) ([]model.ProductRecord, error) {
	query := `SELECT record, status, concept_key FROM products WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list products")
	}
	defer rows.Close() //nolint:errcheck

	var products []model.ProductRecord
	for rows.Next() {
		var recordJSON, status, conceptKey string
		if err := rows.Scan(&recordJSON, &status, &conceptKey); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan product")
		}
		var p model.ProductRecord
		if err := json.Unmarshal([]byte(recordJSON), &p); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal product")
		}
		p.Status = model.ProductStatus(status)
		p.ConceptKey = conceptKey
		products = append(products, p)
	}
	return products, eris.Wrap(rows.Err(), "sqlite: list products iterate")
}

func (s *SQLiteStore) SaveResult(ctx context.Context, productID string, result *model.QaResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save result")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO qa_results (id, product_id, status, score, result, checked_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), productID, string(result.Status), result.Score, string(resultJSON), result.CheckedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert result for %s", productID)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE products SET status = ?, concept_key = ?, updated_at = ? WHERE id = ?`,
		string(qaStatusToProduct(result.Status)), result.ConceptKey, time.Now().UTC(), productID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update product status %s", productID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("product not found: %s", productID)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save result")
}

func (s *SQLiteStore) LatestResult(ctx context.Context, productID string) (*model.QaResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT result FROM qa_results WHERE product_id = ? ORDER BY checked_at DESC LIMIT 1`,
		productID,
	)

	var resultJSON string
	err := row.Scan(&resultJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest result for %s", productID)
	}

	var r model.QaResult
	if err := json.Unmarshal([]byte(resultJSON), &r); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal result for %s", productID)
	}
	return &r, nil
}

func (s *SQLiteStore) FindDuplicates(ctx context.Context, conceptKey, excludeID string, limit int) ([]model.DuplicateSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id,
		        json_extract(record, '$.title'),
		        json_extract(record, '$.price'),
		        status
		 FROM products
		 WHERE concept_key = ? AND id <> ?
		 ORDER BY created_at
		 LIMIT ?`,
		conceptKey, excludeID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find duplicates")
	}
	defer rows.Close() //nolint:errcheck

	var dups []model.DuplicateSummary
	for rows.Next() {
		var d model.DuplicateSummary
		var title sql.NullString
		var price sql.NullFloat64
		var status string
		if err := rows.Scan(&d.ID, &title, &price, &status); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan duplicate")
		}
		if title.Valid {
			d.Title = title.String
		}
		if price.Valid {
			p := price.Float64
			d.Price = &p
		}
		d.Status = model.ProductStatus(status)
		dups = append(dups, d)
	}
	return dups, eris.Wrap(rows.Err(), "sqlite: find duplicates iterate")
}
