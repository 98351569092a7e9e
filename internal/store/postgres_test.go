package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusai/qa-gate/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return &PostgresStore{pool: mock, closeFn: mock.Close}, mock
}

func TestPostgresGetProduct(t *testing.T) {
	s, mock := newMockStore(t)

	record, err := json.Marshal(model.ProductRecord{ID: "prod_1", Title: "Real Estate Prompts"})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT record, status, concept_key FROM products WHERE id = \$1`).
		WithArgs("prod_1").
		WillReturnRows(pgxmock.NewRows([]string{"record", "status", "concept_key"}).
			AddRow(record, "qa_passed", "real estate"))

	got, err := s.GetProduct(context.Background(), "prod_1")
	require.NoError(t, err)
	assert.Equal(t, "Real Estate Prompts", got.Title)
	assert.Equal(t, model.ProductStatusQAPassed, got.Status)
	assert.Equal(t, "real estate", got.ConceptKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetProductNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT record, status, concept_key FROM products WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"record", "status", "concept_key"}))

	_, err := s.GetProduct(context.Background(), "missing")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveResult(t *testing.T) {
	s, mock := newMockStore(t)

	result := &model.QaResult{
		Status:     model.QaStatusPassed,
		Score:      92,
		ConceptKey: "real estate",
		CheckedAt:  time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO qa_results`).
		WithArgs(pgxmock.AnyArg(), "prod_1", "passed", 92, pgxmock.AnyArg(), result.CheckedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE products SET status = \$1`).
		WithArgs("qa_passed", "real estate", pgxmock.AnyArg(), "prod_1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, s.SaveResult(context.Background(), "prod_1", result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveResultUnknownProduct(t *testing.T) {
	s, mock := newMockStore(t)

	result := &model.QaResult{
		Status:    model.QaStatusFailed,
		Score:     30,
		CheckedAt: time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO qa_results`).
		WithArgs(pgxmock.AnyArg(), "missing", "failed", 30, pgxmock.AnyArg(), result.CheckedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE products SET status = \$1`).
		WithArgs("qa_failed", "", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := s.SaveResult(context.Background(), "missing", result)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLatestResult(t *testing.T) {
	s, mock := newMockStore(t)

	stored, err := json.Marshal(model.QaResult{Status: model.QaStatusPassed, Score: 88})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT result FROM qa_results WHERE product_id = \$1`).
		WithArgs("prod_1").
		WillReturnRows(pgxmock.NewRows([]string{"result"}).AddRow(stored))

	got, err := s.LatestResult(context.Background(), "prod_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 88, got.Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLatestResultNone(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT result FROM qa_results WHERE product_id = \$1`).
		WithArgs("prod_1").
		WillReturnRows(pgxmock.NewRows([]string{"result"}))

	got, err := s.LatestResult(context.Background(), "prod_1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindDuplicates(t *testing.T) {
	s, mock := newMockStore(t)

	title := "Real Estate Prompts (120 Prompts)"
	price := 24.0
	mock.ExpectQuery(`SELECT id, record->>'title'`).
		WithArgs("real estate", "prod_a", 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "price", "status"}).
			AddRow("prod_b", &title, &price, "pending"))

	dups, err := s.FindDuplicates(context.Background(), "real estate", "prod_a", 10)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, "prod_b", dups[0].ID)
	assert.Equal(t, title, dups[0].Title)
	require.NotNil(t, dups[0].Price)
	assert.Equal(t, price, *dups[0].Price)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListProducts(t *testing.T) {
	s, mock := newMockStore(t)

	record, err := json.Marshal(model.ProductRecord{ID: "prod_1", Title: "A"})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT record, status, concept_key FROM products WHERE 1=1 AND status = \$1`).
		WithArgs("pending", 50).
		WillReturnRows(pgxmock.NewRows([]string{"record", "status", "concept_key"}).
			AddRow(record, "pending", "a"))

	products, err := s.ListProducts(context.Background(), ProductFilter{
		Status: model.ProductStatusPending,
		Limit:  50,
	})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "prod_1", products[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
