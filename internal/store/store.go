// Package store persists product records and QA results, and serves the
// concept-key duplicate index.
package store

import (
	"context"

	"github.com/nexusai/qa-gate/internal/model"
)

// ProductFilter specifies criteria for listing products.
type ProductFilter struct {
	Status model.ProductStatus `json:"status,omitempty"`
	Limit  int                 `json:"limit,omitempty"`
	Offset int                 `json:"offset,omitempty"`
}

// Store defines the persistence interface for the QA gate.
type Store interface {
	// Products
	UpsertProducts(ctx context.Context, products []model.ProductRecord) (int, error)
	GetProduct(ctx context.Context, id string) (*model.ProductRecord, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]model.ProductRecord, error)

	// Results. SaveResult also advances the product's listing status
	// to qa_passed/qa_failed and refreshes its concept key.
	SaveResult(ctx context.Context, productID string, result *model.QaResult) error
	LatestResult(ctx context.Context, productID string) (*model.QaResult, error)

	// Duplicate index: other products sharing a concept key, excluding
	// the given id, bounded by limit.
	FindDuplicates(ctx context.Context, conceptKey, excludeID string, limit int) ([]model.DuplicateSummary, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// qaStatusToProduct maps an evaluation verdict onto the listing
// lifecycle status written back to the products table.
func qaStatusToProduct(s model.QaStatus) model.ProductStatus {
	if s == model.QaStatusPassed {
		return model.ProductStatusQAPassed
	}
	return model.ProductStatusQAFailed
}
