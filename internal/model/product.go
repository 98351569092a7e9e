package model

import (
	"time"
)

// ProductStatus tracks a product through the listing lifecycle.
type ProductStatus string

const (
	ProductStatusPending   ProductStatus = "pending"
	ProductStatusDraft     ProductStatus = "draft"
	ProductStatusQAPassed  ProductStatus = "qa_passed"
	ProductStatusQAFailed  ProductStatus = "qa_failed"
	ProductStatusPublished ProductStatus = "published"
)

// QaStatus is the verdict of a single evaluation.
type QaStatus string

const (
	QaStatusPassed QaStatus = "passed"
	QaStatusFailed QaStatus = "failed"
)

// Canonical fail reasons emitted by the rubric. Reporting keys — renaming
// one breaks downstream dashboards.
const (
	FailTitleTooShort       = "title_too_short"
	FailTitlePlaceholder    = "title_placeholder"
	FailDescriptionTooShort = "description_too_short"
	FailMissingWhatsInside  = "missing_whats_inside_language"
	FailBannedClaims        = "banned_claims"
	FailCoverPlaceholder    = "cover_missing_or_placeholder"
	FailArtifactMissing     = "artifact_missing"
	FailArtifactTooSmall    = "artifact_too_small"
	FailReadmeMissing       = "readme_missing"
	FailPromptCountMismatch = "prompt_count_mismatch"
	FailPriceInvalid        = "price_invalid"
)

// ProductRecord is a product listing as stored upstream. The QA core
// treats it as read-only input; ConceptKey is the one derived field,
// populated at import or evaluation time.
type ProductRecord struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Price          *float64      `json:"price,omitempty"`
	ProductType    string        `json:"product_type,omitempty"`
	PromptCount    *int          `json:"prompt_count,omitempty"`
	CoverURL       string        `json:"cover_url,omitempty"`
	ArtifactPath   string        `json:"artifact_path,omitempty"`
	ArtifactURL    string        `json:"artifact_url,omitempty"`
	ProductGroupID string        `json:"product_group_id,omitempty"`
	VariantOf      string        `json:"variant_of,omitempty"`
	Status         ProductStatus `json:"status,omitempty"`
	ConceptKey     string        `json:"concept_key,omitempty"`
}

// InVariantGroup reports whether the record carries a group/variant
// linkage, which suppresses duplicate flagging by the caller.
func (p *ProductRecord) InVariantGroup() bool {
	return p.ProductGroupID != "" || p.VariantOf != ""
}

// QaResult is the outcome of one rubric evaluation. Constructed fresh
// per call; persistence is the caller's concern.
type QaResult struct {
	Status      QaStatus  `json:"status"`
	Score       int       `json:"score"`
	FailReasons []string  `json:"fail_reasons"`
	ConceptKey  string    `json:"concept_key"`
	CheckedAt   time.Time `json:"checked_at"`
	Details     QaDetails `json:"details"`
}

// QaDetails carries diagnostic payloads that are not part of the
// pass/fail contract.
type QaDetails struct {
	Artifact      ArtifactInspection `json:"artifact"`
	BannedMatches []string           `json:"banned_matches,omitempty"`
}

// DuplicateSummary is a bounded projection of another product sharing
// a concept key.
type DuplicateSummary struct {
	ID     string        `json:"id"`
	Title  string        `json:"title,omitempty"`
	Price  *float64      `json:"price,omitempty"`
	Status ProductStatus `json:"status,omitempty"`
}
