package qa

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nexusai/qa-gate/internal/inspect"
	"github.com/nexusai/qa-gate/internal/model"
	"github.com/nexusai/qa-gate/internal/textnorm"
)

// titlePlaceholderMarker is the literal left behind by the listing
// template when a title was never filled in.
const titlePlaceholderMarker = "product title"

// untitledFallback feeds the concept-key derivation for records with an
// empty title, since the derivation only strips and never defaults.
const untitledFallback = "untitled"

// Evaluator applies the rubric to product records. Stateless between
// calls; safe for concurrent use as long as the injected inspector is.
type Evaluator struct {
	inspector inspect.Inspector
	rubric    Rubric
	vocab     textnorm.Vocabulary
}

// NewEvaluator wires an evaluator. The inspector is injected so tests
// can exercise the rubric without touching disk or network.
func NewEvaluator(inspector inspect.Inspector, rubric Rubric, vocab textnorm.Vocabulary) *Evaluator {
	return &Evaluator{
		inspector: inspector,
		rubric:    rubric,
		vocab:     vocab,
	}
}

// Evaluate runs the full rubric over one record. Malformed field values
// are rubric inputs, not errors; the only error path is a nil record,
// which is a caller bug.
func (e *Evaluator) Evaluate(ctx context.Context, p *model.ProductRecord) (*model.QaResult, error) {
	if p == nil {
		return nil, eris.New("qa: evaluate called with nil product record")
	}

	var (
		deductions int
		reasons    []string
		seen       = make(map[string]bool)
	)
	fail := func(reason string, penalty int) {
		deductions += penalty
		if !seen[reason] {
			seen[reason] = true
			reasons = append(reasons, reason)
		}
	}

	title := strings.TrimSpace(p.Title)
	description := strings.TrimSpace(p.Description)

	if utf8.RuneCountInString(title) < e.rubric.MinTitleLen {
		fail(model.FailTitleTooShort, e.rubric.TitleShortPenalty)
	}
	if strings.Contains(strings.ToLower(title), titlePlaceholderMarker) {
		fail(model.FailTitlePlaceholder, e.rubric.TitlePlaceholderPenalty)
	}
	if utf8.RuneCountInString(description) < e.rubric.MinDescriptionLen {
		fail(model.FailDescriptionTooShort, e.rubric.DescriptionShortPenalty)
	}

	descLower := strings.ToLower(description)
	if !containsAny(descLower, e.rubric.WhatsInsideHints) {
		fail(model.FailMissingWhatsInside, e.rubric.WhatsInsidePenalty)
	}
	// Score-only soft penalty: no fail tag. A listing can therefore
	// fail on score alone with an empty reason list.
	if !containsAny(descLower, e.rubric.SetupHints) {
		deductions += e.rubric.SetupHintPenalty
	}

	banned := textnorm.ContainsBannedClaims(title+" "+description, e.vocab)
	if len(banned) > 0 {
		fail(model.FailBannedClaims, e.rubric.BannedClaimsPenalty)
	}

	if textnorm.LooksLikePlaceholderCover(p.CoverURL, e.vocab) {
		fail(model.FailCoverPlaceholder, e.rubric.CoverPenalty)
	}

	insp := e.inspector.Inspect(ctx, p.ArtifactPath, p.ArtifactURL)
	if !insp.Present {
		fail(model.FailArtifactMissing, e.rubric.ArtifactMissingPenalty)
	} else {
		if insp.TooSmall {
			fail(model.FailArtifactTooSmall, e.rubric.ArtifactTooSmallPenalty)
		}
		if insp.MissingReadme {
			fail(model.FailReadmeMissing, e.rubric.ReadmeMissingPenalty)
		}
	}

	if p.PromptCount != nil && insp.PromptCountDetected != nil {
		diff := *p.PromptCount - *insp.PromptCountDetected
		if diff < 0 {
			diff = -diff
		}
		if diff > e.rubric.CountTolerance {
			fail(model.FailPromptCountMismatch, e.rubric.CountMismatchPenalty)
		}
	}

	if p.Price != nil && *p.Price <= 0 {
		fail(model.FailPriceInvalid, e.rubric.PriceInvalidPenalty)
	}

	score := clampScore(100 - deductions)

	status := model.QaStatusFailed
	if score >= e.rubric.PassThreshold && len(reasons) == 0 {
		status = model.QaStatusPassed
	}

	keySource := title
	if keySource == "" {
		keySource = untitledFallback
	}

	result := &model.QaResult{
		Status:      status,
		Score:       score,
		FailReasons: reasons,
		ConceptKey:  textnorm.ConceptKey(keySource, e.vocab),
		CheckedAt:   time.Now().UTC(),
		Details: model.QaDetails{
			Artifact:      insp,
			BannedMatches: banned,
		},
	}

	zap.L().Debug("qa: evaluation complete",
		zap.String("product_id", p.ID),
		zap.Int("score", score),
		zap.String("status", string(status)),
		zap.Strings("fail_reasons", reasons),
	)

	return result, nil
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
