package qa

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusai/qa-gate/internal/model"
	"github.com/nexusai/qa-gate/internal/textnorm"
)

// stubInspector returns a canned inspection so rubric tests never touch
// disk or network.
type stubInspector struct {
	result model.ArtifactInspection
}

func (s stubInspector) Inspect(_ context.Context, _, _ string) model.ArtifactInspection {
	return s.result
}

func healthyInspection() model.ArtifactInspection {
	size := int64(10_000)
	readme := true
	count := 100
	return model.ArtifactInspection{
		Present:             true,
		SizeBytes:           &size,
		HasReadme:           &readme,
		PromptCountDetected: &count,
	}
}

func newTestEvaluator(insp model.ArtifactInspection) *Evaluator {
	return NewEvaluator(stubInspector{result: insp}, DefaultRubric(), textnorm.DefaultVocabulary())
}

func goodDescription() string {
	return strings.Repeat("A practical pack for working agents. ", 6) +
		"What's inside: 100 prompts. Steps to get started are in the README."
}

func goodProduct() *model.ProductRecord {
	price := 29.0
	count := 100
	return &model.ProductRecord{
		ID:          "prod_1",
		Title:       "ChatGPT Prompts for Real Estate (100 Prompts)",
		Description: goodDescription(),
		Price:       &price,
		PromptCount: &count,
		CoverURL:    "https://cdn.shopify.com/s/files/cover-final.png",
		ArtifactURL: "https://cdn.example.com/pack.zip",
	}
}

func TestEvaluateNilRecord(t *testing.T) {
	e := newTestEvaluator(healthyInspection())

	_, err := e.Evaluate(context.Background(), nil)
	assert.Error(t, err)
}

func TestEvaluatePassingProduct(t *testing.T) {
	e := newTestEvaluator(healthyInspection())

	result, err := e.Evaluate(context.Background(), goodProduct())
	require.NoError(t, err)

	assert.Equal(t, model.QaStatusPassed, result.Status)
	assert.Equal(t, 100, result.Score)
	assert.Empty(t, result.FailReasons)
	assert.Equal(t, "chatgpt for real estate", result.ConceptKey)
	assert.False(t, result.CheckedAt.IsZero())
}

func TestEvaluateBoundaryScore(t *testing.T) {
	// Exactly one 20-point deduction lands on the threshold, so the
	// verdict hinges on the fail reason, not the score.
	e := newTestEvaluator(healthyInspection())

	p := goodProduct()
	p.Title = "Short"

	result, err := e.Evaluate(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 80, result.Score)
	assert.Equal(t, []string{model.FailTitleTooShort}, result.FailReasons)
	assert.Equal(t, model.QaStatusFailed, result.Status, "a tagged failure fails even at the threshold")
}

func TestEvaluateFailReasons(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.ProductRecord)
		insp   func() model.ArtifactInspection
		reason string
	}{
		{
			name:   "placeholder title",
			mutate: func(p *model.ProductRecord) { p.Title = "Product Title goes here, edit me" },
			reason: model.FailTitlePlaceholder,
		},
		{
			name:   "short description",
			mutate: func(p *model.ProductRecord) { p.Description = "what's inside: steps. includes how to setup" },
			reason: model.FailDescriptionTooShort,
		},
		{
			name: "no whats-inside language",
			mutate: func(p *model.ProductRecord) {
				p.Description = strings.Repeat("Curated material for agents. ", 8) + "How to begin: read on."
			},
			reason: model.FailMissingWhatsInside,
		},
		{
			name:   "banned claim in title",
			mutate: func(p *model.ProductRecord) { p.Title = "Guaranteed Profit Prompts Pack" },
			reason: model.FailBannedClaims,
		},
		{
			name:   "placeholder cover",
			mutate: func(p *model.ProductRecord) { p.CoverURL = "https://placehold.co/600x400" },
			reason: model.FailCoverPlaceholder,
		},
		{
			name:   "missing cover",
			mutate: func(p *model.ProductRecord) { p.CoverURL = "" },
			reason: model.FailCoverPlaceholder,
		},
		{
			name:   "artifact missing",
			mutate: func(p *model.ProductRecord) {},
			insp:   func() model.ArtifactInspection { return model.ArtifactInspection{} },
			reason: model.FailArtifactMissing,
		},
		{
			name:   "artifact too small",
			mutate: func(p *model.ProductRecord) {},
			insp: func() model.ArtifactInspection {
				i := healthyInspection()
				i.TooSmall = true
				return i
			},
			reason: model.FailArtifactTooSmall,
		},
		{
			name:   "readme missing",
			mutate: func(p *model.ProductRecord) {},
			insp: func() model.ArtifactInspection {
				i := healthyInspection()
				i.MissingReadme = true
				return i
			},
			reason: model.FailReadmeMissing,
		},
		{
			name: "prompt count mismatch",
			mutate: func(p *model.ProductRecord) {
				n := 120
				p.PromptCount = &n
			},
			reason: model.FailPromptCountMismatch,
		},
		{
			name: "zero price",
			mutate: func(p *model.ProductRecord) {
				zero := 0.0
				p.Price = &zero
			},
			reason: model.FailPriceInvalid,
		},
		{
			name: "negative price",
			mutate: func(p *model.ProductRecord) {
				neg := -5.0
				p.Price = &neg
			},
			reason: model.FailPriceInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insp := healthyInspection()
			if tt.insp != nil {
				insp = tt.insp()
			}
			e := newTestEvaluator(insp)

			p := goodProduct()
			tt.mutate(p)

			result, err := e.Evaluate(context.Background(), p)
			require.NoError(t, err)

			assert.Equal(t, model.QaStatusFailed, result.Status)
			assert.Contains(t, result.FailReasons, tt.reason)
		})
	}
}

func TestEvaluateToleratedChecks(t *testing.T) {
	t.Run("count within tolerance", func(t *testing.T) {
		e := newTestEvaluator(healthyInspection())
		p := goodProduct()
		n := 102
		p.PromptCount = &n

		result, err := e.Evaluate(context.Background(), p)
		require.NoError(t, err)
		assert.NotContains(t, result.FailReasons, model.FailPromptCountMismatch)
	})

	t.Run("count check skipped without detected count", func(t *testing.T) {
		insp := healthyInspection()
		insp.PromptCountDetected = nil
		e := newTestEvaluator(insp)

		result, err := e.Evaluate(context.Background(), goodProduct())
		require.NoError(t, err)
		assert.NotContains(t, result.FailReasons, model.FailPromptCountMismatch)
	})

	t.Run("price check skipped when unset", func(t *testing.T) {
		e := newTestEvaluator(healthyInspection())
		p := goodProduct()
		p.Price = nil

		result, err := e.Evaluate(context.Background(), p)
		require.NoError(t, err)
		assert.NotContains(t, result.FailReasons, model.FailPriceInvalid)
	})

	t.Run("size and readme flags ignored when artifact absent", func(t *testing.T) {
		e := newTestEvaluator(model.ArtifactInspection{TooSmall: true, MissingReadme: true})

		result, err := e.Evaluate(context.Background(), goodProduct())
		require.NoError(t, err)
		assert.Contains(t, result.FailReasons, model.FailArtifactMissing)
		assert.NotContains(t, result.FailReasons, model.FailArtifactTooSmall)
		assert.NotContains(t, result.FailReasons, model.FailReadmeMissing)
	})
}

func TestEvaluateSetupHintPenaltyScoreOnly(t *testing.T) {
	// Dropping the setup-hint language costs points but leaves no fail
	// tag, so a listing can fail on score with an empty reason list.
	rubric := DefaultRubric()
	rubric.SetupHintPenalty = 25
	e := NewEvaluator(stubInspector{result: healthyInspection()}, rubric, textnorm.DefaultVocabulary())

	p := goodProduct()
	p.Description = strings.Repeat("Premium prompts, curated and tested. ", 6) +
		"What's inside: 100 prompts covering every niche."

	result, err := e.Evaluate(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 75, result.Score)
	assert.Empty(t, result.FailReasons)
	assert.Equal(t, model.QaStatusFailed, result.Status)
}

func TestEvaluateArtifactMissingAlwaysFails(t *testing.T) {
	e := newTestEvaluator(model.ArtifactInspection{})

	p := goodProduct()
	p.ArtifactPath = ""
	p.ArtifactURL = ""

	result, err := e.Evaluate(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, model.QaStatusFailed, result.Status)
	assert.LessOrEqual(t, result.Score, 50)
}

func TestEvaluateScoreClampedAtZero(t *testing.T) {
	e := newTestEvaluator(model.ArtifactInspection{})

	zero := 0.0
	p := &model.ProductRecord{
		ID:          "prod_worst",
		Title:       "Bad",
		Description: "guaranteed profit",
		Price:       &zero,
	}

	result, err := e.Evaluate(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Score)
	assert.Equal(t, model.QaStatusFailed, result.Status)
}

func TestEvaluateUntitledConceptKey(t *testing.T) {
	e := newTestEvaluator(healthyInspection())

	p := goodProduct()
	p.Title = "   "

	result, err := e.Evaluate(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "untitled", result.ConceptKey)
}

func TestEvaluateDeterministic(t *testing.T) {
	e := newTestEvaluator(healthyInspection())
	p := goodProduct()

	first, err := e.Evaluate(context.Background(), p)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := e.Evaluate(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, first.Score, again.Score)
		assert.Equal(t, first.Status, again.Status)
		assert.Equal(t, first.FailReasons, again.FailReasons)
		assert.Equal(t, first.ConceptKey, again.ConceptKey)
	}
}

func TestEvaluateVerdictInvariant(t *testing.T) {
	// Randomized records: passed must always mean score at threshold or
	// above AND zero fail reasons, regardless of input shape.
	rng := rand.New(rand.NewSource(42))
	rubric := DefaultRubric()

	titles := []string{"", "Short", "Product Title", "ChatGPT Prompts for Real Estate (100 Prompts)", "Guaranteed Profit Pack of Prompts"}
	descs := []string{"", "tiny", goodDescription(), strings.Repeat("filler words only here. ", 12)}
	covers := []string{"", "https://placehold.co/1", "https://cdn.shopify.com/s/files/cover.png"}

	for i := 0; i < 200; i++ {
		insp := model.ArtifactInspection{Present: rng.Intn(2) == 0}
		if insp.Present {
			insp.TooSmall = rng.Intn(4) == 0
			insp.MissingReadme = rng.Intn(4) == 0
			if rng.Intn(2) == 0 {
				n := rng.Intn(150)
				insp.PromptCountDetected = &n
			}
		}
		e := NewEvaluator(stubInspector{result: insp}, rubric, textnorm.DefaultVocabulary())

		p := &model.ProductRecord{
			ID:          "prod_rand",
			Title:       titles[rng.Intn(len(titles))],
			Description: descs[rng.Intn(len(descs))],
			CoverURL:    covers[rng.Intn(len(covers))],
		}
		if rng.Intn(2) == 0 {
			price := float64(rng.Intn(100)) - 10
			p.Price = &price
		}
		if rng.Intn(2) == 0 {
			n := rng.Intn(150)
			p.PromptCount = &n
		}

		result, err := e.Evaluate(context.Background(), p)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, result.Score, 0)
		assert.LessOrEqual(t, result.Score, 100)
		if result.Status == model.QaStatusPassed {
			assert.GreaterOrEqual(t, result.Score, rubric.PassThreshold)
			assert.Empty(t, result.FailReasons)
		} else {
			assert.True(t, result.Score < rubric.PassThreshold || len(result.FailReasons) > 0)
		}
	}
}

func TestValidateRubric(t *testing.T) {
	t.Run("default is valid", func(t *testing.T) {
		assert.NoError(t, Validate(DefaultRubric()))
	})

	t.Run("negative penalty rejected", func(t *testing.T) {
		r := DefaultRubric()
		r.CoverPenalty = -1
		assert.Error(t, Validate(r))
	})

	t.Run("threshold out of range rejected", func(t *testing.T) {
		r := DefaultRubric()
		r.PassThreshold = 101
		assert.Error(t, Validate(r))
	})
}
