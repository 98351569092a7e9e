// Package qa implements the deterministic listing rubric: one pass over
// a product record plus its artifact inspection, producing a 0-100
// score, canonical fail reasons and a pass/fail verdict.
package qa

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Rubric holds every threshold and penalty the evaluator applies.
// Penalties are positive integers subtracted from a starting score of
// 100; the final score is clamped to [0,100].
type Rubric struct {
	MinTitleLen       int `yaml:"min_title_len" mapstructure:"min_title_len"`
	MinDescriptionLen int `yaml:"min_description_len" mapstructure:"min_description_len"`
	PassThreshold     int `yaml:"pass_threshold" mapstructure:"pass_threshold"`

	// CountTolerance is the allowed gap between the advertised prompt
	// count and the count detected inside the artifact.
	CountTolerance int `yaml:"count_tolerance" mapstructure:"count_tolerance"`

	TitleShortPenalty       int `yaml:"title_short_penalty" mapstructure:"title_short_penalty"`
	TitlePlaceholderPenalty int `yaml:"title_placeholder_penalty" mapstructure:"title_placeholder_penalty"`
	DescriptionShortPenalty int `yaml:"description_short_penalty" mapstructure:"description_short_penalty"`
	WhatsInsidePenalty      int `yaml:"whats_inside_penalty" mapstructure:"whats_inside_penalty"`
	SetupHintPenalty        int `yaml:"setup_hint_penalty" mapstructure:"setup_hint_penalty"`
	BannedClaimsPenalty     int `yaml:"banned_claims_penalty" mapstructure:"banned_claims_penalty"`
	CoverPenalty            int `yaml:"cover_penalty" mapstructure:"cover_penalty"`
	ArtifactMissingPenalty  int `yaml:"artifact_missing_penalty" mapstructure:"artifact_missing_penalty"`
	ArtifactTooSmallPenalty int `yaml:"artifact_too_small_penalty" mapstructure:"artifact_too_small_penalty"`
	ReadmeMissingPenalty    int `yaml:"readme_missing_penalty" mapstructure:"readme_missing_penalty"`
	CountMismatchPenalty    int `yaml:"count_mismatch_penalty" mapstructure:"count_mismatch_penalty"`
	PriceInvalidPenalty     int `yaml:"price_invalid_penalty" mapstructure:"price_invalid_penalty"`

	// WhatsInsideHints and SetupHints are the description substrings
	// that satisfy the content-overview and instructions checks.
	WhatsInsideHints []string `yaml:"whats_inside_hints" mapstructure:"whats_inside_hints"`
	SetupHints       []string `yaml:"setup_hints" mapstructure:"setup_hints"`
}

// DefaultRubric returns the production rubric.
func DefaultRubric() Rubric {
	return Rubric{
		MinTitleLen:       12,
		MinDescriptionLen: 200,
		PassThreshold:     80,
		CountTolerance:    2,

		TitleShortPenalty:       20,
		TitlePlaceholderPenalty: 40,
		DescriptionShortPenalty: 20,
		WhatsInsidePenalty:      10,
		SetupHintPenalty:        5,
		BannedClaimsPenalty:     40,
		CoverPenalty:            25,
		ArtifactMissingPenalty:  50,
		ArtifactTooSmallPenalty: 20,
		ReadmeMissingPenalty:    20,
		CountMismatchPenalty:    30,
		PriceInvalidPenalty:     25,

		WhatsInsideHints: []string{"what", "includes", "inside"},
		SetupHints:       []string{"how to", "steps", "setup"},
	}
}

// Validate checks that a rubric is internally consistent.
func Validate(r Rubric) error {
	var errs []string

	penalties := map[string]int{
		"title_short_penalty":        r.TitleShortPenalty,
		"title_placeholder_penalty":  r.TitlePlaceholderPenalty,
		"description_short_penalty":  r.DescriptionShortPenalty,
		"whats_inside_penalty":       r.WhatsInsidePenalty,
		"setup_hint_penalty":         r.SetupHintPenalty,
		"banned_claims_penalty":      r.BannedClaimsPenalty,
		"cover_penalty":              r.CoverPenalty,
		"artifact_missing_penalty":   r.ArtifactMissingPenalty,
		"artifact_too_small_penalty": r.ArtifactTooSmallPenalty,
		"readme_missing_penalty":     r.ReadmeMissingPenalty,
		"count_mismatch_penalty":     r.CountMismatchPenalty,
		"price_invalid_penalty":      r.PriceInvalidPenalty,
	}
	for name, p := range penalties {
		if p < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if r.PassThreshold < 0 || r.PassThreshold > 100 {
		errs = append(errs, "pass_threshold must be between 0 and 100")
	}
	if r.MinTitleLen < 0 {
		errs = append(errs, "min_title_len must be >= 0")
	}
	if r.MinDescriptionLen < 0 {
		errs = append(errs, "min_description_len must be >= 0")
	}
	if r.CountTolerance < 0 {
		errs = append(errs, "count_tolerance must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("qa: invalid rubric: %s", strings.Join(errs, "; "))
	}
	return nil
}
