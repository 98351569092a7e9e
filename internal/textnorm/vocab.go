// Package textnorm provides the pure string transforms behind concept
// keys, banned-claim detection and placeholder-cover detection.
package textnorm

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Vocabulary holds the tunable word lists the normalizer matches
// against. All matching is case-insensitive substring matching.
type Vocabulary struct {
	// BannedPhrases are marketing claims that hard-fail a listing.
	BannedPhrases []string `yaml:"banned_phrases"`

	// PlaceholderMarkers flag a cover URL as a stand-in image.
	PlaceholderMarkers []string `yaml:"placeholder_markers"`

	// CDNHosts are host substrings that, combined with the literal
	// "placeholder", also flag a cover URL.
	CDNHosts []string `yaml:"cdn_hosts"`

	// CountMarkers are pack-size tokens stripped from titles so that
	// "(100 Prompts)" and "(120 Prompts)" variants share a concept key.
	CountMarkers []int `yaml:"count_markers"`
}

// DefaultVocabulary returns the vocabulary used in production. Tuning
// happens through a YAML override file, not by editing this list.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		BannedPhrases: []string{
			"guaranteed profit",
			"guaranteed returns",
			"risk-free",
			"make money fast",
			"get rich quick",
			"100% win",
			"beat the market",
			"no risk",
		},
		PlaceholderMarkers: []string{
			"placehold", "dummy", "sample", "other-bold",
		},
		CDNHosts: []string{
			"cdn.shopify.com", "firebasestorage",
		},
		CountMarkers: []int{40, 60, 80, 100, 120, 200},
	}
}

// LoadVocabulary reads a YAML vocabulary file. Omitted fields fall back
// to the defaults, so an override file only needs the lists it changes.
func LoadVocabulary(path string) (Vocabulary, error) {
	v := DefaultVocabulary()

	data, err := os.ReadFile(path)
	if err != nil {
		return v, eris.Wrapf(err, "textnorm: read vocabulary %s", path)
	}

	var override Vocabulary
	if err := yaml.Unmarshal(data, &override); err != nil {
		return v, eris.Wrapf(err, "textnorm: parse vocabulary %s", path)
	}

	if len(override.BannedPhrases) > 0 {
		v.BannedPhrases = override.BannedPhrases
	}
	if len(override.PlaceholderMarkers) > 0 {
		v.PlaceholderMarkers = override.PlaceholderMarkers
	}
	if len(override.CDNHosts) > 0 {
		v.CDNHosts = override.CDNHosts
	}
	if len(override.CountMarkers) > 0 {
		v.CountMarkers = override.CountMarkers
	}

	return v, nil
}
