package model

// ArtifactInspection is the best-effort result of probing a deliverable
// file or URL. Structured flags drive the rubric; Notes are ordered
// human-readable diagnostics and are never matched programmatically.
type ArtifactInspection struct {
	Present             bool     `json:"present"`
	SizeBytes           *int64   `json:"size_bytes,omitempty"`
	HasReadme           *bool    `json:"has_readme,omitempty"`
	PromptCountDetected *int     `json:"prompt_count_detected,omitempty"`
	TooSmall            bool     `json:"too_small"`
	MissingReadme       bool     `json:"missing_readme"`
	Notes               []string `json:"notes,omitempty"`
}

// AddNote appends a diagnostic message, preserving order.
func (a *ArtifactInspection) AddNote(note string) {
	a.Notes = append(a.Notes, note)
}
