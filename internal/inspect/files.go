package inspect

import (
	"os"

	"github.com/nexusai/qa-gate/internal/model"
)

// inspectJSONFile counts content items in a standalone JSON artifact.
// Malformed JSON leaves the count undetermined.
func inspectJSONFile(res *model.ArtifactInspection, path string) {
	f, err := os.Open(path)
	if err != nil {
		res.AddNote("artifact unreadable")
		return
	}
	defer f.Close() //nolint:errcheck

	if n, ok := countPromptsJSON(f); ok {
		setCount(res, n)
		return
	}
	res.AddNote("artifact JSON malformed or not a prompt list")
}

// inspectTextFile counts non-blank lines, one content item per line.
func inspectTextFile(res *model.ArtifactInspection, path string) {
	f, err := os.Open(path)
	if err != nil {
		res.AddNote("artifact unreadable")
		return
	}
	defer f.Close() //nolint:errcheck

	setCount(res, countNonBlankLines(f))
}
