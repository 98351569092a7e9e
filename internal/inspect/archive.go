package inspect

import (
	"archive/zip"
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/nexusai/qa-gate/internal/model"
)

// manifestReadLimit caps how much of a prompts manifest is read out of
// an archive. Anything larger is not a manifest.
const manifestReadLimit = 4 << 20

// inspectArchive lists a ZIP's entries to determine README presence and
// to find a prompts manifest. Corrupt archives and unreadable entries
// degrade to notes.
func (fi *FileInspector) inspectArchive(res *model.ArtifactInspection, path string) {
	r, err := zip.OpenReader(path)
	if err != nil {
		res.AddNote("zip archive unreadable")
		return
	}
	defer r.Close() //nolint:errcheck

	hasReadme := false
	var manifest *zip.File
	for _, f := range r.File {
		name := strings.ToLower(f.Name)
		if strings.Contains(name, "readme") {
			hasReadme = true
		}
		if manifest == nil && isManifestName(name) {
			manifest = f
		}
	}

	res.HasReadme = &hasReadme
	if fi.opts.RequireReadme && !hasReadme {
		res.MissingReadme = true
		res.AddNote("zip missing README")
	}

	if manifest == nil {
		return
	}

	rc, err := manifest.Open()
	if err != nil {
		res.AddNote("prompts manifest unreadable")
		return
	}
	defer rc.Close() //nolint:errcheck

	limited := io.LimitReader(rc, manifestReadLimit)
	if strings.HasSuffix(strings.ToLower(manifest.Name), ".json") {
		if n, ok := countPromptsJSON(limited); ok {
			setCount(res, n)
		} else {
			res.AddNote("prompts manifest is not valid JSON")
		}
		return
	}
	setCount(res, countNonBlankLines(limited))
}

// isManifestName matches the canonical prompts manifest entries,
// regardless of directory nesting inside the archive.
func isManifestName(lowerName string) bool {
	base := lowerName
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	return base == "prompts.json" || base == "prompts.txt"
}

// countPromptsJSON extracts a content count from manifest JSON: either
// a top-level array or an object with a "prompts" array.
func countPromptsJSON(r io.Reader) (int, bool) {
	var payload any
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return 0, false
	}

	switch v := payload.(type) {
	case []any:
		return len(v), true
	case map[string]any:
		if arr, ok := v["prompts"].([]any); ok {
			return len(arr), true
		}
	}
	return 0, false
}

// countNonBlankLines counts content lines, one item per line.
func countNonBlankLines(r io.Reader) int {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	n := 0
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			n++
		}
	}
	return n
}
