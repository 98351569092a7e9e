// Package inspect probes product artifacts (local files or remote URLs)
// for the lightweight signals the QA rubric consumes. Inspection is
// contractually non-throwing: I/O faults degrade to diagnostic notes on
// a best-effort result, never to an error.
package inspect

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nexusai/qa-gate/internal/model"
)

// Inspector probes an artifact reference. Implementations must not
// block other evaluations: each call is independent.
type Inspector interface {
	Inspect(ctx context.Context, path, url string) model.ArtifactInspection
}

// Options tunes the file inspector.
type Options struct {
	// MinArtifactBytes is the size below which an artifact is flagged
	// too small to be a real deliverable.
	MinArtifactBytes int64

	// RequireReadme flags archives that ship without a README.
	RequireReadme bool

	// ProbeTimeout bounds the remote existence probe so one dead URL
	// cannot stall a sweep.
	ProbeTimeout time.Duration

	// PerHostRate limits probe requests per host during sweeps.
	PerHostRate rate.Limit
}

// FileInspector inspects local artifacts and probes remote ones over
// HTTP HEAD.
type FileInspector struct {
	opts Options

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a FileInspector with defaults filled in.
func New(opts Options) *FileInspector {
	if opts.MinArtifactBytes <= 0 {
		opts.MinArtifactBytes = 1024
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 8 * time.Second
	}
	if opts.PerHostRate <= 0 {
		opts.PerHostRate = 10
	}
	return &FileInspector{
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Inspect probes the given artifact reference. A local path wins when
// both are present. Input-shape problems (no reference, missing file)
// are normal outcomes, reported through the result.
func (fi *FileInspector) Inspect(ctx context.Context, path, rawURL string) model.ArtifactInspection {
	var res model.ArtifactInspection

	switch {
	case path != "":
		fi.inspectLocal(&res, path)
	case rawURL != "":
		fi.probeRemote(ctx, &res, rawURL)
	default:
		res.AddNote("no artifact reference on record")
	}

	return res
}

func (fi *FileInspector) inspectLocal(res *model.ArtifactInspection, path string) {
	info, err := os.Stat(path)
	if err != nil {
		res.AddNote(fmt.Sprintf("artifact path not found: %s", path))
		return
	}

	res.Present = true
	size := info.Size()
	res.SizeBytes = &size

	if size < fi.opts.MinArtifactBytes {
		res.TooSmall = true
		res.AddNote(fmt.Sprintf("artifact too small: %d bytes (min %d)", size, fi.opts.MinArtifactBytes))
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		fi.inspectArchive(res, path)
	case ".json":
		inspectJSONFile(res, path)
	case ".txt", ".md", ".markdown":
		inspectTextFile(res, path)
	default:
		res.AddNote(fmt.Sprintf("artifact type %s not inspected", filepath.Ext(path)))
	}
}

func (fi *FileInspector) limiterFor(rawURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	fi.mu.Lock()
	defer fi.mu.Unlock()
	lim, ok := fi.limiters[host]
	if !ok {
		lim = rate.NewLimiter(fi.opts.PerHostRate, int(fi.opts.PerHostRate))
		fi.limiters[host] = lim
	}
	return lim
}

func setCount(res *model.ArtifactInspection, n int) {
	res.PromptCountDetected = &n
}
