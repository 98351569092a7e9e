package inspect

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/nexusai/qa-gate/internal/model"
)

// probeRemote checks a remote artifact with a single HEAD request under
// a hard timeout. A URL on record counts as present; only the size is
// best-effort. Unreachable hosts, timeouts and missing Content-Length
// all degrade to an "unknown size" note so a dead CDN never fails an
// evaluation on its own.
func (fi *FileInspector) probeRemote(ctx context.Context, res *model.ArtifactInspection, rawURL string) {
	res.Present = true

	ctx, cancel := context.WithTimeout(ctx, fi.opts.ProbeTimeout)
	defer cancel()

	if err := fi.limiterFor(rawURL).Wait(ctx); err != nil {
		res.AddNote("artifact URL present, size unknown (probe timed out)")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		res.AddNote("artifact URL present, size unknown (malformed URL)")
		return
	}
	req.Header.Set("User-Agent", "qa-gate/1.0")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		zap.L().Debug("artifact probe failed",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		res.AddNote("artifact URL present, size unknown (probe failed)")
		return
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 || resp.ContentLength < 0 {
		res.AddNote("artifact URL present, size unknown (no content length)")
		return
	}

	size := resp.ContentLength
	res.SizeBytes = &size
	if size < fi.opts.MinArtifactBytes {
		res.TooSmall = true
		res.AddNote(fmt.Sprintf("artifact too small: %d bytes (min %d)", size, fi.opts.MinArtifactBytes))
	}
}
