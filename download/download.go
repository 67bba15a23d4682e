// Package download fetches a chosen publication format to a temporary file
// and hands it to the library-import collaborator.
package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/evan-buss/opds-client/internal/fetch"
	"github.com/evan-buss/opds-client/internal/formats"
	"github.com/evan-buss/opds-client/internal/httpx"
	"github.com/evan-buss/opds-client/internal/profile"
	"github.com/evan-buss/opds-client/internal/reqctx"
	"github.com/evan-buss/opds-client/opds"
	"golang.org/x/sync/singleflight"
)

// maxTitleLen caps the sanitized title prefix used for temp file names
const maxTitleLen = 60

// ErrNoFormats means the selected entry has nothing downloadable. This is
// an informational outcome for the caller to explain, not a failure.
var ErrNoFormats = errors.New("entry has no downloadable formats")

// Importer is the external library-import collaborator. It takes ownership
// of the files it receives, including deleting them after import.
type Importer interface {
	Import(paths []string, entry *opds.BookEntry) error
}

// Request selects one format of one entry for download
type Request struct {
	Entry  opds.BookEntry
	Format opds.Format
	// BaseURL is the URL of the feed the entry came from, used to resolve
	// a relative format URL
	BaseURL string
	Server  profile.Server
}

// Orchestrator downloads publication formats. Concurrent requests for the
// same resolved URL are collapsed into a single transfer.
type Orchestrator struct {
	fetcher  *fetch.Client
	importer Importer
	dir      string
	group    singleflight.Group
}

// NewOrchestrator creates an Orchestrator writing temp files into dir
// (os.TempDir() when empty). importer may be nil: the caller then handles
// the returned path manually.
func NewOrchestrator(fetcher *fetch.Client, importer Importer, dir string) *Orchestrator {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Orchestrator{fetcher: fetcher, importer: importer, dir: dir}
}

// Download fetches the requested format and delivers it to the importer.
// It returns the local path of the downloaded file. The temp file belongs
// to the orchestrator until the importer accepts it; on a fetch failure no
// partial file is left behind.
//
// Concurrent calls for the same resolved URL share one transfer, which
// runs under the context of the call that started it. Cancelling that
// context fails every call waiting on the shared transfer.
func (o *Orchestrator) Download(ctx context.Context, req Request) (string, error) {
	if len(req.Entry.Formats) == 0 {
		return "", ErrNoFormats
	}

	target := resolveURL(req.BaseURL, req.Format.URL)

	v, err, shared := o.group.Do(target, func() (interface{}, error) {
		return o.fetchToFile(ctx, target, req)
	})
	if err != nil {
		return "", err
	}
	path := v.(string)

	log := reqctx.Logger(ctx).With(
		slog.String("title", req.Entry.Title),
		slog.String("file", path),
	)
	if shared {
		log.Debug("Download shared with concurrent request")
	}

	if o.importer != nil {
		if err := o.importer.Import([]string{path}, &req.Entry); err != nil {
			return path, fmt.Errorf("library import failed: %w", err)
		}
		log.Info("Imported download")
		return path, nil
	}

	log.Info("Downloaded file")
	return path, nil
}

func (o *Orchestrator) fetchToFile(ctx context.Context, target string, req Request) (string, error) {
	body, err := o.fetcher.Open(ctx, target, req.Server)
	if err != nil {
		return "", err
	}
	defer body.Close()

	path := filepath.Join(o.dir, o.filename(req))
	if err := httpx.DownloadToFile(path, body); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// filename builds the temp file name from a sanitized, length-capped title
// prefix plus the format's extension.
func (o *Orchestrator) filename(req Request) string {
	ext := req.Format.Type
	if ext == "" {
		ext = formats.ExtensionForMime(req.Format.Mime)
	}
	if ext == "" {
		ext = "bin"
	}
	return httpx.FilenamePrefix(req.Entry.Title, maxTitleLen) + "." + ext
}

func resolveURL(base, ref string) string {
	if base == "" {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
