package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	appLog "gamecal/internal/log"
	"gamecal/internal/model"
)

// maxDocumentBytes bounds a single document read.
const maxDocumentBytes = 64 << 20

// Sources names where the two documents live. Each value is a local path
// or an http(s) URL.
type Sources struct {
	Games   string
	Updates string
}

// Options tunes Loader.
type Options struct {
	// Tidy strips price placeholders and drops duplicate updates.
	Tidy bool
	// Timeout bounds each HTTP fetch. Zero uses 15 seconds.
	Timeout time.Duration
}

// Loader fetches both documents. It does not cache and does not retry:
// any failure fails the whole load.
type Loader struct {
	client  *http.Client
	sources Sources
	opts    Options
}

// NewLoader creates a Loader for the given sources.
func NewLoader(sources Sources, opts Options) *Loader {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Loader{
		client:  &http.Client{Timeout: opts.Timeout},
		sources: sources,
		opts:    opts,
	}
}

// Sources returns the configured document locations.
func (l *Loader) Sources() Sources {
	return l.sources
}

// Load fetches both documents concurrently and waits for both.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	var (
		games   []model.Game
		updates []model.Update
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.fetchJSON(gctx, l.sources.Games, &games)
	})
	g.Go(func() error {
		return l.fetchJSON(gctx, l.sources.Updates, &updates)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if l.opts.Tidy {
		var report TidyReport
		updates, report = Tidy(updates)
		appLog.Info("catalog tidy", "cleaned", report.Cleaned, "duplicates", report.Duplicates)
	}

	appLog.Info("catalog loaded", "games", len(games), "updates", len(updates))
	return New(games, updates), nil
}

func (l *Loader) fetchJSON(ctx context.Context, location string, v any) error {
	body, err := l.read(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", location, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", location, err)
	}
	return nil
}

func (l *Loader) read(ctx context.Context, location string) ([]byte, error) {
	if location == "" {
		return nil, fmt.Errorf("document location is empty")
	}
	if !IsRemote(location) {
		return os.ReadFile(location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "application/json")

	appLog.Debug("document fetch start", "url", location)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, err
	}
	appLog.Debug("document fetch success", "url", location, "bytes", len(body))
	return body, nil
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
