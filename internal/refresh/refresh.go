// Package refresh keeps the current catalog and reloads it on a cron
// schedule or when local documents change.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"gamecal/internal/catalog"
	appLog "gamecal/internal/log"
)

// Loader is what Runner reloads from. *catalog.Loader implements it.
type Loader interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
	Sources() catalog.Sources
}

// Options configures Runner.
type Options struct {
	// Cron is a standard 5-field schedule. Empty disables scheduled reloads.
	Cron string
	// Watch reloads when local document files change.
	Watch bool
	// Location is the time zone the schedule is evaluated in.
	Location *time.Location
}

// Runner owns the current catalog.
type Runner struct {
	loader Loader
	opts   Options

	mu      sync.RWMutex
	current *catalog.Catalog

	reloadMu sync.Mutex
}

// New creates a Runner. Load must succeed before Current is used.
func New(loader Loader, opts Options) *Runner {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Runner{loader: loader, opts: opts}
}

// ValidateCron checks a schedule string without starting anything.
func ValidateCron(schedule string) error {
	if schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("refresh: invalid schedule %q: %w", schedule, err)
	}
	return nil
}

// Load performs the initial load. Its error is terminal for the caller.
func (r *Runner) Load(ctx context.Context) error {
	cat, err := r.loader.Load(ctx)
	if err != nil {
		return err
	}
	r.swap(cat)
	return nil
}

// Reload loads a fresh catalog. On failure the previous catalog stays.
func (r *Runner) Reload(ctx context.Context) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	cat, err := r.loader.Load(ctx)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			appLog.Debug("catalog reload canceled")
			return err
		}
		appLog.Error("catalog reload failed; keeping previous data", err)
		return err
	}
	r.swap(cat)
	appLog.Info("catalog reloaded", "games", len(cat.Games), "updates", len(cat.Updates))
	return nil
}

// Current returns the latest successfully loaded catalog, or nil.
func (r *Runner) Current() *catalog.Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

func (r *Runner) swap(cat *catalog.Catalog) {
	r.mu.Lock()
	r.current = cat
	r.mu.Unlock()
}

// Run starts the scheduled and file-triggered reloads and blocks until ctx
// is done and every in-flight reload has returned. With neither enabled it
// simply waits.
func (r *Runner) Run(ctx context.Context) error {
	reload := func() {
		if ctx.Err() != nil {
			return
		}
		_ = r.Reload(ctx)
	}

	if r.opts.Cron != "" {
		c := cron.New(cron.WithLocation(r.opts.Location))
		if _, err := c.AddFunc(r.opts.Cron, reload); err != nil {
			return fmt.Errorf("refresh: invalid schedule %q: %w", r.opts.Cron, err)
		}
		c.Start()
		appLog.Info("scheduled reload enabled", "cron", r.opts.Cron, "timezone", r.opts.Location.String())
		defer func() {
			<-c.Stop().Done()
		}()
	}

	var g errgroup.Group
	if r.opts.Watch {
		src := r.loader.Sources()
		w, err := catalog.NewWatcher([]string{src.Games, src.Updates}, 0)
		if err != nil {
			// Remote-only sources have nothing to watch.
			appLog.Warn("document watch disabled", "reason", err.Error())
		} else {
			appLog.Info("document watch enabled", "games", src.Games, "updates", src.Updates)
			g.Go(func() error {
				if err := w.Run(ctx, reload); err != nil && !errors.Is(err, context.Canceled) {
					appLog.Error("document watcher stopped", err)
				}
				return nil
			})
		}
	}

	<-ctx.Done()
	return g.Wait()
}
