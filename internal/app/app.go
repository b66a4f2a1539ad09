// Package app drives the Pocket to Pinboard mirror: it derives the cursor
// from the sink, streams newer bookmarks from the source and writes them.
package app

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"pocketpin/internal/clock"
	"pocketpin/internal/logger"
	"pocketpin/internal/models"
)

// Source yields bookmarks changed at or after since, oldest first.
type Source interface {
	Bookmarks(ctx context.Context, since *time.Time) iter.Seq2[models.Bookmark, error]
}

// Sink stores mirrored bookmarks.
type Sink interface {
	// Latest returns the newest mirrored bookmark, or nil when there is none.
	Latest(ctx context.Context) (*models.Bookmark, error)
	// Add stores b unless the sink already has its URL.
	Add(ctx context.Context, b models.Bookmark) (created bool, err error)
}

// Stats counts what one or more passes did.
type Stats struct {
	Passes   int
	Fetched  int
	Stale    int
	Written  int
	Existing int
	// Since is the cursor of the last pass, nil if the sink was empty.
	Since *time.Time
}

func (s *Stats) add(o Stats) {
	s.Passes += o.Passes
	s.Fetched += o.Fetched
	s.Stale += o.Stale
	s.Written += o.Written
	s.Existing += o.Existing
	s.Since = o.Since
}

// App holds the application's core dependencies.
type App struct {
	Source Source
	Sink   Sink

	logger       *logger.Logger
	clock        clock.Clock
	passInterval time.Duration
}

// Option is a functional option for configuring the App.
type Option func(*App)

// NewApp creates a new App instance with the given options.
func NewApp(opts ...Option) *App {
	app := &App{
		logger: logger.Discard(),
		clock:  clock.Real,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// WithSource sets where bookmarks are read from.
func WithSource(s Source) Option {
	return func(a *App) {
		a.Source = s
	}
}

// WithSink sets where bookmarks are written to.
func WithSink(s Sink) Option {
	return func(a *App) {
		a.Sink = s
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithClock sets the clock used to measure the RunFor budget and to pause
// between passes.
func WithClock(c clock.Clock) Option {
	return func(a *App) {
		a.clock = c
	}
}

// WithPassInterval sets the pause between passes of RunFor.
func WithPassInterval(d time.Duration) Option {
	return func(a *App) {
		a.passInterval = d
	}
}

// RunOnce mirrors every source bookmark added since the newest bookmark in
// the sink. The first error ends the pass.
func (a *App) RunOnce(ctx context.Context) (Stats, error) {
	if a.Source == nil || a.Sink == nil {
		return Stats{}, errors.New("app: source and sink are required")
	}

	stats := Stats{Passes: 1}
	latest, err := a.Sink.Latest(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to determine sync cursor: %w", err)
	}
	if latest != nil {
		since := latest.Created
		stats.Since = &since
		a.logger.Infof("Syncing bookmarks added since %s", since.UTC().Format(time.RFC3339))
	} else {
		a.logger.Infof("No synced bookmarks found, syncing everything")
	}

	for b, err := range a.Source.Bookmarks(ctx, stats.Since) {
		if err != nil {
			return stats, err
		}
		stats.Fetched++

		// The source filters on modification time, so older items that were
		// touched recently come back too.
		if stats.Since != nil && b.Created.Before(*stats.Since) {
			stats.Stale++
			a.logger.Debugf("Skipping %s: added before cursor", b.URL)
			continue
		}

		created, err := a.Sink.Add(ctx, b)
		if err != nil {
			return stats, err
		}
		if created {
			stats.Written++
		} else {
			stats.Existing++
		}
	}

	a.logger.Infof("Pass finished: fetched=%d written=%d existing=%d stale=%d",
		stats.Fetched, stats.Written, stats.Existing, stats.Stale)
	return stats, nil
}

// RunFor repeats RunOnce until budget has elapsed. At least one pass runs
// and the budget is only checked between passes, so a slow pass may
// overrun it. Stats are summed across passes.
func (a *App) RunFor(ctx context.Context, budget time.Duration) (Stats, error) {
	start := a.clock.Now()
	var total Stats
	for {
		stats, err := a.RunOnce(ctx)
		total.add(stats)
		if err != nil {
			return total, err
		}

		remaining := budget - a.clock.Now().Sub(start)
		if remaining <= 0 {
			break
		}
		if a.passInterval > 0 {
			if err := a.clock.Sleep(ctx, min(a.passInterval, remaining)); err != nil {
				return total, err
			}
			if a.clock.Now().Sub(start) >= budget {
				break
			}
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}

	a.logger.Infof("Finished %d passes in %s: written=%d existing=%d",
		total.Passes, a.clock.Now().Sub(start).Round(time.Second), total.Written, total.Existing)
	return total, nil
}
