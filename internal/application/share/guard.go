// Package share builds the share dialog of a recipe
package share

import (
	"context"
	"errors"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pantrypilot/web/internal/domain/recipe"
	"github.com/pantrypilot/web/internal/infrastructure/monitoring"
)

// ErrUnknownOpen is returned for an open id this guard never issued for the
// recipe, or one that has expired
var ErrUnknownOpen = errors.New("share dialog is not open")

// entry is one dialog open. It is settled once the share request returned.
type entry struct {
	settled bool
	link    *recipe.ShareLink
	err     error
	expires time.Time
}

// Guard runs the share link request at most once per dialog open. Opens are
// issued by Open and bound to their recipe. Renders of the same open share
// the in-flight request and then its result, failure included. Entries
// expire after ttl.
type Guard struct {
	mu      sync.Mutex
	entries map[string]entry
	group   singleflight.Group
	ttl     time.Duration
	metrics *monitoring.MetricsCollector
	logger  *zap.Logger
}

// NewGuard creates a guard. metrics may be nil.
func NewGuard(ttl time.Duration, metrics *monitoring.MetricsCollector, logger *zap.Logger) *Guard {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Guard{
		entries: make(map[string]entry),
		ttl:     ttl,
		metrics: metrics,
		logger:  logger.Named("share-guard"),
	}
}

func openKey(recipeID, openID string) string {
	return recipeID + "/" + openID
}

// Open allocates the id of a fresh dialog open for recipeID
func (g *Guard) Open(recipeID string) (string, error) {
	openID, err := gonanoid.New(16)
	if err != nil {
		return "", err
	}
	g.mu.Lock()
	g.entries[openKey(recipeID, openID)] = entry{expires: time.Now().Add(g.ttl)}
	g.mu.Unlock()
	return openID, nil
}

// Link returns the share link for the open of recipeID, calling fetch only
// if this open has not requested one yet
func (g *Guard) Link(ctx context.Context, recipeID, openID string, fetch func(ctx context.Context) (*recipe.ShareLink, error)) (*recipe.ShareLink, error) {
	key := openKey(recipeID, openID)
	e, ok := g.lookup(key)
	if !ok {
		g.record("unknown")
		return nil, ErrUnknownOpen
	}
	if e.settled {
		return e.link, e.err
	}

	v, _, _ := g.group.Do(key, func() (interface{}, error) {
		e, ok := g.lookup(key)
		if !ok {
			return entry{settled: true, err: ErrUnknownOpen}, nil
		}
		if e.settled {
			return e, nil
		}
		link, err := fetch(ctx)
		e = entry{settled: true, link: link, err: err, expires: e.expires}
		g.mu.Lock()
		g.entries[key] = e
		g.mu.Unlock()

		if err != nil {
			g.record("error")
			g.logger.Warn("Share link request failed",
				zap.String("recipe_id", recipeID),
				zap.String("open_id", openID),
				zap.Error(err),
			)
		} else {
			g.record("ok")
		}
		return e, nil
	})
	e = v.(entry)
	return e.link, e.err
}

func (g *Guard) lookup(key string) (entry, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[key]
	if !ok {
		return entry{}, false
	}
	if time.Now().After(e.expires) {
		delete(g.entries, key)
		return entry{}, false
	}
	return e, true
}

// Sweep drops expired entries
func (g *Guard) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, e := range g.entries {
		if now.After(e.expires) {
			delete(g.entries, id)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is done
func (g *Guard) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (g *Guard) record(status string) {
	if g.metrics != nil {
		g.metrics.ShareLink(status)
	}
}
