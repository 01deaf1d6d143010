package policy

import (
	"context"
	"sync"
	"time"

	"venue_crm_backend/platform/logger"
)

// Loader is the read side the provider needs from the repository.
type Loader interface {
	Load(ctx context.Context) (Snapshot, error)
}

// Provider caches policy snapshots with a best-effort periodic refresh.
// Staleness is bounded by the refresh interval; callers on decision paths
// that need a current view (assignment fairness) use Fresh, which reads
// through and falls back to the cache only when the store is unavailable.
type Provider struct {
	loader   Loader
	interval time.Duration
	log      *logger.Logger

	mu      sync.RWMutex
	current Snapshot
}

// NewProvider creates a provider seeded with the built-in defaults.
func NewProvider(loader Loader, interval time.Duration, log *logger.Logger) *Provider {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Provider{
		loader:   loader,
		interval: interval,
		log:      log,
		current:  Defaults(),
	}
}

// Current returns the cached snapshot without touching the store.
func (p *Provider) Current() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Fresh reads the policy documents from the store and updates the cache.
// On store failure it returns the cached snapshot, which is tolerable for
// at most one scheduler tick.
func (p *Provider) Fresh(ctx context.Context) Snapshot {
	snap, err := p.loader.Load(ctx)
	if err != nil {
		if p.log != nil {
			p.log.Warn("policy refresh failed, using cached snapshot", "error", err)
		}
		return p.Current()
	}

	p.mu.Lock()
	p.current = snap
	p.mu.Unlock()
	return snap
}

// Run refreshes the cache on the configured interval until ctx is cancelled.
func (p *Provider) Run(ctx context.Context) {
	p.Fresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Fresh(ctx)
		}
	}
}
