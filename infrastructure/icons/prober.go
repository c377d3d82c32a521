// Package icons probes favicon URLs over HTTP.
package icons

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/resilience"
)

// DefaultMaxEntries bounds the answer cache when Config.MaxEntries is unset
const DefaultMaxEntries = 4096

// Config tunes the prober
type Config struct {
	Timeout  time.Duration
	CacheTTL time.Duration
	// MaxEntries caps the answer cache; the entry closest to expiry is
	// evicted to make room
	MaxEntries int
	// PurgeInterval runs a background sweep of expired answers until Close
	PurgeInterval time.Duration
	// UserAgent is sent with every probe
	UserAgent string
}

// BreakerFactory builds the circuit breaker guarding one host
type BreakerFactory func(host string) *resilience.Breaker

// Prober checks that a favicon URL answers with a non-error status. Answers
// are cached per URL for CacheTTL; transport failures are not cached. Each
// host gets its own breaker, so one dead site does not stop probes elsewhere.
type Prober struct {
	client     *http.Client
	newBreaker BreakerFactory
	logger     *zap.Logger
	config     Config

	mu       sync.Mutex
	now      func() time.Time
	cache    map[string]cacheEntry
	breakers map[string]*resilience.Breaker

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type cacheEntry struct {
	found   bool
	expires time.Time
}

var _ ports.IconProber = (*Prober)(nil)

// NewProber creates a prober. A nil client gets one with config.Timeout; a
// nil breakers factory probes without circuit breaking. Close stops the
// background sweep.
func NewProber(client *http.Client, breakers BreakerFactory, config Config, logger *zap.Logger) *Prober {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultMaxEntries
	}
	if config.UserAgent == "" {
		config.UserAgent = "osint-mindmap/1.0"
	}
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Prober{
		client:     client,
		newBreaker: breakers,
		logger:     logger,
		config:     config,
		now:        time.Now,
		cache:      make(map[string]cacheEntry),
		breakers:   make(map[string]*resilience.Breaker),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	if config.CacheTTL > 0 && config.PurgeInterval > 0 {
		go p.sweep(config.PurgeInterval)
	} else {
		close(p.done)
	}
	return p
}

func (p *Prober) sweep(interval time.Duration) {
	defer close(p.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			if left := p.Purge(); left > 0 {
				p.logger.Debug("Favicon cache swept", zap.Int("entries", left))
			}
		}
	}
}

// Close stops the background sweep
func (p *Prober) Close() {
	p.closeOnce.Do(func() { close(p.stop) })
	<-p.done
}

// breakerFor returns the breaker for the host of iconURL, or nil when probes
// to it run unguarded
func (p *Prober) breakerFor(iconURL string) *resilience.Breaker {
	if p.newBreaker == nil {
		return nil
	}
	u, err := url.Parse(iconURL)
	if err != nil || u.Host == "" {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.breakers[u.Host]
	if !ok {
		b = p.newBreaker(u.Host)
		p.breakers[u.Host] = b
	}
	return b
}

// Probe reports whether iconURL serves something. 4xx answers are a plain
// "not found"; 5xx answers and transport errors are returned as errors.
func (p *Prober) Probe(ctx context.Context, iconURL string) (bool, error) {
	if found, ok := p.cached(iconURL); ok {
		return found, nil
	}

	probe := func() (interface{}, error) { return p.fetch(ctx, iconURL) }
	var (
		result interface{}
		err    error
	)
	if breaker := p.breakerFor(iconURL); breaker != nil {
		result, err = breaker.Execute(probe)
	} else {
		result, err = probe()
	}
	if err != nil {
		return false, err
	}

	found := result.(bool)
	p.store(iconURL, found)
	return found, nil
}

func (p *Prober) fetch(ctx context.Context, iconURL string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, iconURL, nil)
	if err != nil {
		// a malformed URL is an answer, not a dependency failure
		return false, nil
	}
	req.Header.Set("User-Agent", p.config.UserAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("favicon probe %s: %w", iconURL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 500:
		return false, fmt.Errorf("favicon probe %s: status %d", iconURL, resp.StatusCode)
	case resp.StatusCode >= 400:
		p.logger.Debug("Favicon not available", zap.String("url", iconURL), zap.Int("status", resp.StatusCode))
		return false, nil
	default:
		return true, nil
	}
}

func (p *Prober) cached(iconURL string) (bool, bool) {
	if p.config.CacheTTL <= 0 {
		return false, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.cache[iconURL]
	if !ok {
		return false, false
	}
	if p.now().After(entry.expires) {
		delete(p.cache, iconURL)
		return false, false
	}
	return entry.found, true
}

func (p *Prober) store(iconURL string, found bool) {
	if p.config.CacheTTL <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if _, ok := p.cache[iconURL]; !ok && len(p.cache) >= p.config.MaxEntries {
		p.purgeLocked(now)
		if len(p.cache) >= p.config.MaxEntries {
			p.evictOldestLocked()
		}
	}
	p.cache[iconURL] = cacheEntry{found: found, expires: now.Add(p.config.CacheTTL)}
}

func (p *Prober) evictOldestLocked() {
	var (
		oldest  string
		expires time.Time
		seen    bool
	)
	for k, e := range p.cache {
		if !seen || e.expires.Before(expires) {
			oldest, expires, seen = k, e.expires, true
		}
	}
	if seen {
		delete(p.cache, oldest)
	}
}

func (p *Prober) purgeLocked(now time.Time) {
	for k, e := range p.cache {
		if now.After(e.expires) {
			delete(p.cache, k)
		}
	}
}

// Purge drops expired cache entries and returns how many remain
func (p *Prober) Purge() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purgeLocked(p.now())
	return len(p.cache)
}

// Breakers returns the number of hosts with a breaker
func (p *Prober) Breakers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.breakers)
}
