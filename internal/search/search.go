// Package search resolves user queries into playable tracks through an
// [audio.Node]. Results are cached for a short time and each user is rate
// limited so that repeated commands do not flood the node.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/MrWong99/cadence/internal/observe"
	"github.com/MrWong99/cadence/pkg/audio"
	"github.com/MrWong99/cadence/pkg/stopwatch"
)

var (
	// ErrNoMatches is returned when a query resolves to nothing.
	ErrNoMatches = errors.New("search: no matches")

	// ErrRateLimited is returned when a user searches faster than allowed.
	ErrRateLimited = errors.New("search: rate limited")
)

// Defaults applied by [New] for zero-valued [Config] fields.
const (
	DefaultPrefix    = "ytsearch"
	DefaultCacheSize = 256
	DefaultCacheTTL  = 10 * time.Minute
	DefaultRate      = rate.Limit(1)
	DefaultBurst     = 3

	// limiterSlots bounds how many per-user limiters are remembered.
	limiterSlots = 1024
)

// Config configures a [Resolver].
type Config struct {
	// Node loads tracks. Required.
	Node audio.Node

	// Prefix is prepended to queries that are not URLs, e.g. "ytsearch".
	Prefix string

	// CacheSize and CacheTTL bound the result cache.
	CacheSize int
	CacheTTL  time.Duration

	// Rate and Burst bound searches per user.
	Rate  rate.Limit
	Burst int

	// Metrics records search latency. May be nil.
	Metrics *observe.Metrics
}

// Resolver turns queries into tracks. It is safe for concurrent use.
type Resolver struct {
	node    audio.Node
	prefix  string
	rate    rate.Limit
	burst   int
	metrics *observe.Metrics

	cache    *expirable.LRU[string, audio.SearchResult]
	limiters *lru.Cache[string, *rate.Limiter]
}

// New creates a Resolver.
func New(cfg Config) (*Resolver, error) {
	if cfg.Node == nil {
		return nil, errors.New("search: node is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}

	limiters, err := lru.New[string, *rate.Limiter](limiterSlots)
	if err != nil {
		return nil, fmt.Errorf("search: create limiter cache: %w", err)
	}
	return &Resolver{
		node:     cfg.Node,
		prefix:   cfg.Prefix,
		rate:     cfg.Rate,
		burst:    cfg.Burst,
		metrics:  cfg.Metrics,
		cache:    expirable.NewLRU[string, audio.SearchResult](cfg.CacheSize, nil, cfg.CacheTTL),
		limiters: limiters,
	}, nil
}

// Identifier returns what the node is asked to load for query: URLs pass
// through unchanged, anything else becomes a prefixed search.
func (r *Resolver) Identifier(query string) string {
	query = strings.TrimSpace(query)
	if u, err := url.Parse(query); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return query
	}
	return r.prefix + ":" + query
}

// Resolve loads query on behalf of requester, to whom every returned track is
// attributed. Cache hits do not count against the user's rate limit.
func (r *Resolver) Resolve(ctx context.Context, requester audio.Requester, query string) (audio.SearchResult, error) {
	ctx, span := observe.StartSpan(ctx, "search.Resolve")
	defer span.End()
	sw := stopwatch.Start()

	if strings.TrimSpace(query) == "" {
		return audio.SearchResult{}, ErrNoMatches
	}
	id := r.Identifier(query)

	if res, ok := r.cache.Get(id); ok {
		r.metrics.RecordSearch(ctx, sw.Stop(), true)
		return res.WithRequester(requester), nil
	}

	if !r.limiter(requester.ID).Allow() {
		return audio.SearchResult{}, ErrRateLimited
	}

	res, err := r.node.Search(ctx, id)
	r.metrics.RecordSearch(ctx, sw.Stop(), false)
	if err != nil {
		return audio.SearchResult{}, fmt.Errorf("search: load %q: %w", id, err)
	}
	if res.Empty() {
		return audio.SearchResult{}, ErrNoMatches
	}
	r.cache.Add(id, res)

	observe.Logger(ctx).Debug("search: resolved", "identifier", id, "tracks", len(res.Tracks), "playlist", res.Playlist)
	return res.WithRequester(requester), nil
}

// First resolves query and returns its first track.
func (r *Resolver) First(ctx context.Context, requester audio.Requester, query string) (audio.Track, error) {
	res, err := r.Resolve(ctx, requester, query)
	if err != nil {
		return audio.Track{}, err
	}
	return res.Tracks[0], nil
}

// Purge drops every cached result.
func (r *Resolver) Purge() {
	r.cache.Purge()
}

func (r *Resolver) limiter(userID string) *rate.Limiter {
	if l, ok := r.limiters.Get(userID); ok {
		return l
	}
	l := rate.NewLimiter(r.rate, r.burst)
	// Another goroutine may have raced us; keep whichever got in first.
	if prev, ok, _ := r.limiters.PeekOrAdd(userID, l); ok {
		return prev
	}
	return l
}
