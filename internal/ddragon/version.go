package ddragon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"fiddlegg/internal/store"
)

// versionStoreKey is the durable key holding the last discovered version
const versionStoreKey = "ddragon_version"

// Version is a Data Dragon asset version and when it was discovered
type Version struct {
	Value      string
	ResolvedAt time.Time
	Fallback   bool // true when discovery failed and the fixed fallback is served
}

// VersionSource resolves the current asset version
type VersionSource interface {
	Resolve(ctx context.Context, forceRefresh bool) Version
}

// persistedVersion is the durable representation
type persistedVersion struct {
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// VersionResolver discovers the current CDN version and caches it in memory
// and in a durable store, both for VersionTTL
type VersionResolver struct {
	cdn      *cdnClient
	baseURL  string
	store    store.Store
	fallback string
	now      func() time.Time
	log      logrus.FieldLogger

	group singleflight.Group

	mu       sync.RWMutex
	cached   string
	cachedAt time.Time
}

// NewVersionResolver creates a resolver persisting into st. A nil store
// disables the durable tier.
func NewVersionResolver(st store.Store, opts ...Option) *VersionResolver {
	o := buildOptions(opts)
	return &VersionResolver{
		cdn:      &cdnClient{httpClient: o.httpClient, timeout: o.timeout},
		baseURL:  o.baseURL,
		store:    st,
		fallback: o.fallback,
		now:      o.now,
		log:      o.logger.WithField("component", "versions"),
	}
}

// Resolve returns the current version. It never fails: discovery errors
// are logged and the fallback version is returned without being cached.
func (r *VersionResolver) Resolve(ctx context.Context, forceRefresh bool) Version {
	if !forceRefresh {
		if v, ok := r.fromMemory(); ok {
			return v
		}
		if v, ok := r.fromStore(ctx); ok {
			return v
		}
	}

	// Forced callers never join an unforced flight, which may answer from memory.
	// The shared fetch outlives any single caller; the CDN timeout bounds it.
	flight := "versions"
	if forceRefresh {
		flight = "versions:force"
	}
	ch := r.group.DoChan(flight, func() (interface{}, error) {
		if !forceRefresh {
			if v, ok := r.fromMemory(); ok {
				return v, nil
			}
		}
		return r.discover(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return r.fallbackVersion(res.Err)
		}
		return res.Val.(Version)
	case <-ctx.Done():
		return r.fallbackVersion(ctx.Err())
	}
}

// Latest is Resolve(ctx, false).Value
func (r *VersionResolver) Latest(ctx context.Context) string {
	return r.Resolve(ctx, false).Value
}

// Info returns the in-memory version, if any
func (r *VersionResolver) Info() (Version, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cached == "" {
		return Version{}, false
	}
	return Version{Value: r.cached, ResolvedAt: r.cachedAt}, true
}

// Clear drops both cache tiers
func (r *VersionResolver) Clear(ctx context.Context) {
	r.mu.Lock()
	r.cached = ""
	r.cachedAt = time.Time{}
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.Delete(ctx, versionStoreKey); err != nil {
			r.log.WithError(err).Warn("Failed to clear stored version")
		}
	}
}

func (r *VersionResolver) fresh(at time.Time) bool {
	return r.now().Sub(at) < VersionTTL
}

func (r *VersionResolver) fromMemory() (Version, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cached == "" || !r.fresh(r.cachedAt) {
		return Version{}, false
	}
	return Version{Value: r.cached, ResolvedAt: r.cachedAt}, true
}

// fromStore reads the durable entry and promotes it to memory when fresh.
// Stale or unreadable entries are removed.
func (r *VersionResolver) fromStore(ctx context.Context) (Version, bool) {
	if r.store == nil {
		return Version{}, false
	}

	data, err := r.store.Get(ctx, versionStoreKey)
	if errors.Is(err, store.ErrNotFound) {
		return Version{}, false
	}
	if err != nil {
		r.log.WithError(err).Warn("Failed to read stored version")
		return Version{}, false
	}

	var p persistedVersion
	if err := json.Unmarshal(data, &p); err != nil || p.Version == "" || !r.fresh(p.LastUpdated) {
		if err := r.store.Delete(ctx, versionStoreKey); err != nil {
			r.log.WithError(err).Warn("Failed to drop stale stored version")
		}
		return Version{}, false
	}

	r.mu.Lock()
	r.cached = p.Version
	r.cachedAt = p.LastUpdated
	r.mu.Unlock()

	return Version{Value: p.Version, ResolvedAt: p.LastUpdated}, true
}

// discover fetches versions.json and stores index 0 in both tiers
func (r *VersionResolver) discover(ctx context.Context) (Version, error) {
	r.log.Debug("Fetching latest Data Dragon version")

	var versions []string
	if err := r.cdn.getJSON(ctx, r.baseURL+"/api/versions.json", &versions); err != nil {
		return Version{}, fmt.Errorf("failed to fetch versions: %w", err)
	}
	if len(versions) == 0 || versions[0] == "" {
		return Version{}, fmt.Errorf("%w: no versions available", ErrDecode)
	}

	v := Version{Value: versions[0], ResolvedAt: r.now()}

	r.mu.Lock()
	r.cached = v.Value
	r.cachedAt = v.ResolvedAt
	r.mu.Unlock()

	if r.store != nil {
		data, _ := json.Marshal(persistedVersion{Version: v.Value, LastUpdated: v.ResolvedAt})
		if err := r.store.Set(ctx, versionStoreKey, data); err != nil {
			r.log.WithError(err).Warn("Failed to persist version")
		}
	}

	r.log.WithField("version", v.Value).Info("Resolved Data Dragon version")
	return v, nil
}

func (r *VersionResolver) fallbackVersion(err error) Version {
	r.log.WithError(err).WithField("version", r.fallback).Warn("Version discovery failed, using fallback")
	return Version{Value: r.fallback, ResolvedAt: r.now(), Fallback: true}
}
