// Package gqldb implements the data access layer against the external
// GraphQL server that owns all persistence. Searches are cached for a short
// TTL; mutations invalidate the affected entries. Bypassing the cache forces
// a network fetch, mirroring a network-only fetch policy.
package gqldb

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/machinebox/graphql"
	"github.com/pkg/errors"

	"github.com/volunhub/volunhub/core/event"
)

type (
	cacheEntry struct {
		data      interface{}
		fetchedAt time.Time
	}

	Repository struct {
		client   *graphql.Client
		cacheTTL time.Duration

		mu    sync.Mutex
		cache map[string]cacheEntry
	}
)

var _ event.Repository = (*Repository)(nil)

func NewEventRepository(url string, timeout, cacheTTL time.Duration) *Repository {
	return &Repository{
		client: graphql.NewClient(url, graphql.WithHTTPClient(
			&http.Client{Timeout: timeout},
		)),
		cacheTTL: cacheTTL,
		cache:    make(map[string]cacheEntry),
	}
}

func bypass(opts []event.QueryOption) bool {
	var o event.QueryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o.BypassCache
}

func (repo *Repository) cached(key string, opts []event.QueryOption) (interface{}, bool) {
	if bypass(opts) {
		return nil, false
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	entry, ok := repo.cache[key]
	if !ok || time.Since(entry.fetchedAt) > repo.cacheTTL {
		return nil, false
	}
	return entry.data, true
}

func (repo *Repository) store(key string, data interface{}) {
	repo.mu.Lock()
	repo.cache[key] = cacheEntry{data: data, fetchedAt: time.Now()}
	repo.mu.Unlock()
}

func (repo *Repository) invalidate(keys ...string) {
	repo.mu.Lock()
	for _, key := range keys {
		delete(repo.cache, key)
	}
	repo.mu.Unlock()
}

func (repo *Repository) run(ctx context.Context, query string, vars map[string]interface{}, resp interface{}) error {
	req := graphql.NewRequest(query)
	for name, val := range vars {
		req.Var(name, val)
	}
	if err := repo.client.Run(ctx, req, resp); err != nil {
		return errors.Wrap(err, "graphql request failed")
	}
	return nil
}
