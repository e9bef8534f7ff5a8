package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-install/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const installationCacheKeyPrefix = "go-install::installation::v1"

// CachedInstallationStore wraps an installation store with read-through
// caching on Fetch. Store and Delete write through to the base store and
// invalidate the affected keys.
type CachedInstallationStore struct {
	base  core.InstallationStore
	cache repositorycache.CacheService
}

func NewCachedInstallationStore(
	base core.InstallationStore,
	cacheService repositorycache.CacheService,
) (*CachedInstallationStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base installation store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: installation cache service is required")
	}
	return &CachedInstallationStore{base: base, cache: cacheService}, nil
}

// InstallationCacheKey returns the deterministic cache key for installation
// reads: go-install::installation::v1::<enterprise>::<team>::<user> with each
// segment URL-path escaped.
func InstallationCacheKey(query core.InstallQuery) (string, error) {
	if err := query.Validate(); err != nil {
		return "", err
	}
	enterpriseID, teamID := installationScope(query)
	segments := []string{
		url.PathEscape(enterpriseID),
		url.PathEscape(teamID),
		url.PathEscape(strings.TrimSpace(query.UserID)),
	}
	return strings.Join(append([]string{installationCacheKeyPrefix}, segments...), "::"), nil
}

func (s *CachedInstallationStore) Fetch(ctx context.Context, query core.InstallQuery) (core.Installation, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Installation{}, fmt.Errorf("sqlstore: cached installation store is not configured")
	}
	cacheKey, err := InstallationCacheKey(query)
	if err != nil {
		return core.Installation{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Installation, error) {
		return s.base.Fetch(ctx, query)
	})
}

func (s *CachedInstallationStore) Store(ctx context.Context, installation core.Installation) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached installation store is not configured")
	}
	if err := s.base.Store(ctx, installation); err != nil {
		return err
	}
	return s.invalidate(ctx, installation.Query())
}

func (s *CachedInstallationStore) Delete(ctx context.Context, query core.InstallQuery) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached installation store is not configured")
	}
	if err := s.base.Delete(ctx, query); err != nil {
		return err
	}
	return s.invalidate(ctx, query)
}

// invalidate drops both the user-scoped key and the bare workspace key; a new
// install rewrites the workspace's bot record either way.
func (s *CachedInstallationStore) invalidate(ctx context.Context, query core.InstallQuery) error {
	keys := make([]string, 0, 2)
	if strings.TrimSpace(query.UserID) != "" {
		userKey, err := InstallationCacheKey(query)
		if err != nil {
			return err
		}
		keys = append(keys, userKey)
	}
	workspaceQuery := query
	workspaceQuery.UserID = ""
	workspaceKey, err := InstallationCacheKey(workspaceQuery)
	if err != nil {
		return err
	}
	keys = append(keys, workspaceKey)

	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

var _ core.InstallationStore = (*CachedInstallationStore)(nil)
