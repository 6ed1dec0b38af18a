package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-botflow/core"
)

const templateCacheKeyPrefix = "go-botflow::template::v1"

// CachedTemplateStore fronts template lookups with a read-through cache.
// Template rows change rarely and are read on nearly every flow turn.
type CachedTemplateStore struct {
	base  core.TemplateStore
	cache repositorycache.CacheService
}

func NewCachedTemplateStore(
	base core.TemplateStore,
	cacheService repositorycache.CacheService,
) (*CachedTemplateStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base template store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: template cache service is required")
	}
	return &CachedTemplateStore{base: base, cache: cacheService}, nil
}

// TemplateCacheKey is the deterministic cache key contract for template
// reads: go-botflow::template::v1::<tenant_id>::<name> with the name
// URL-path escaped after normalization.
func TemplateCacheKey(tenantID int64, name string) (string, error) {
	normalized := strings.TrimSpace(strings.ToLower(name))
	if normalized == "" {
		return "", fmt.Errorf("sqlstore: template name is required")
	}
	if tenantID <= 0 {
		return "", fmt.Errorf("sqlstore: tenant id is required")
	}
	segments := []string{
		strconv.FormatInt(tenantID, 10),
		url.PathEscape(normalized),
	}
	return strings.Join(append([]string{templateCacheKeyPrefix}, segments...), "::"), nil
}

type cachedTemplate struct {
	Template core.Template
	Found    bool
}

func (s *CachedTemplateStore) FindActive(ctx context.Context, tenantID int64, name string) (core.Template, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Template{}, false, fmt.Errorf("sqlstore: cached template store is not configured")
	}
	cacheKey, err := TemplateCacheKey(tenantID, name)
	if err != nil {
		return core.Template{}, false, err
	}

	entry, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (cachedTemplate, error) {
		template, found, fetchErr := s.base.FindActive(ctx, tenantID, name)
		if fetchErr != nil {
			return cachedTemplate{}, fetchErr
		}
		return cachedTemplate{Template: template, Found: found}, nil
	})
	if err != nil {
		return core.Template{}, false, err
	}
	return entry.Template, entry.Found, nil
}

// Invalidate drops the cached entry after a template row changes.
func (s *CachedTemplateStore) Invalidate(ctx context.Context, tenantID int64, name string) error {
	if s == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached template store is not configured")
	}
	cacheKey, err := TemplateCacheKey(tenantID, name)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

var _ core.TemplateStore = (*CachedTemplateStore)(nil)
