package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"gauntlet/internal/common"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Runtime is one (language, version) pair the sandbox can execute.
type Runtime struct {
	Language string   `json:"language"`
	Version  string   `json:"version"`
	Aliases  []string `json:"aliases,omitempty"`
}

const runtimeCacheKey = "sandbox:runtimes"

// runtimeCatalog resolves human-facing language names to the sandbox's
// canonical (language, version) identifiers. The catalog is cached in redis
// with a short TTL; concurrent refreshes collapse into a single fetch.
type runtimeCatalog struct {
	baseURL string
	http    *http.Client
	rdb     *redis.Client
	ttl     time.Duration
	group   singleflight.Group
	log     *zap.Logger
}

func newRuntimeCatalog(baseURL string, httpClient *http.Client, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *runtimeCatalog {
	return &runtimeCatalog{baseURL: baseURL, http: httpClient, rdb: rdb, ttl: ttl, log: log}
}

// Resolve matches language against runtime names and aliases,
// case-insensitively. A miss yields ErrUnsupportedLanguage carrying the
// supported-language list for diagnostics.
func (c *runtimeCatalog) Resolve(ctx context.Context, language string) (Runtime, error) {
	runtimes, err := c.list(ctx)
	if err != nil {
		return Runtime{}, err
	}

	want := strings.ToLower(strings.TrimSpace(language))
	for _, rt := range runtimes {
		if strings.ToLower(rt.Language) == want {
			return rt, nil
		}
		for _, alias := range rt.Aliases {
			if strings.ToLower(alias) == want {
				return rt, nil
			}
		}
	}

	return Runtime{}, fmt.Errorf("language %q not found (supported: %s): %w",
		language, strings.Join(supportedNames(runtimes), ", "), common.ErrUnsupportedLanguage)
}

func supportedNames(runtimes []Runtime) []string {
	seen := make(map[string]struct{}, len(runtimes))
	var names []string
	for _, rt := range runtimes {
		if _, ok := seen[rt.Language]; ok {
			continue
		}
		seen[rt.Language] = struct{}{}
		names = append(names, rt.Language)
	}
	sort.Strings(names)
	return names
}

func (c *runtimeCatalog) list(ctx context.Context) ([]Runtime, error) {
	if data, err := c.rdb.Get(ctx, runtimeCacheKey).Bytes(); err == nil {
		var runtimes []Runtime
		if json.Unmarshal(data, &runtimes) == nil && len(runtimes) > 0 {
			return runtimes, nil
		}
	}

	v, err, _ := c.group.Do(runtimeCacheKey, func() (interface{}, error) {
		runtimes, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(runtimes); err == nil {
			if err := c.rdb.Set(ctx, runtimeCacheKey, data, c.ttl).Err(); err != nil {
				c.log.Warn("Failed to cache runtime catalog", zap.Error(err))
			}
		}
		return runtimes, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Runtime), nil
}

func (c *runtimeCatalog) fetch(ctx context.Context) ([]Runtime, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v2/runtimes", nil)
	if err != nil {
		return nil, fmt.Errorf("building runtimes request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching runtime catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("runtime catalog returned status %d", resp.StatusCode)
	}

	var runtimes []Runtime
	if err := json.NewDecoder(resp.Body).Decode(&runtimes); err != nil {
		return nil, fmt.Errorf("decoding runtime catalog: %w", err)
	}
	return runtimes, nil
}
