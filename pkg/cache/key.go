package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "deckterra"

// CacheKey identifies one cached page response.
type CacheKey struct {
	// Host is the remote host (e.g. "lor.mobalytics.gg")
	Host string

	// Endpoint is the request path (e.g. "/api/v2/decks/library")
	Endpoint string

	// QueryParams are the page query parameters
	QueryParams url.Values
}

// KeyFromURL builds the cache key for a fully resolved request URL.
func KeyFromURL(u *url.URL) CacheKey {
	return CacheKey{
		Host:        u.Host,
		Endpoint:    u.Path,
		QueryParams: u.Query(),
	}
}

// String generates a deterministic cache key string.
// Format: deckterra:host:endpoint:query1=val1:query2=val2
//
// Example:
//
//	deckterra:lor.mobalytics.gg:api/v2/decks/library:count=4000:from=0
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	if k.Host != "" {
		parts = append(parts, k.Host)
	}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Query params sorted for determinism; repeated values keep their order
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			for _, v := range k.QueryParams[key] {
				parts = append(parts, fmt.Sprintf("%s=%s", key, v))
			}
		}
	}

	return strings.Join(parts, ":")
}
