package timepoint

import "github.com/maypok86/otter/v2"

// DefaultCacheSize bounds the number of distinct raw strings a Normalizer
// remembers.
const DefaultCacheSize = 50_000

// Normalizer memoizes Parse results. Failed parses are not cached. Safe for
// concurrent use. A nil Normalizer parses without caching.
type Normalizer struct {
	cache *otter.Cache[string, TimePoint]
}

// NewNormalizer creates a Normalizer holding at most size entries.
// A non-positive size selects DefaultCacheSize.
func NewNormalizer(size int) *Normalizer {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache := otter.Must(&otter.Options[string, TimePoint]{
		MaximumSize:     size,
		InitialCapacity: min(size, 1024),
	})
	return &Normalizer{cache: cache}
}

// Parse behaves like the package-level Parse.
func (n *Normalizer) Parse(raw string) (TimePoint, error) {
	if n == nil || n.cache == nil {
		return Parse(raw)
	}
	if tp, ok := n.cache.GetIfPresent(raw); ok {
		return tp, nil
	}
	tp, err := Parse(raw)
	if err != nil {
		return "", err
	}
	n.cache.Set(raw, tp)
	return tp, nil
}

// Size returns the approximate number of cached entries.
func (n *Normalizer) Size() int {
	if n == nil || n.cache == nil {
		return 0
	}
	return n.cache.EstimatedSize()
}
