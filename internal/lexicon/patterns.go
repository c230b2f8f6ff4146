package lexicon

import (
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultPatternCacheSize = 512

// PatternCache memoizes compiled item patterns across reports and passes.
type PatternCache struct {
	cache *lru.Cache[string, *regexp.Regexp]
}

// NewPatternCache creates a cache holding at most size compiled patterns.
func NewPatternCache(size int) (*PatternCache, error) {
	if size <= 0 {
		size = DefaultPatternCacheSize
	}
	cache, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		return nil, fmt.Errorf("creating pattern cache: %w", err)
	}
	return &PatternCache{cache: cache}, nil
}

// Compile returns the compiled pattern of an item.
func (c *PatternCache) Compile(item Item) (*regexp.Regexp, error) {
	src := item.Pattern()
	if re, ok := c.cache.Get(src); ok {
		return re, nil
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern for %q: %w", item.Literal, err)
	}
	c.cache.Add(src, re)
	return re, nil
}

// Len returns the number of cached patterns.
func (c *PatternCache) Len() int {
	return c.cache.Len()
}
