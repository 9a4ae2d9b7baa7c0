package referer

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes classifiers by source fingerprint so repeated calls with
// the same database reuse one index.
type Cache struct {
	entries *lru.Cache[string, *Classifier]
}

// NewCache returns a Cache holding at most size classifiers.
func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[string, *Classifier](size)
	if err != nil {
		return nil, fmt.Errorf("create classifier cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Get returns the classifier for src, building it on a miss. The boolean is
// true when the classifier came from the cache.
func (c *Cache) Get(src Source) (*Classifier, bool, error) {
	key := src.Fingerprint()
	if cl, ok := c.entries.Get(key); ok {
		return cl, true, nil
	}
	cl, err := newClassifier(src, key)
	if err != nil {
		return nil, false, err
	}
	c.entries.Add(key, cl)
	return cl, false, nil
}

// Len returns the number of cached classifiers.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge drops every cached classifier.
func (c *Cache) Purge() {
	c.entries.Purge()
}
