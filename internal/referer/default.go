package referer

import (
	_ "embed"
	"fmt"
	"sync"
)

//go:embed data/referers.json
var defaultData []byte

const sharedCacheSize = 8

var (
	defaultOnce       sync.Once
	defaultSource     Source
	defaultClassifier *Classifier

	sharedCache = mustCache(sharedCacheSize)
)

func mustCache(size int) *Cache {
	c, err := NewCache(size)
	if err != nil {
		panic(err)
	}
	return c
}

func loadDefault() {
	defaultOnce.Do(func() {
		src, err := ParseJSON(defaultData)
		if err != nil {
			panic(fmt.Sprintf("embedded referer database: %v", err))
		}
		cl, err := New(src)
		if err != nil {
			panic(fmt.Sprintf("embedded referer database: %v", err))
		}
		defaultSource, defaultClassifier = src, cl
	})
}

// DefaultSource returns a copy of the bundled referer database.
func DefaultSource() Source {
	loadDefault()
	return defaultSource.Clone()
}

// Default returns the classifier for the bundled referer database.
func Default() *Classifier {
	loadDefault()
	return defaultClassifier
}

// Classify classifies refererURL against src, or against the bundled
// database when src is nil. Indexes are cached per source fingerprint.
func Classify(refererURL, currentURL string, src *Source) (Result, error) {
	if src == nil {
		return Default().Classify(refererURL, currentURL)
	}
	cl, _, err := sharedCache.Get(*src)
	if err != nil {
		return Result{}, err
	}
	return cl.Classify(refererURL, currentURL)
}
