package referer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// Media assigned by the classifier itself rather than by the database.
const (
	MediumUnknown  = "unknown"
	MediumInternal = "internal"
	MediumSearch   = "search"
)

// ErrInvalidURL is returned when a referer or current-page URL cannot be
// parsed as an absolute URL.
var ErrInvalidURL = errors.New("invalid url")

// Result is the outcome of classifying one referer. Empty Referer and
// SearchParameter mean the value is absent. SearchTerm is present exactly
// when SearchParameter is set and may then be empty.
type Result struct {
	Known           bool
	Referer         string
	Medium          string
	SearchParameter string
	SearchTerm      string
	// URI is the parsed referer URL.
	URI *url.URL
}

// MarshalJSON renders absent values as null.
func (r Result) MarshalJSON() ([]byte, error) {
	var uri string
	if r.URI != nil {
		uri = r.URI.String()
	}
	out, err := json.Marshal(struct {
		Known           bool    `json:"known"`
		Referer         *string `json:"referer"`
		Medium          string  `json:"medium"`
		SearchParameter *string `json:"search_parameter"`
		SearchTerm      *string `json:"search_term"`
		URI             string  `json:"uri"`
	}{
		Known:           r.Known,
		Referer:         nullable(r.Referer),
		Medium:          r.Medium,
		SearchParameter: nullable(r.SearchParameter),
		SearchTerm:      r.searchTermPtr(),
		URI:             uri,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return out, nil
}

// HasSearchTerm reports whether a search parameter matched. The term itself
// may be the empty string.
func (r Result) HasSearchTerm() bool {
	return r.SearchParameter != ""
}

func (r Result) searchTermPtr() *string {
	if !r.HasSearchTerm() {
		return nil
	}
	term := r.SearchTerm
	return &term
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Classifier classifies referers against one immutable Index.
type Classifier struct {
	index       Index
	fingerprint string
	entries     int
	media       []string
}

// New builds a Classifier for src.
func New(src Source) (*Classifier, error) {
	return newClassifier(src, src.Fingerprint())
}

func newClassifier(src Source, fingerprint string) (*Classifier, error) {
	idx, err := BuildIndex(src)
	if err != nil {
		return nil, err
	}
	return &Classifier{
		index:       idx,
		fingerprint: fingerprint,
		entries:     src.Len(),
		media:       src.Media(),
	}, nil
}

// Fingerprint identifies the source the classifier was built from.
func (c *Classifier) Fingerprint() string { return c.fingerprint }

// Entries is the number of referer entries in the source.
func (c *Classifier) Entries() int { return c.entries }

// Keys is the number of distinct index keys.
func (c *Classifier) Keys() int { return len(c.index) }

// Media lists the media declared by the source.
func (c *Classifier) Media() []string {
	out := make([]string, len(c.media))
	copy(out, c.media)
	return out
}

// Classify classifies refererURL. currentURL is optional; when its host
// equals the referer host the traffic is internal and the database is not
// consulted.
func (c *Classifier) Classify(refererURL, currentURL string) (Result, error) {
	refURI, err := parseAbsolute(refererURL)
	if err != nil {
		return Result{}, err
	}
	res := Result{Medium: MediumUnknown, URI: refURI}
	if refURI.Scheme != "http" && refURI.Scheme != "https" {
		return res, nil
	}
	res.Known = true

	host := refURI.Hostname()
	if currentURL != "" {
		curURI, err := parseAbsolute(currentURL)
		if err != nil {
			return Result{}, err
		}
		if curURI.Hostname() == host {
			res.Medium = MediumInternal
			return res, nil
		}
	}

	rec, ok := c.index.Lookup(host, lookupPath(refURI))
	if !ok {
		return res, nil
	}
	res.Referer = rec.Name
	res.Medium = rec.Medium
	if rec.Medium == MediumSearch && rec.Params != nil {
		res.SearchParameter, res.SearchTerm = searchTerm(refURI.RawQuery, rec)
	}
	return res, nil
}

// parseAbsolute parses raw and requires a scheme. url.Parse lowercases the
// scheme.
func parseAbsolute(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute url", ErrInvalidURL, raw)
	}
	return u, nil
}

// lookupPath returns the escaped path, "/" for an empty one.
func lookupPath(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		return "/"
	}
	return p
}
