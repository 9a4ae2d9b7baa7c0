package referer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"slices"
)

// ErrMalformedSource reports a referer database that does not follow the
// medium -> referer -> {domains, parameters} schema.
var ErrMalformedSource = errors.New("malformed referer source")

// Entry is one referer declaration from the source database.
type Entry struct {
	Medium     string   `json:"medium"`
	Name       string   `json:"name"`
	Domains    []string `json:"domains"`
	Parameters []string `json:"parameters,omitempty"`
}

// Source is a referer database flattened into declaration order. The order
// matters: when two entries declare the same domain, the later one wins.
type Source struct {
	Entries []Entry
}

// Len returns the number of referer entries.
func (s Source) Len() int {
	return len(s.Entries)
}

// Media returns the distinct medium names in declaration order.
func (s Source) Media() []string {
	var out []string
	for _, e := range s.Entries {
		if !slices.Contains(out, e.Medium) {
			out = append(out, e.Medium)
		}
	}
	return out
}

// Fingerprint returns a hex SHA-256 digest over the entries in order. Two
// sources with the same fingerprint build identical indexes.
func (s Source) Fingerprint() string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, e := range s.Entries {
		// Encoding plain strings into a hash cannot fail.
		_ = enc.Encode(e)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Clone returns a deep copy of the source.
func (s Source) Clone() Source {
	if s.Entries == nil {
		return Source{}
	}
	out := Source{Entries: make([]Entry, len(s.Entries))}
	for i, e := range s.Entries {
		out.Entries[i] = Entry{
			Medium:     e.Medium,
			Name:       e.Name,
			Domains:    slices.Clone(e.Domains),
			Parameters: slices.Clone(e.Parameters),
		}
	}
	return out
}

// entryConfig mirrors the per-referer object of the database file.
type entryConfig struct {
	Domains    []string `json:"domains" yaml:"domains"`
	Parameters []string `json:"parameters" yaml:"parameters"`
}

func (c entryConfig) entry(medium, name string) Entry {
	return Entry{
		Medium:     medium,
		Name:       name,
		Domains:    c.Domains,
		Parameters: c.Parameters,
	}
}
