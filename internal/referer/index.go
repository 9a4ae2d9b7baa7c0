package referer

import (
	"fmt"
	"strings"
)

// Record is the classification attached to one index key.
type Record struct {
	Name   string
	Medium string
	// Params holds lowercase search parameter names; nil when the referer
	// declares none.
	Params map[string]struct{}
}

// HasParam reports whether the lowercase form of name is a declared
// search parameter.
func (r Record) HasParam(name string) bool {
	if r.Params == nil {
		return false
	}
	_, ok := r.Params[strings.ToLower(name)]
	return ok
}

// Index maps a domain (or domain/first-path-segment) to its Record.
type Index map[string]Record

// BuildIndex flattens src into an Index. Domain strings are used verbatim as
// keys. Later entries overwrite earlier ones on collision.
func BuildIndex(src Source) (Index, error) {
	size := 0
	for _, e := range src.Entries {
		size += len(e.Domains)
	}
	idx := make(Index, size)
	for _, e := range src.Entries {
		if len(e.Domains) == 0 {
			return nil, fmt.Errorf("%w: %s/%s declares no domains", ErrMalformedSource, e.Medium, e.Name)
		}
		var params map[string]struct{}
		if e.Parameters != nil {
			params = make(map[string]struct{}, len(e.Parameters))
			for _, p := range e.Parameters {
				params[strings.ToLower(p)] = struct{}{}
			}
		}
		for _, domain := range e.Domains {
			idx[domain] = Record{Name: e.Name, Medium: e.Medium, Params: params}
		}
	}
	return idx, nil
}

// Lookup finds the record for host and path. The whole host hierarchy is
// searched with path-qualified keys first; only when that fails is it
// searched again with bare host keys.
func (idx Index) Lookup(host, path string) (Record, bool) {
	if rec, ok := idx.resolve(host, path, true); ok {
		return rec, true
	}
	return idx.resolve(host, path, false)
}

// resolve walks from host towards its registrable suffix, stripping the
// leftmost label each round until a key matches or no dot remains.
func (idx Index) resolve(host, path string, includePath bool) (Record, bool) {
	for {
		if includePath {
			if rec, ok := idx[host+path]; ok {
				return rec, true
			}
			if segments := strings.Split(path, "/"); len(segments) >= 2 {
				if rec, ok := idx[host+"/"+segments[1]]; ok {
					return rec, true
				}
			}
		}
		if rec, ok := idx[host]; ok {
			return rec, true
		}
		dot := strings.IndexByte(host, '.')
		if dot < 0 {
			return Record{}, false
		}
		host = host[dot+1:]
	}
}
