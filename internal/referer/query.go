package referer

import (
	"encoding/hex"
	"net/url"
	"strings"
)

// queryField is one distinct query-string key with every value it was given.
type queryField struct {
	key    string
	values []string
}

// parseQuery splits a raw query into distinct keys in first-appearance
// order. Repeated keys collect their values on the first occurrence.
// Malformed escapes are kept verbatim instead of failing the parse.
func parseQuery(raw string) []queryField {
	var fields []queryField
	seen := make(map[string]int)
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		k, v = unescape(k), unescape(v)
		if i, ok := seen[k]; ok {
			fields[i].values = append(fields[i].values, v)
			continue
		}
		seen[k] = len(fields)
		fields = append(fields, queryField{key: k, values: []string{v}})
	}
	return fields
}

func unescape(s string) string {
	if out, err := url.QueryUnescape(s); err == nil {
		return out
	}
	// Decode the well-formed escapes one by one and keep the rest verbatim.
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s):
			if decoded, err := hex.DecodeString(s[i+1 : i+3]); err == nil {
				b.Write(decoded)
				i += 2
				continue
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// searchTerm returns the last single-valued query key that rec declares as a
// search parameter, with its value. Empty keys never match.
func searchTerm(rawQuery string, rec Record) (param, term string) {
	for _, f := range parseQuery(rawQuery) {
		if f.key == "" || len(f.values) != 1 || !rec.HasParam(f.key) {
			continue
		}
		param, term = f.key, f.values[0]
	}
	return param, term
}
