package referer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderedJSON = `{
  "social": {
    "Zeta": {"domains": ["zeta.test"]},
    "Alpha": {"domains": ["alpha.test", "alpha.test/share"]}
  },
  "search": {
    "Finder": {"parameters": ["Q", "query"], "domains": ["find.test"]}
  }
}`

const orderedYAML = `
social:
  Zeta:
    domains:
      - zeta.test
  Alpha:
    domains:
      - alpha.test
      - alpha.test/share
search:
  Finder:
    parameters:
      - Q
      - query
    domains:
      - find.test
`

func TestParseJSONPreservesDeclarationOrder(t *testing.T) {
	t.Parallel()

	src, err := ParseJSON([]byte(orderedJSON))
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{Medium: "social", Name: "Zeta", Domains: []string{"zeta.test"}},
		{Medium: "social", Name: "Alpha", Domains: []string{"alpha.test", "alpha.test/share"}},
		{Medium: "search", Name: "Finder", Domains: []string{"find.test"}, Parameters: []string{"Q", "query"}},
	}, src.Entries)
	assert.Equal(t, []string{"social", "search"}, src.Media())
}

func TestParseYAMLMatchesJSON(t *testing.T) {
	t.Parallel()

	fromJSON, err := ParseJSON([]byte(orderedJSON))
	require.NoError(t, err)
	fromYAML, err := ParseYAML([]byte(orderedYAML))
	require.NoError(t, err)
	require.Equal(t, fromJSON, fromYAML)
	require.Equal(t, fromJSON.Fingerprint(), fromYAML.Fingerprint())
}

func TestParseDispatchesOnExtension(t *testing.T) {
	t.Parallel()

	src, err := Parse("referers.YML", []byte(orderedYAML))
	require.NoError(t, err)
	require.Equal(t, 3, src.Len())

	src, err = Parse("referers-latest.json", []byte(orderedJSON))
	require.NoError(t, err)
	require.Equal(t, 3, src.Len())

	_, err = Parse("referers.json", []byte(orderedYAML))
	require.ErrorIs(t, err, ErrMalformedSource)
}

func TestParseMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml bool
		data string
	}{
		{name: "json array root", data: `[]`},
		{name: "json medium not object", data: `{"search": ["google.com"]}`},
		{name: "json referer not object", data: `{"search": {"Google": "google.com"}}`},
		{name: "json domains not strings", data: `{"search": {"Google": {"domains": [1, 2]}}}`},
		{name: "json truncated", data: `{"search": {"Google": {"domains": ["google.com"]}`},
		{name: "json trailing data", data: `{} {}`},
		{name: "json empty", data: ``},
		{name: "yaml empty", yaml: true, data: ``},
		{name: "yaml sequence root", yaml: true, data: "- a\n- b\n"},
		{name: "yaml medium not mapping", yaml: true, data: "search: google.com\n"},
		{name: "yaml domains not list", yaml: true, data: "search:\n  Google:\n    domains:\n      a: b\n"},
		{name: "yaml syntax", yaml: true, data: "search: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var err error
			if tt.yaml {
				_, err = ParseYAML([]byte(tt.data))
			} else {
				_, err = ParseJSON([]byte(tt.data))
			}
			require.ErrorIs(t, err, ErrMalformedSource)
		})
	}
}

func TestParseMissingDomainsFailsAtBuild(t *testing.T) {
	t.Parallel()

	src, err := ParseJSON([]byte(`{"search": {"Google": {"parameters": ["q"]}}}`))
	require.NoError(t, err)
	_, err = BuildIndex(src)
	require.ErrorIs(t, err, ErrMalformedSource)
	require.Contains(t, err.Error(), "search/Google")
}

func TestSourceCloneIsDeep(t *testing.T) {
	t.Parallel()

	src, err := ParseJSON([]byte(orderedJSON))
	require.NoError(t, err)
	cp := src.Clone()
	cp.Entries[0].Domains[0] = "changed.test"
	require.Equal(t, "zeta.test", src.Entries[0].Domains[0])
	require.NotEqual(t, src.Fingerprint(), cp.Fingerprint())
}
