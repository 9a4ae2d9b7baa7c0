package referer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnescape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "hot+dogs%21", want: "hot dogs!"},
		{in: "caf%C3%A9", want: "café"},
		{in: "caf%C3%A9%zz", want: "café%zz"},
		{in: "a+b%2", want: "a b%2"},
		{in: "100%", want: "100%"},
		{in: "%%41", want: "%A"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, unescape(tt.in))
		})
	}
}

func TestParseQueryOrderAndRepeats(t *testing.T) {
	t.Parallel()

	got := parseQuery("b=1&a=%zz&b=2&&c&=x")
	require.Equal(t, []queryField{
		{key: "b", values: []string{"1", "2"}},
		{key: "a", values: []string{"%zz"}},
		{key: "c", values: []string{""}},
		{key: "", values: []string{"x"}},
	}, got)
}
