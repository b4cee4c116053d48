package shortcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Run("negative length", func(t *testing.T) {
		code, err := Generate(-1)

		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrNegativeLength)
		assert.Empty(t, code)
	})

	t.Run("zero length", func(t *testing.T) {
		code, err := Generate(0)

		assert.NoError(t, err)
		assert.Equal(t, "", code)
	})

	t.Run("exact length", func(t *testing.T) {
		for _, n := range []int{1, 3, DefaultLength, 12, 64} {
			code, err := Generate(n)

			require.NoError(t, err)
			assert.Len(t, code, n)
		}
	})

	t.Run("url safe alphabet", func(t *testing.T) {
		code, err := Generate(256)
		require.NoError(t, err)

		for _, r := range code {
			assert.True(t, strings.ContainsRune(Alphabet, r), "unexpected rune %q", r)
		}
	})

	t.Run("rarely collides", func(t *testing.T) {
		seen := make(map[string]struct{}, 1000)

		for i := 0; i < 1000; i++ {
			code, err := Generate(DefaultLength)
			require.NoError(t, err)
			seen[code] = struct{}{}
		}

		assert.GreaterOrEqual(t, len(seen), 950)
	})
}

func TestAlphabet(t *testing.T) {
	assert.Len(t, Alphabet, 64)
}

func TestIsValidCustom(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{name: "too short", code: "ab", want: false},
		{name: "min length", code: "abc", want: true},
		{name: "max length", code: strings.Repeat("a", 20), want: true},
		{name: "too long", code: strings.Repeat("a", 21), want: false},
		{name: "empty", code: "", want: false},
		{name: "mixed case and digits", code: "GitHub2024", want: true},
		{name: "hyphen", code: "my-link", want: false},
		{name: "underscore", code: "my_link", want: false},
		{name: "space", code: "my link", want: false},
		{name: "non ascii", code: "ссылка", want: false},
		{name: "reserved api", code: "api", want: false},
		{name: "reserved uppercase", code: "ADMIN", want: false},
		{name: "reserved mixed case", code: "DashBoard", want: false},
		{name: "reserved www", code: "www", want: false},
		{name: "reserved app", code: "app", want: false},
		{name: "reserved health", code: "health", want: false},
		{name: "reserved status", code: "status", want: false},
		{name: "contains reserved word", code: "apptest", want: true},
		{name: "github", code: "github", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidCustom(tt.code))
		})
	}
}
