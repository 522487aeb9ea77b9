package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{
			"https://Example.COM/jobs/42?utm_source=x&b=2&a=1",
			"https://example.com/jobs/42?a=1&b=2",
		},
		{
			"HTTPS://example.com/jobs/42",
			"https://example.com/jobs/42",
		},
		{
			"https://example.com/jobs/42#apply-now",
			"https://example.com/jobs/42",
		},
		{
			"https://example.com/jobs/42?gclid=abc&fbclid=def&ref=tw",
			"https://example.com/jobs/42",
		},
		{
			"https://example.com/jobs?tag=go&tag=backend",
			"https://example.com/jobs?tag=go&tag=backend",
		},
		{
			"  https://example.com/jobs/42  ",
			"https://example.com/jobs/42",
		},
		{
			// Path stays byte-exact; only scheme and host fold case.
			"https://example.com/Jobs/Senior-Engineer",
			"https://example.com/Jobs/Senior-Engineer",
		},
	}
	for _, c := range cases {
		got, ok := CanonicalURL(c.in)
		require.True(t, ok, "CanonicalURL(%q)", c.in)
		assert.Equal(t, c.want, got, "CanonicalURL(%q)", c.in)
	}
}

func TestCanonicalURLRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"example.com/jobs/42",
		"ftp://example.com/jobs/42",
		"mailto:jobs@example.com",
		"https://",
		"://bad",
	} {
		_, ok := CanonicalURL(in)
		assert.False(t, ok, "CanonicalURL(%q) should not be usable", in)
	}
}

func TestCanonicalURLIdempotent(t *testing.T) {
	once, ok := CanonicalURL("https://Example.com/jobs/42?utm_campaign=x&z=1&a=2#frag")
	require.True(t, ok)
	twice, ok := CanonicalURL(once)
	require.True(t, ok)
	assert.Equal(t, once, twice)
}
