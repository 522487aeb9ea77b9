package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Senior Engineer", CleanText("  Senior  Engineer \n"))
	assert.Equal(t, "a b c", CleanText("a\tb\nc"))
	assert.Equal(t, "", CleanText("    "))
}

func TestLooksLikeJunkTitle(t *testing.T) {
	assert.True(t, LooksLikeJunkTitle("View all jobs"))
	assert.True(t, LooksLikeJunkTitle("Apply now"))
	assert.False(t, LooksLikeJunkTitle("Senior Go Engineer"))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", Snippet("short", 10))
	assert.Equal(t, "ab…", Snippet("abcdef", 2))

	long := strings.Repeat("ż", 300)
	got := Snippet(long, 280)
	assert.Equal(t, strings.Repeat("ż", 280)+"…", got)
}
