package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const someHash = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

func TestURLIdentity(t *testing.T) {
	id, err := URLIdentity("https://example.com/jobs/42")
	require.NoError(t, err)

	assert.True(t, id.IsURL())
	assert.False(t, id.IsZero())
	assert.Equal(t, "https://example.com/jobs/42", id.URL())
	assert.Empty(t, id.Hash())
	assert.Equal(t, "url:https://example.com/jobs/42", id.String())

	_, err = URLIdentity("   ")
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestHashIdentity(t *testing.T) {
	id, err := HashIdentity(someHash)
	require.NoError(t, err)

	assert.False(t, id.IsURL())
	assert.False(t, id.IsZero())
	assert.Equal(t, someHash, id.Hash())
	assert.Empty(t, id.URL())
	assert.Equal(t, "hash:"+someHash, id.String())

	for _, bad := range []string{
		"",
		"zz86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08", // non-hex
		strings.ToUpper(someHash), // uppercase
		someHash[:63],             // too short
		someHash + "0",            // too long
	} {
		_, err := HashIdentity(bad)
		assert.ErrorIs(t, err, ErrInvariant, "HashIdentity(%q)", bad)
	}
}

func TestIdentityEquality(t *testing.T) {
	a, err := URLIdentity("https://example.com/jobs/42")
	require.NoError(t, err)
	b, err := URLIdentity("https://example.com/jobs/42")
	require.NoError(t, err)
	c, err := URLIdentity("https://example.com/jobs/43")
	require.NoError(t, err)
	h, err := HashIdentity(someHash)
	require.NoError(t, err)

	assert.True(t, a == b)
	assert.False(t, a == c)
	assert.False(t, a == h)

	// usable as a map key
	seen := map[Identity]bool{a: true}
	assert.True(t, seen[b])
	assert.False(t, seen[c])
}

func TestIdentityZero(t *testing.T) {
	var id Identity
	assert.True(t, id.IsZero())
	assert.Empty(t, id.String())
}

func TestIdentityMarshalJSON(t *testing.T) {
	u, err := URLIdentity("https://example.com/jobs/42")
	require.NoError(t, err)
	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{"canonical_url":"https://example.com/jobs/42"}`, string(b))

	h, err := HashIdentity(someHash)
	require.NoError(t, err)
	b, err = json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fallback_hash":"`+someHash+`"}`, string(b))
}
