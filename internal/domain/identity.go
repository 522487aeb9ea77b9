package domain

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

var fallbackHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Identity is the deduplication key of a posting: either a canonical URL or a
// content hash, never both. The constructors are the only way to build a
// non-zero Identity, so the "both set" state is unrepresentable. The struct is
// comparable; == implements identity equality, which means a URL identity and
// a hash identity never compare equal even when they describe the same
// real-world job.
type Identity struct {
	url  string
	hash string
}

// URLIdentity builds an identity from a canonical URL (see normalize.CanonicalURL).
func URLIdentity(canonical string) (Identity, error) {
	if strings.TrimSpace(canonical) == "" {
		return Identity{}, errors.Wrap(ErrInvariant, "url identity: canonical url is empty")
	}
	return Identity{url: canonical}, nil
}

// HashIdentity builds an identity from a 64-char lowercase hex digest.
func HashIdentity(hash string) (Identity, error) {
	if !fallbackHashPattern.MatchString(hash) {
		return Identity{}, errors.Wrapf(ErrInvariant, "hash identity: %q is not a 64-char lowercase hex digest", hash)
	}
	return Identity{hash: hash}, nil
}

func (id Identity) IsZero() bool { return id.url == "" && id.hash == "" }
func (id Identity) IsURL() bool  { return id.url != "" }

// URL returns the canonical URL, empty for hash identities.
func (id Identity) URL() string { return id.url }

// Hash returns the fallback hash, empty for URL identities.
func (id Identity) Hash() string { return id.hash }

func (id Identity) String() string {
	if id.url != "" {
		return "url:" + id.url
	}
	if id.hash != "" {
		return "hash:" + id.hash
	}
	return ""
}

func (id Identity) MarshalJSON() ([]byte, error) {
	type wire struct {
		CanonicalURL string `json:"canonical_url,omitempty"`
		FallbackHash string `json:"fallback_hash,omitempty"`
	}
	return json.Marshal(wire{CanonicalURL: id.url, FallbackHash: id.hash})
}
