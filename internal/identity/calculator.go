// Package identity derives the deduplication key of a posting.
package identity

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/cockroachdb/errors"

	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/normalize"
)

// Unit separator between hash payload fields, so "ab"+"c" and "a"+"bc"
// digest differently. Together with sha256 this is part of the stored
// identity contract: changing either orphans every identity already on disk.
const payloadSep = "\x1f"

// Calculator computes identities. URLs win when usable: they stay stable
// across re-scrapes even when the descriptive text drifts. Only postings
// without a usable URL fall back to a content hash over the normalized
// company/title/location triple.
//
// A posting that acquires a URL on a later scrape gets a new, unrelated
// identity; URL and hash identities are never reconciled.
type Calculator struct{}

func NewCalculator() *Calculator { return &Calculator{} }

// Calculate returns the same identity for the same posting, across calls and
// across process restarts. It fails only on a nil posting.
func (c *Calculator) Calculate(p *domain.JobPosting) (domain.Identity, error) {
	if p == nil {
		return domain.Identity{}, errors.Wrap(domain.ErrInvalidInput, "calculate identity: nil posting")
	}

	if canonical, ok := normalize.CanonicalURL(p.URL); ok {
		return domain.URLIdentity(canonical)
	}

	payload := normalize.Company(p.Company) +
		payloadSep + normalize.Title(p.Title) +
		payloadSep + normalize.Location(p.Location)
	sum := sha256.Sum256([]byte(payload))
	return domain.HashIdentity(hex.EncodeToString(sum[:]))
}
