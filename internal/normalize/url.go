package normalize

import (
	"net/url"
	"strings"
)

// Query parameters that never distinguish one posting from another.
// utm_* is matched by prefix.
var trackingParams = map[string]bool{
	"gclid":   true,
	"fbclid":  true,
	"msclkid": true,
	"mc_cid":  true,
	"mc_eid":  true,
	"mkt_tok": true,
	"ref":     true,
	"session": true,
	"aff":     true,
}

// CanonicalURL reduces a posting URL to its stable normal form: lowercased
// http/https scheme and host, byte-exact path, no fragment, tracking
// parameters dropped, remaining query re-serialized sorted by key with
// repeated keys preserved. Returns ok=false when the URL cannot serve as an
// identity (unparseable, missing host, or a non-http scheme).
func CanonicalURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}

	u.Scheme = scheme
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || trackingParams[lk] {
			q.Del(k)
		}
	}
	// Encode sorts keys and keeps values of a repeated key in input order.
	u.RawQuery = q.Encode()

	return u.String(), true
}
