// internal/models/url.go
package models

import (
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes a URL for deduplication: lowercases the scheme
// and host, drops fragments and tracking parameters, and trims the trailing
// slash. Unparseable input falls back to a trimmed lowercase string so that
// deduplication still has a stable key.
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimRight(strings.TrimSpace(raw), "/"))
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for key := range q {
		if strings.HasPrefix(strings.ToLower(key), "utm_") || key == "ref" {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	u.Path = strings.TrimRight(u.Path, "/")

	return u.String()
}
