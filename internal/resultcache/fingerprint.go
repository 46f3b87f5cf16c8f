package resultcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Query parameters that never change the underlying video content.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"si":           {},
	"feature":      {},
	"t":            {},
	"ab_channel":   {},
}

// Fingerprint derives a stable content identity from a video URL. Two URLs
// that point at the same video produce the same fingerprint even when they
// differ in scheme casing, tracking parameters, or share-link shape.
func Fingerprint(rawURL string) (string, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:]), nil
}

// NormalizeURL canonicalizes a video URL before hashing. YouTube share links
// collapse to the watch form so youtu.be/ID and watch?v=ID match.
func NormalizeURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("url is empty")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url has no host")
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")

	path := strings.TrimSuffix(parsed.EscapedPath(), "/")
	query := parsed.Query()

	if host == "youtu.be" {
		videoID := strings.Trim(path, "/")
		host = "youtube.com"
		path = "/watch"
		query = url.Values{"v": []string{videoID}}
	}
	if host == "youtube.com" {
		switch {
		case strings.HasPrefix(path, "/shorts/"), strings.HasPrefix(path, "/embed/"), strings.HasPrefix(path, "/live/"):
			parts := strings.Split(strings.Trim(path, "/"), "/")
			if len(parts) >= 2 {
				path = "/watch"
				query = url.Values{"v": []string{parts[1]}}
			}
		case path == "/watch":
			query = url.Values{"v": query["v"]}
		}
	}

	for param := range query {
		if _, tracking := trackingParams[param]; tracking {
			query.Del(param)
		}
	}

	canonical := "https://" + host + path
	if encoded := encodeSorted(query); encoded != "" {
		canonical += "?" + encoded
	}
	return canonical, nil
}

func encodeSorted(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for _, key := range keys {
		for _, value := range values[key] {
			if value == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteByte('&')
			}
			builder.WriteString(url.QueryEscape(key))
			builder.WriteByte('=')
			builder.WriteString(url.QueryEscape(value))
		}
	}
	return builder.String()
}
