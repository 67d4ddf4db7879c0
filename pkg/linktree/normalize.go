package linktree

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var (
	// ErrInvalidURL is returned when a URL cannot be parsed or has no host.
	ErrInvalidURL = errors.New("invalid url")

	// ErrUnsupportedScheme is returned for URLs that are not http or https.
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
)

// Normalizer canonicalizes URLs so that equivalent spellings share one
// node. Implementations must be deterministic and idempotent.
type Normalizer interface {
	// NormalizeURL resolves rawURL against baseURL and returns its canonical
	// form. In strict mode the query string is dropped as well.
	NormalizeURL(rawURL, baseURL string, strict bool) (string, error)

	// ExtractRootDomain returns the registrable domain of hostname.
	ExtractRootDomain(hostname string) string
}

// DefaultNormalizer is the Normalizer used when callers have no crawler
// specific rules of their own.
type DefaultNormalizer struct{}

// NewNormalizer creates a DefaultNormalizer.
func NewNormalizer() *DefaultNormalizer {
	return &DefaultNormalizer{}
}

// NormalizeURL lowercases scheme and host, drops default ports and the
// fragment, cleans the path and removes its trailing slash. Query keys are
// sorted unless strict is set, in which case the query is removed.
func (n *DefaultNormalizer) NormalizeURL(rawURL, baseURL string, strict bool) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if !parsed.IsAbs() && strings.TrimSpace(baseURL) != "" {
		base, err := url.Parse(strings.TrimSpace(baseURL))
		if err != nil {
			return "", fmt.Errorf("%w: base %q: %v", ErrInvalidURL, baseURL, err)
		}
		parsed = base.ResolveReference(parsed)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, parsed.Scheme)
	}

	hostname := strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
	if hostname == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidURL, rawURL)
	}

	port := parsed.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	host := hostname
	switch {
	case port != "":
		host = net.JoinHostPort(hostname, port)
	case strings.Contains(hostname, ":"):
		host = "[" + hostname + "]"
	}

	normalized := url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   cleanPath(parsed.Path),
	}
	if !strict && parsed.RawQuery != "" {
		normalized.RawQuery = parsed.Query().Encode()
	}

	return normalized.String(), nil
}

// ExtractRootDomain returns the eTLD+1 of hostname, or the hostname itself
// when no public suffix applies (IP addresses, localhost).
func (n *DefaultNormalizer) ExtractRootDomain(hostname string) string {
	host := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(hostname)), ".")
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if host == "" || net.ParseIP(host) != nil {
		return host
	}

	root, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return root
}

// cleanPath collapses duplicate slashes and dot segments and strips the
// trailing slash. The bare root path becomes empty.
func cleanPath(p string) string {
	if p == "" || p == "/" {
		return ""
	}
	cleaned := path.Clean("/" + p)
	if cleaned == "/" {
		return ""
	}
	return cleaned
}

// pathSegments splits a URL path into its non-empty segments.
func pathSegments(p string) []string {
	parts := strings.Split(p, "/")
	segments := parts[:0]
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}
