// Package links resolves hrefs found inside rendered documents to canonical
// document paths and in-page fragment targets.
package links

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrUnresolved is returned when a link cannot be mapped to a known document.
var ErrUnresolved = errors.New("link target not found")

// LinkKind classifies an href found in a rendered document.
type LinkKind int

const (
	LinkLocal LinkKind = iota
	LinkExternal
)

func (k LinkKind) String() string {
	if k == LinkExternal {
		return "external"
	}
	return "local"
}

// externalPrefixes are always treated as external, checked case-insensitively.
var externalPrefixes = []string{
	"http://", "https://", "//",
	"mailto:", "tel:",
	"javascript:", "data:",
}

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z\d+.-]*:`)

// ClassifyLink decides whether href points into the local corpus or out of it.
// Scheme checks run before the relative-path checks; anything left over is
// local unless it carries a generic scheme prefix.
func ClassifyLink(href string) LinkKind {
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "file://") {
		return LinkLocal
	}
	for _, prefix := range externalPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return LinkExternal
		}
	}
	if strings.HasPrefix(href, "/") || strings.HasPrefix(href, "./") || strings.HasPrefix(href, "../") {
		return LinkLocal
	}
	if schemePattern.MatchString(href) {
		return LinkExternal
	}
	return LinkLocal
}

// ExternalURL returns the URL to hand to an external opener.
// Protocol-relative hrefs are upgraded to https.
func ExternalURL(href string) string {
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

// NormalizePath collapses "." and ".." segments and drops empty ones.
// ".." at the top is discarded, so the result never escapes the index root.
func NormalizePath(path string) string {
	segments := strings.Split(path, "/")
	stack := make([]string, 0, len(segments))

	for _, segment := range segments {
		switch segment {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		stack = append(stack, segment)
	}

	return strings.Join(stack, "/")
}

// decode percent-decodes s, returning s unchanged when it is not valid
// percent-encoding.
func decode(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// stripSuffixes removes the fragment and query parts of an href.
func stripSuffixes(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if i := strings.IndexByte(href, '?'); i >= 0 {
		href = href[:i]
	}
	return strings.TrimSpace(href)
}

// ResolveLinkedFilePath maps href, found in the document at currentPath, to a
// canonical document path.
//
// file:// links are only resolved against knownPaths: an exact match wins,
// otherwise the first known path (in slice order) that is a whole-segment
// suffix of the link's path, or that ends with the link's path.
// Root-relative and relative links are resolved purely syntactically; whether
// the result exists is the caller's concern.
func ResolveLinkedFilePath(href string, currentPath string, knownPaths []string) (string, bool) {
	rawPath := stripSuffixes(href)
	if rawPath == "" {
		return "", false
	}
	decodedPath := decode(rawPath)

	if strings.HasPrefix(strings.ToLower(decodedPath), "file://") {
		return resolveFileURL(decodedPath, knownPaths)
	}

	if strings.HasPrefix(decodedPath, "/") {
		resolved := NormalizePath(decodedPath[1:])
		return resolved, resolved != ""
	}

	baseDir := ""
	if i := strings.LastIndexByte(currentPath, '/'); i >= 0 {
		baseDir = currentPath[:i]
	}
	joined := decodedPath
	if baseDir != "" {
		joined = baseDir + "/" + decodedPath
	}
	resolved := NormalizePath(joined)
	return resolved, resolved != ""
}

func resolveFileURL(rawURL string, knownPaths []string) (string, bool) {
	fileURL, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	candidate := NormalizePath(strings.TrimLeft(fileURL.Path, "/"))
	if candidate == "" {
		return "", false
	}

	for _, known := range knownPaths {
		if known == candidate {
			return known, true
		}
	}

	for _, known := range knownPaths {
		if suffixMatch(candidate, known) {
			return known, true
		}
	}
	return "", false
}

// suffixMatch reports whether the absolute file path candidate ends with the
// document path known, or known ends with candidate, on segment boundaries.
func suffixMatch(candidate string, known string) bool {
	return strings.HasSuffix(candidate, "/"+known) || strings.HasSuffix(known, "/"+candidate)
}

// MatchingSuffixPaths lists every known path a file:// candidate would match
// by suffix. Used to report ambiguous links.
func MatchingSuffixPaths(rawURL string, knownPaths []string) []string {
	fileURL, err := url.Parse(decode(stripSuffixes(rawURL)))
	if err != nil {
		return nil
	}
	candidate := NormalizePath(strings.TrimLeft(fileURL.Path, "/"))
	if candidate == "" {
		return nil
	}
	var matches []string
	for _, known := range knownPaths {
		if known == candidate || suffixMatch(candidate, known) {
			matches = append(matches, known)
		}
	}
	return matches
}
