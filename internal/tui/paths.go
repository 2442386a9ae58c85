package tui

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// splitPaths tokenizes what a terminal inserts when files are dropped or
// typed: whitespace-separated paths, optionally quoted, with backslash
// escapes, or file:// URIs.
func splitPaths(input string) []string {
	var (
		paths   []string
		current strings.Builder
		quote   rune
		escaped bool
		pending bool
	)
	flush := func() {
		if pending {
			paths = append(paths, normalizePath(current.String()))
		}
		current.Reset()
		pending = false
	}
	for _, r := range input {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			pending = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			pending = true
		case unicode.IsSpace(r):
			flush()
		default:
			current.WriteRune(r)
			pending = true
		}
	}
	flush()

	out := paths[:0]
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizePath(raw string) string {
	if strings.HasPrefix(raw, "file://") {
		if u, err := url.Parse(raw); err == nil && u.Path != "" {
			raw = u.Path
		}
	}
	if raw == "~" || strings.HasPrefix(raw, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			raw = filepath.Join(home, strings.TrimPrefix(raw, "~"))
		}
	}
	return raw
}
