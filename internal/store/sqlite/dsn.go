package sqlite

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

var defaultPragmas = []string{
	"busy_timeout(30000)",
	"foreign_keys(1)",
	"journal_mode(WAL)",
}

// parseDSN converts sqlite://path[?query] into a modernc DSN with the
// pragmas every connection needs.
func parseDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "sqlite://") {
		return "", fmt.Errorf("invalid sqlite DSN scheme, expected sqlite://")
	}

	rest := strings.TrimPrefix(dsn, "sqlite://")
	path, rawQuery, _ := strings.Cut(rest, "?")
	if path == "" {
		return "", fmt.Errorf("sqlite DSN has no path")
	}

	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("parsing query: %w", err)
	}
	for _, pragma := range defaultPragmas {
		query.Add("_pragma", pragma)
	}

	if path != ":memory:" {
		unescaped, err := url.PathUnescape(path)
		if err != nil {
			return "", fmt.Errorf("unescaping path: %w", err)
		}
		path = unescaped
		if !filepath.IsAbs(path) && !strings.HasPrefix(path, "./") {
			path = "./" + path
		}
	}

	return "file:" + path + "?" + query.Encode(), nil
}
