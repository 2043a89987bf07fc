package blogapi

import (
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogapi/internal/apperr"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// BuildURL joins a base URL with path segments.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// paramID parses a positive integer path parameter.
func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.E(apperr.Validation, "%s must be a positive integer", name)
	}
	return id, nil
}

// queryIDs collects a repeated integer query parameter (?tag_ids=1&tag_ids=2).
// Comma separated values are accepted too.
func queryIDs(c echo.Context, name string) ([]int64, error) {
	var ids []int64
	for _, raw := range c.QueryParams()[name] {
		for _, part := range FilterEmpty(strings.Split(raw, ",")) {
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, apperr.E(apperr.Validation, "%s must contain positive integers", name)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(c echo.Context, name string) (*int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperr.E(apperr.Validation, "%s must be an integer", name)
	}
	return &n, nil
}

// pagination reads skip and limit, defaulting to 0 and 10.
func pagination(c echo.Context) (skip, limit int, err error) {
	s, err := queryInt(c, "skip")
	if err != nil {
		return 0, 0, err
	}
	l, err := queryInt(c, "limit")
	if err != nil {
		return 0, 0, err
	}
	skip, limit = 0, defaultLimit
	if s != nil {
		if *s < 0 {
			return 0, 0, apperr.E(apperr.Validation, "skip must not be negative")
		}
		skip = *s
	}
	if l != nil {
		if *l < 1 || *l > maxLimit {
			return 0, 0, apperr.E(apperr.Validation, "limit must be between 1 and %d", maxLimit)
		}
		limit = *l
	}
	return skip, limit, nil
}
