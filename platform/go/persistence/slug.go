package persistence

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxSlugLength bounds tenant slugs so they stay usable as URL path segments and DNS labels.
const MaxSlugLength = 63

// ErrInvalidSlug is returned for slugs outside the canonical pattern.
var ErrInvalidSlug = errors.New("invalid slug")

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// NormalizeSlug trims whitespace, lowercases the value, and ensures it matches
// the canonical URL-safe slug pattern required before a slug is persisted.
func NormalizeSlug(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", fmt.Errorf("%w: slug is required", ErrInvalidSlug)
	}

	normalized := strings.ToLower(trimmed)
	if len(normalized) > MaxSlugLength {
		return "", fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidSlug, input, MaxSlugLength)
	}
	if !slugPattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: %q must match ^[a-z0-9]+(?:-[a-z0-9]+)*$", ErrInvalidSlug, input)
	}

	return normalized, nil
}
