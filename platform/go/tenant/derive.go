package tenant

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// FallbackSlug is used when a company name yields no slug characters.
const FallbackSlug = "company"

const maxSlugLen = 48

// Slugify derives a URL-safe slug (lowercase ASCII letters, digits, single dashes) from a display name.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFKD.String(strings.ToLower(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case unicode.Is(unicode.Mn, r):
			// combining accents dropped after decomposition
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		return FallbackSlug
	}
	return slug
}

// Disambiguate appends a short random hex suffix to base.
func Disambiguate(base string) string {
	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("tenant: crypto/rand unavailable: " + err.Error())
	}
	return base + "-" + hex.EncodeToString(buf[:])
}

// DefaultDemoEmailPattern matches demo@… and demo+anything@… addresses.
const DefaultDemoEmailPattern = `(?i)^demo(\+[^@]*)?@`

// DemoMatcher recognises reserved demo-account email addresses.
type DemoMatcher struct {
	re *regexp.Regexp
}

// NewDemoMatcher compiles pattern; an empty pattern uses DefaultDemoEmailPattern.
func NewDemoMatcher(pattern string) (DemoMatcher, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultDemoEmailPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return DemoMatcher{}, err
	}
	return DemoMatcher{re: re}, nil
}

// IsDemo reports whether email is a demo account. The zero matcher matches nothing.
func (m DemoMatcher) IsDemo(email string) bool {
	if m.re == nil {
		return false
	}
	return m.re.MatchString(strings.TrimSpace(email))
}
