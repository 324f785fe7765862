package cache

import (
	"regexp"
	"strings"
)

// Pattern selects cache keys for bulk invalidation. The zero value matches
// nothing; build one with Prefix or Regexp.
type Pattern struct {
	prefix string
	re     *regexp.Regexp
}

// Prefix matches every key that starts with p.
func Prefix(p string) Pattern {
	return Pattern{prefix: p}
}

// Regexp matches every key accepted by the regular expression expr.
func Regexp(expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, err
	}
	return Pattern{re: re}, nil
}

// Match reports whether key is selected by the pattern.
func (p Pattern) Match(key string) bool {
	if p.re != nil {
		return p.re.MatchString(key)
	}
	return p.prefix != "" && strings.HasPrefix(key, p.prefix)
}

func (p Pattern) String() string {
	if p.re != nil {
		return p.re.String()
	}
	return "^" + regexp.QuoteMeta(p.prefix)
}

// scanGlob returns the Redis SCAN MATCH argument that narrows candidates for
// the pattern. Regexp patterns scan everything and filter with Match.
func (p Pattern) scanGlob() string {
	if p.re != nil {
		return "*"
	}
	var b strings.Builder
	for _, r := range p.prefix {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('*')
	return b.String()
}
