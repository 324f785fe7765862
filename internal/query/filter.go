// Package query turns listing request parameters into store queries: a
// Filter over item fields and a Page window over the sorted result.
package query

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SQLLowerFunc is the Unicode-aware lower() the SQL clause calls. SQLite's
// built-in lower() folds ASCII only, so the store registers this function
// on every connection.
const SQLLowerFunc = "unicode_lower"

// Filter restricts a listing. An empty field is not applied; an empty
// Filter matches every item.
type Filter struct {
	Category string
	// Keyword is matched case-insensitively as a literal substring of the
	// title or the description.
	Keyword string
}

// NewFilter builds a Filter from raw request values.
func NewFilter(category, keyword string) Filter {
	return Filter{
		Category: strings.TrimSpace(category),
		Keyword:  strings.TrimSpace(keyword),
	}
}

// IsEmpty reports whether the filter matches everything.
func (f Filter) IsEmpty() bool {
	return f.Category == "" && f.Keyword == ""
}

// Match evaluates the filter against plain field values.
func (f Filter) Match(category, title, description string) bool {
	if f.Category != "" && category != f.Category {
		return false
	}
	if f.Keyword == "" {
		return true
	}
	keyword := strings.ToLower(f.Keyword)
	return strings.Contains(strings.ToLower(title), keyword) ||
		strings.Contains(strings.ToLower(description), keyword)
}

// SQL returns the WHERE condition (without the WHERE keyword) and its arguments. The
// clause is empty when the filter is empty.
func (f Filter) SQL() (string, []any) {
	conditions := make([]string, 0, 2)
	args := make([]any, 0, 3)

	if f.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, f.Category)
	}
	if f.Keyword != "" {
		like := "%" + escapeLike(strings.ToLower(f.Keyword)) + "%"
		conditions = append(conditions, "("+SQLLowerFunc+`(title) LIKE ? ESCAPE '\' OR `+SQLLowerFunc+`(description) LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}

	return strings.Join(conditions, " AND "), args
}

// BSON returns the equivalent MongoDB filter document.
func (f Filter) BSON() bson.M {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Keyword != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Keyword), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}
	return filter
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
