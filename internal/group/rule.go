// Package group decides which output subdirectory a post belongs in.
//
// A run carries an ordered list of rules; the first rule that matches a
// post supplies its subdirectory label. Posts no rule matches are saved
// directly under the output root.
package group

import (
	"fmt"
	"strings"

	"e6dl/internal/model"
)

// Kind identifies a grouping strategy.
type Kind int

const (
	// ByPool groups posts under "collection_<id>" of their first pool.
	ByPool Kind = iota

	// ByRating groups posts under their rating name.
	ByRating

	// ByArtist groups posts under their first artist tag.
	ByArtist

	// ByFileType groups posts under their file extension.
	ByFileType

	// ByTag groups posts carrying a specific tag under that tag.
	ByTag
)

// Rule is one grouping rule. The rule set is closed: every rule is one
// of the five kinds above, and only ByTag carries a parameter.
//
// Rules are parsed once at startup and never mutated, so a rule list is
// safe to share across download workers.
type Rule struct {
	Kind Kind

	// Tag is the tag value for ByTag rules; empty otherwise.
	Tag string
}

// Parse parses a rule string from the command line.
//
// Accepted forms:
//
//	pool
//	rating
//	artist
//	filetype
//	tag:<value>
func Parse(s string) (Rule, error) {
	switch {
	case s == "pool":
		return Rule{Kind: ByPool}, nil
	case s == "rating":
		return Rule{Kind: ByRating}, nil
	case s == "artist":
		return Rule{Kind: ByArtist}, nil
	case s == "filetype":
		return Rule{Kind: ByFileType}, nil
	case strings.HasPrefix(s, "tag:"):
		value := strings.TrimPrefix(s, "tag:")
		if value == "" {
			return Rule{}, fmt.Errorf("empty tag in group rule %q", s)
		}
		return Rule{Kind: ByTag, Tag: value}, nil
	default:
		return Rule{}, fmt.Errorf("unknown group rule %q", s)
	}
}

// ParseAll parses a list of rule strings, preserving order.
func ParseAll(specs []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for _, s := range specs {
		rule, err := Parse(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Match reports whether this rule applies to the post.
//
// ByRating and ByFileType always match. ByPool requires pool
// membership, ByArtist at least one artist tag, and ByTag requires the
// tag to appear in any category. A matching rule always has a non-empty
// label source, so Label is safe to call after a true Match.
func (r Rule) Match(post *model.Post) bool {
	switch r.Kind {
	case ByPool:
		return len(post.Pools) > 0
	case ByRating:
		return true
	case ByArtist:
		return len(post.Tags.Artist) > 0
	case ByFileType:
		return true
	case ByTag:
		return post.Tags.Contains(r.Tag)
	default:
		return false
	}
}

// Label returns the subdirectory name for a post this rule matched.
//
// Posts in several pools or with several artist tags are labelled by
// the first entry only.
func (r Rule) Label(post *model.Post) string {
	switch r.Kind {
	case ByPool:
		return fmt.Sprintf("collection_%d", post.Pools[0])
	case ByRating:
		return post.Rating.String()
	case ByArtist:
		return post.Tags.Artist[0]
	case ByFileType:
		return post.File.Ext
	case ByTag:
		return r.Tag
	default:
		return ""
	}
}

// Classify returns the output subdirectory for the post, evaluating the
// rules in order and taking the first match. The second return is false
// when no rule matches, in which case the post belongs directly under
// the output root.
func Classify(rules []Rule, post *model.Post) (string, bool) {
	for _, rule := range rules {
		if rule.Match(post) {
			return rule.Label(post), true
		}
	}
	return "", false
}
