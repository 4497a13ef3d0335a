// ignore.go decides whether an error class is suppressed entirely.

package errwatch

import (
	"fmt"
	"regexp"
	"strings"
)

// IgnoreRule matches an error class and its ancestors.
type IgnoreRule interface {
	Matches(class string, ancestors []string) bool
}

type nameRule struct {
	name string
}

// IgnoreName ignores errors whose class, or any ancestor class, equals name.
func IgnoreName(name string) IgnoreRule {
	return nameRule{name: name}
}

func (r nameRule) Matches(class string, ancestors []string) bool {
	if r.name == "" {
		return false
	}
	if class == r.name {
		return true
	}
	for _, a := range ancestors {
		if a == r.name {
			return true
		}
	}
	return false
}

// IgnoreType ignores errors of the same class as sample, including classes
// that descend from it.
func IgnoreType(sample error) IgnoreRule {
	class, _ := Classify(sample)
	return nameRule{name: class}
}

type patternRule struct {
	re *regexp.Regexp
}

// IgnorePattern ignores errors whose class name matches re. Ancestors are not
// consulted.
func IgnorePattern(re *regexp.Regexp) IgnoreRule {
	return patternRule{re: re}
}

func (r patternRule) Matches(class string, _ []string) bool {
	return r.re != nil && r.re.MatchString(class)
}

// ParseIgnoreRules converts configured strings into rules. A string wrapped in
// slashes, like "/^Timeout/", becomes a pattern rule; anything else is a name rule.
func ParseIgnoreRules(raw []string) ([]IgnoreRule, error) {
	rules := make([]IgnoreRule, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if len(s) > 2 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/") {
			re, err := regexp.Compile(s[1 : len(s)-1])
			if err != nil {
				return nil, fmt.Errorf("ignore rule %q: %w", s, err)
			}
			rules = append(rules, IgnorePattern(re))
			continue
		}
		rules = append(rules, IgnoreName(s))
	}
	return rules, nil
}

// Ignorer evaluates an ordered list of ignore rules.
type Ignorer struct {
	rules []IgnoreRule
}

// NewIgnorer creates an Ignorer. With no rules nothing is ignored.
func NewIgnorer(rules ...IgnoreRule) *Ignorer {
	return &Ignorer{rules: rules}
}

// ShouldIgnore reports whether any rule matches class or its ancestors.
func (ig *Ignorer) ShouldIgnore(class string, ancestors []string) bool {
	if ig == nil {
		return false
	}
	for _, r := range ig.rules {
		if r.Matches(class, ancestors) {
			return true
		}
	}
	return false
}

// ShouldIgnoreError classifies err and evaluates the rules against it.
func (ig *Ignorer) ShouldIgnoreError(err error) bool {
	class, ancestors := Classify(err)
	return ig.ShouldIgnore(class, ancestors)
}
