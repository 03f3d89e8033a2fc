package classifier

import (
	"context"
	"strings"

	"github.com/crimson-sun/worktally/internal/model"
)

// Rule assigns Category to any subject containing one of Keywords.
type Rule struct {
	Category model.Category
	Keywords []string
}

// Match reports whether text contains any of the rule's keywords.
func (r Rule) Match(text string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// DefaultRules is the fallback keyword table. Order matters: the first
// matching rule wins, so a subject carrying both the development and the
// meeting marker is Development.
func DefaultRules() []Rule {
	return []Rule{
		{Category: model.Development, Keywords: []string{"開発"}},
		{Category: model.Meeting, Keywords: []string{"会", "打ち合わせ", "ミーティング"}},
		{Category: model.Training, Keywords: []string{"研修"}},
		{Category: model.Vacation, Keywords: []string{"有休"}},
	}
}

// Rules is the deterministic keyword classifier used when the learned
// model cannot answer. It never fails.
type Rules struct {
	rules    []Rule
	fallback model.Category
}

// NewRules creates a Rules classifier over the given ordered rules.
// Subjects matching none of them are classified as Other.
func NewRules(rules []Rule) *Rules {
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return &Rules{rules: cp, fallback: model.Other}
}

// Match returns the category of the first rule matching text.
func (r *Rules) Match(text string) model.Category {
	for _, rule := range r.rules {
		if rule.Match(text) {
			return rule.Category
		}
	}
	return r.fallback
}

func (r *Rules) Classify(_ context.Context, text string) (model.Category, error) {
	return r.Match(text), nil
}
