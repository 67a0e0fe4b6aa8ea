// Package parser turns a raw query string into a QueryPlan of normalized
// terms. Term order and repeats are kept: every occurrence is one scoring
// clause.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/tokenizer"
)

type QueryType int

const (
	QueryAND QueryType = iota
	QueryOR
)

func (t QueryType) String() string {
	if t == QueryOR {
		return "OR"
	}
	return "AND"
}

type QueryPlan struct {
	Terms        []string
	Type         QueryType
	ExcludeTerms []string
	RawQuery     string
}

func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Terms:        make([]string, 0),
		ExcludeTerms: make([]string, 0),
		Type:         QueryAND,
		RawQuery:     query,
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}
	excludeNext := false
	for _, word := range strings.Fields(query) {
		switch strings.ToUpper(word) {
		case "AND":
			plan.Type = QueryAND
			continue
		case "OR":
			plan.Type = QueryOR
			continue
		case "NOT":
			excludeNext = true
			continue
		}
		// "foo-bar" splits into several terms
		terms := tokenizer.Terms(word)
		if len(terms) == 0 {
			continue
		}
		if excludeNext {
			plan.ExcludeTerms = append(plan.ExcludeTerms, terms...)
			excludeNext = false
		} else {
			plan.Terms = append(plan.Terms, terms...)
		}
	}
	return plan
}

// UniqueTerms returns the distinct positive terms in first-seen order.
func (p *QueryPlan) UniqueTerms() []string {
	seen := make(map[string]struct{}, len(p.Terms))
	out := make([]string, 0, len(p.Terms))
	for _, t := range p.Terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Key is a canonical form of the plan for cache lookups. Two raw queries
// that normalize to the same plan share a key.
func (p *QueryPlan) Key() string {
	var b strings.Builder
	b.WriteString(p.Type.String())
	b.WriteByte('|')
	b.WriteString(strings.Join(p.Terms, ","))
	if len(p.ExcludeTerms) > 0 {
		b.WriteString("|NOT:")
		b.WriteString(strings.Join(p.ExcludeTerms, ","))
	}
	return b.String()
}
