package sheet

import (
	"sort"
	"strings"
	"unicode"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// Candidate matching for dropdown and creatable cells. While a cell
// editor is open the typed buffer narrows the option list.
// uses junegunn/fzf's algo package for matching/scoring.
//
// query syntax:
//   "foo"     fuzzy subsequence match
//   "'foo"    exact substring match
//   "^foo"    prefix match
//   "foo$"    suffix match
//   "!foo"    negated fuzzy match
//   "a b"     AND — all space-separated terms must match

func init() {
	algo.Init("default")
}

var matchSlab = util.MakeSlab(100*1024, 2048)

// Query is a pre-parsed candidate query. parse once, score many.
type Query struct {
	terms []queryTerm
}

type queryTerm struct {
	pattern       []rune
	match         algo.Algo
	negated       bool
	caseSensitive bool
}

// ParseQuery parses a raw query string into a reusable Query. Terms with
// an uppercase letter match case-sensitively, everything else folds.
func ParseQuery(raw string) Query {
	var q Query
	for _, tok := range strings.Fields(raw) {
		t := queryTerm{match: algo.FuzzyMatchV2}
		if strings.HasPrefix(tok, "!") {
			t.negated = true
			tok = tok[1:]
		}
		switch {
		case strings.HasPrefix(tok, "'"):
			t.match = algo.ExactMatchNaive
			tok = tok[1:]
		case strings.HasPrefix(tok, "^"):
			t.match = algo.PrefixMatch
			tok = tok[1:]
		case strings.HasSuffix(tok, "$"):
			t.match = algo.SuffixMatch
			tok = strings.TrimSuffix(tok, "$")
		}
		if tok == "" {
			continue
		}
		t.caseSensitive = strings.IndexFunc(tok, unicode.IsUpper) >= 0
		if !t.caseSensitive {
			tok = strings.ToLower(tok)
		}
		t.pattern = []rune(tok)
		q.terms = append(q.terms, t)
	}
	return q
}

// Empty reports whether the query has no terms; an empty query matches
// everything with score 0.
func (q Query) Empty() bool { return len(q.terms) == 0 }

// Score matches text against every term. Higher scores are better
// matches; ok is false when any term rejects the text.
func (q Query) Score(text string) (score int, ok bool) {
	for _, t := range q.terms {
		chars := util.ToChars([]byte(text))
		res, _ := t.match(t.caseSensitive, false, true, &chars, t.pattern, false, matchSlab)
		if t.negated {
			if res.Start >= 0 {
				return 0, false
			}
			continue
		}
		if res.Start < 0 {
			return 0, false
		}
		score += res.Score
	}
	return score, true
}

// FilterOptions narrows a candidate list to the options whose label
// matches the query, best score first. Candidate order breaks ties. An
// empty query returns the list untouched.
func FilterOptions(opts []OptionItem, raw string) []OptionItem {
	q := ParseQuery(raw)
	if q.Empty() {
		return opts
	}
	type scored struct {
		opt   OptionItem
		score int
	}
	var kept []scored
	for _, o := range opts {
		if s, ok := q.Score(o.Label); ok {
			kept = append(kept, scored{opt: o, score: s})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })
	out := make([]OptionItem, len(kept))
	for i, k := range kept {
		out[i] = k.opt
	}
	return out
}

// resolveCandidate maps a typed buffer to a candidate value: an exact
// value wins, otherwise the best-matching candidate, otherwise the
// buffer itself.
func resolveCandidate(opts []OptionItem, buf string) string {
	if buf == "" || hasOption(opts, buf) {
		return buf
	}
	if narrowed := FilterOptions(opts, buf); len(narrowed) > 0 {
		return narrowed[0].Value
	}
	return buf
}
