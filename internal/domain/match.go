package domain

import (
	"sort"
	"strings"
)

// DefaultMatchThreshold is the minimum token-set similarity a fuzzy candidate
// must reach to be accepted as the match. Below it the result carries only
// alternatives for caller disambiguation.
const DefaultMatchThreshold = 0.3

// maxAlternatives caps how many runner-up candidates a MatchResult reports.
const maxAlternatives = 3

// MatchCase resolves a free-text case name against the reference table.
// Resolution order: exact canonical match (score 1.0), then token-set Jaccard
// similarity over all keys, ranked descending with ties broken by shorter key
// then lexical order. threshold ≤ 0 falls back to DefaultMatchThreshold.
func MatchCase(query string, table *CaseTable, threshold float64) MatchResult {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	result := MatchResult{Query: query}

	canonical := CanonicalName(query)
	if canonical == "" || table == nil || table.Len() == 0 {
		return result
	}

	if c, ok := table.Lookup(canonical); ok {
		result.Case = c
		result.Score = 1.0
		result.Exact = true
		return result
	}

	queryTokens := tokenSet(canonical)
	scored := make([]Candidate, 0, table.Len())
	for _, key := range table.Keys() {
		scored = append(scored, Candidate{Name: key, Score: jaccard(queryTokens, tokenSet(key))})
	}

	// Deterministic ranking: score descending, then shorter reference key,
	// then lexical. Keys() is already sorted, so equal (score, length) pairs
	// stay in lexical order under stable sort.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return len(scored[i].Name) < len(scored[j].Name)
	})

	best := scored[0]
	if best.Score > threshold {
		c, _ := table.Lookup(best.Name)
		result.Case = c
		result.Score = best.Score
		result.Alternatives = displayCandidates(table, scored[1:])
	} else {
		result.Score = best.Score
		result.Alternatives = displayCandidates(table, scored)
	}
	return result
}

// displayCandidates maps ranked canonical keys back to display names and
// keeps the top scoring few that have any overlap at all.
func displayCandidates(table *CaseTable, ranked []Candidate) []Candidate {
	out := make([]Candidate, 0, maxAlternatives)
	for _, cand := range ranked {
		if cand.Score <= 0 {
			break
		}
		c, _ := table.Lookup(cand.Name)
		out = append(out, Candidate{Name: c.Name, Score: cand.Score})
		if len(out) == maxAlternatives {
			break
		}
	}
	return out
}

// tokenSet splits a canonical string into its unique whitespace tokens.
func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

// jaccard is intersection-over-union of two token sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
