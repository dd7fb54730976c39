// Package vocab implements the vocabulary threshold rule applied at every
// chunk step over the combined memory and new documents.
package vocab

import (
	"sort"

	"github.com/cran/rollinglda/internal/domain"
)

// Build counts tokens over the given corpora and returns the surviving
// vocabulary in a stable sorted order. A token is retained iff
//
//	count > params.VocabFallback, or
//	count > params.VocabAbs and count/total > params.VocabRel.
func Build(params domain.Parameters, corpora ...domain.Corpus) []string {
	counts := make(map[string]int)
	total := 0
	for _, c := range corpora {
		for _, tokens := range c {
			for _, tok := range tokens {
				counts[tok]++
				total++
			}
		}
	}
	if total == 0 {
		return nil
	}
	var keep []string
	for tok, n := range counts {
		if n > params.VocabFallback {
			keep = append(keep, tok)
			continue
		}
		if n > params.VocabAbs && float64(n)/float64(total) > params.VocabRel {
			keep = append(keep, tok)
		}
	}
	sort.Strings(keep)
	return keep
}

// Filter restricts a token sequence to the given vocabulary, preserving
// order and multiplicity.
func Filter(tokens domain.Tokens, vocabulary []string) domain.Tokens {
	set := Index(vocabulary)
	out := make(domain.Tokens, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := set[tok]; ok {
			out = append(out, tok)
		}
	}
	return out
}

// Index maps each vocabulary entry to its position.
func Index(vocabulary []string) map[string]int {
	idx := make(map[string]int, len(vocabulary))
	for i, tok := range vocabulary {
		idx[tok] = i
	}
	return idx
}
