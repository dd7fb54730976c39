// Package topics recomputes the topic matrix from token-topic assignments.
package topics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/cran/rollinglda/internal/domain"
	"github.com/cran/rollinglda/internal/vocab"
)

// Computer implements domain.TopicComputer.
type Computer struct{}

// NewComputer returns a topic-matrix computer.
func NewComputer() *Computer { return &Computer{} }

// ComputeTopics builds the K x V count matrix: entry (k, v) is the number of
// tokens of vocabulary entry v currently assigned to topic k across the
// document store. Tokens outside the vocabulary are ignored.
func (c *Computer) ComputeTopics(assignments map[string][]int, documents domain.Corpus,
	k int, vocabulary []string) (*mat.Dense, error) {

	if k <= 0 {
		return nil, &domain.ParameterError{Name: "k", Reason: "number of topics must be positive"}
	}
	if len(vocabulary) == 0 {
		return nil, &domain.ValidationError{Reason: "empty vocabulary"}
	}
	index := vocab.Index(vocabulary)
	m := mat.NewDense(k, len(vocabulary), nil)
	for id, tokens := range documents {
		assigned, ok := assignments[id]
		if !ok {
			return nil, &domain.ValidationError{Reason: "document " + id + " has no assignments"}
		}
		if len(assigned) != len(tokens) {
			return nil, &domain.ValidationError{Reason: fmt.Sprintf(
				"document %s: %d assignments for %d tokens", id, len(assigned), len(tokens))}
		}
		for i, tok := range tokens {
			col, known := index[tok]
			if !known {
				continue
			}
			topic := assigned[i]
			if topic < 0 || topic >= k {
				return nil, &domain.ValidationError{Reason: fmt.Sprintf(
					"document %s: topic %d out of range [0, %d)", id, topic, k)}
			}
			m.Set(topic, col, m.At(topic, col)+1)
		}
	}
	return m, nil
}

// TopTerms lists, for each topic row of the matrix, the n highest-weight
// vocabulary entries in descending order.
func TopTerms(topics *mat.Dense, vocabulary []string, n int) [][]string {
	if topics == nil {
		return nil
	}
	rows, cols := topics.Dims()
	if cols != len(vocabulary) {
		return nil
	}
	if n > cols {
		n = cols
	}
	out := make([][]string, rows)
	for r := 0; r < rows; r++ {
		idx := make([]int, cols)
		for i := range idx {
			idx[i] = i
		}
		row := topics.RawRowView(r)
		for i := 0; i < n; i++ {
			best := i
			for j := i + 1; j < cols; j++ {
				if row[idx[j]] > row[idx[best]] {
					best = j
				}
			}
			idx[i], idx[best] = idx[best], idx[i]
		}
		terms := make([]string, n)
		for i := 0; i < n; i++ {
			terms[i] = vocabulary[idx[i]]
		}
		out[r] = terms
	}
	return out
}
