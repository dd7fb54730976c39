// Package lda is the production single-chunk estimator. It rebuilds the
// vocabulary under the threshold rule, admits documents, and re-estimates
// topic assignments with latent Dirichlet allocation over a term-document
// matrix of the memory and new documents combined.
package lda

import (
	"fmt"
	"sort"

	"github.com/james-bowman/nlp"
	"gonum.org/v1/gonum/mat"

	"github.com/cran/rollinglda/internal/domain"
	"github.com/cran/rollinglda/internal/vocab"
)

// Config holds the LDA hyperparameters.
type Config struct {
	// K is the number of topics.
	K int
	// Alpha and Eta are the document-topic and topic-word priors recorded on
	// the produced model.
	Alpha float64
	Eta   float64
	// Iterations bounds the fitting passes.
	Iterations int
	// Processes is the worker count for the fit; zero lets the library pick.
	Processes int
}

// Estimator implements domain.ChunkEstimator.
type Estimator struct {
	cfg Config
}

// New creates an estimator. K must be positive unless every FitChunk call
// carries a prior model to inherit it from.
func New(cfg Config) *Estimator {
	if cfg.Iterations <= 0 {
		cfg.Iterations = 200
	}
	return &Estimator{cfg: cfg}
}

// FitChunk rebuilds the vocabulary over memory and new documents, admits new
// documents whose surviving token count exceeds params.DocAbs, and fits an
// LDA model over the surviving set. Memory documents are always retained;
// their token sequences are re-filtered against the rebuilt vocabulary.
func (e *Estimator) FitChunk(prev *domain.TopicModel, memory, newTexts domain.Corpus,
	vocabulary []string, params domain.Parameters) (domain.FitResult, error) {

	k := e.cfg.K
	alpha, eta := e.cfg.Alpha, e.cfg.Eta
	if prev != nil {
		if k == 0 {
			k = prev.K
		}
		if alpha == 0 {
			alpha = prev.Alpha
		}
		if eta == 0 {
			eta = prev.Eta
		}
	}
	if k <= 0 {
		return domain.FitResult{}, &domain.ParameterError{Name: "k", Reason: "number of topics must be positive"}
	}

	newVocab := vocab.Build(params, memory, newTexts)
	if len(newVocab) == 0 {
		return domain.FitResult{}, &domain.ValidationError{Reason: "no tokens survive the vocabulary thresholds"}
	}

	surviving := make(domain.Corpus, len(memory)+len(newTexts))
	nNew, nDiscarded := 0, 0
	for id, tokens := range memory {
		surviving[id] = vocab.Filter(tokens, newVocab)
	}
	for id, tokens := range newTexts {
		kept := vocab.Filter(tokens, newVocab)
		if len(kept) > params.DocAbs {
			surviving[id] = kept
			nNew++
		} else {
			nDiscarded++
		}
	}
	if len(surviving) == 0 {
		return domain.FitResult{}, &domain.ValidationError{Reason: "no documents survive admission"}
	}

	ids := make([]string, 0, len(surviving))
	for id := range surviving {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tdm := termDocumentMatrix(surviving, ids, newVocab)

	model := nlp.NewLatentDirichletAllocation(k)
	model.Iterations = e.cfg.Iterations
	if e.cfg.Processes > 0 {
		model.Processes = e.cfg.Processes
	}
	docsOverTopics, err := model.FitTransform(tdm)
	if err != nil {
		return domain.FitResult{}, fmt.Errorf("lda fit: %w", err)
	}
	topicsOverWords := model.Components()

	assignments := deriveAssignments(surviving, ids, newVocab, docsOverTopics, topicsOverWords)

	return domain.FitResult{
		Model: &domain.TopicModel{
			K:           k,
			Alpha:       alpha,
			Eta:         eta,
			Assignments: assignments,
		},
		Documents:  surviving,
		NNew:       nNew,
		NDiscarded: nDiscarded,
		Vocabulary: newVocab,
	}, nil
}

// termDocumentMatrix builds the terms x documents count matrix the library
// expects: rows index vocabulary entries, columns index documents.
func termDocumentMatrix(docs domain.Corpus, ids []string, vocabulary []string) *mat.Dense {
	index := vocab.Index(vocabulary)
	m := mat.NewDense(len(vocabulary), len(ids), nil)
	for col, id := range ids {
		for _, tok := range docs[id] {
			row := index[tok]
			m.Set(row, col, m.At(row, col)+1)
		}
	}
	return m
}

// deriveAssignments maps every retained token to its most probable topic
// under the fitted distributions: argmax over k of p(topic|doc) * p(word|topic).
func deriveAssignments(docs domain.Corpus, ids []string, vocabulary []string,
	docsOverTopics, topicsOverWords mat.Matrix) map[string][]int {

	index := vocab.Index(vocabulary)
	k, _ := docsOverTopics.Dims()
	out := make(map[string][]int, len(ids))
	for col, id := range ids {
		tokens := docs[id]
		assigned := make([]int, len(tokens))
		for i, tok := range tokens {
			row := index[tok]
			best, bestScore := 0, -1.0
			for topic := 0; topic < k; topic++ {
				score := docsOverTopics.At(topic, col) * topicsOverWords.At(topic, row)
				if score > bestScore {
					best, bestScore = topic, score
				}
			}
			assigned[i] = best
		}
		out[id] = assigned
	}
	return out
}
