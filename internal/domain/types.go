package domain

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Tokens is the preprocessed token sequence of a single document.
type Tokens []string

// Corpus maps document identifiers to their token sequences.
type Corpus map[string]Tokens

// Dates maps document identifiers to calendar dates (UTC midnight).
type Dates map[string]time.Time

// Day normalizes a timestamp to UTC midnight. All dates handled by this
// module are day-granular; callers may pass arbitrary timestamps.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Parameters are the frequency and size thresholds used to rebuild the
// vocabulary and admit documents at every chunk step. They are persisted on
// the model so later updates can inherit them.
type Parameters struct {
	// VocabAbs is the absolute count a token must exceed together with the
	// relative threshold.
	VocabAbs int `json:"vocab_abs"`
	// VocabRel is the relative frequency (count / total tokens) a token must
	// exceed together with the absolute threshold.
	VocabRel float64 `json:"vocab_rel"`
	// VocabFallback is the count beyond which a token is always retained,
	// regardless of its relative frequency.
	VocabFallback int `json:"vocab_fallback"`
	// DocAbs is the number of surviving tokens a document must exceed to be
	// admitted after vocabulary filtering.
	DocAbs int `json:"doc_abs"`
}

// DefaultParameters returns the standard thresholds.
func DefaultParameters() Parameters {
	return Parameters{VocabAbs: 5, VocabRel: 0, VocabFallback: 100, DocAbs: 0}
}

// Validate checks the documented numeric bounds.
func (p Parameters) Validate() error {
	if p.VocabAbs < 0 {
		return &ParameterError{Name: "vocab_abs", Reason: fmt.Sprintf("must be >= 0, got %d", p.VocabAbs)}
	}
	if p.VocabRel < 0 || p.VocabRel > 1 {
		return &ParameterError{Name: "vocab_rel", Reason: fmt.Sprintf("must be in [0, 1], got %g", p.VocabRel)}
	}
	if p.VocabFallback < 0 {
		return &ParameterError{Name: "vocab_fallback", Reason: fmt.Sprintf("must be >= 0, got %d", p.VocabFallback)}
	}
	if p.DocAbs < 0 {
		return &ParameterError{Name: "doc_abs", Reason: fmt.Sprintf("must be >= 0, got %d", p.DocAbs)}
	}
	return nil
}

// ChunkRecord is one row of the per-chunk audit table.
type ChunkRecord struct {
	ChunkID    int       `json:"chunk_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	MemoryDate time.Time `json:"memory_date"`
	NNew       int       `json:"n_new"`
	NDiscarded int       `json:"n_discarded"`
	NMemory    int       `json:"n_memory"`
	NVocab     int       `json:"n_vocab"`
}

// TopicModel is the latent estimator state: per-token topic assignments plus
// the hyperparameters they were sampled under. Topics, when present, is the
// K x V topic-count matrix over the vocabulary active at computation time.
type TopicModel struct {
	K           int              `json:"k"`
	Alpha       float64          `json:"alpha"`
	Eta         float64          `json:"eta"`
	Assignments map[string][]int `json:"assignments"`
	Topics      *mat.Dense       `json:"-"`
}

// WithTopics returns a copy of the model carrying the given topic matrix.
// Assignments are shared; they are never mutated in place.
func (m *TopicModel) WithTopics(topics *mat.Dense) *TopicModel {
	c := *m
	c.Topics = topics
	return &c
}

// TopicRows flattens the topic matrix into row slices, or nil when no matrix
// has been computed. Used for serialization and display.
func (m *TopicModel) TopicRows() [][]float64 {
	if m.Topics == nil {
		return nil
	}
	r, c := m.Topics.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		rows[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			rows[i][j] = m.Topics.At(i, j)
		}
	}
	return rows
}

// FitResult is what the single-chunk estimator hands back: the re-estimated
// latent model, the surviving documents (memory union newly accepted, token
// sequences filtered to the rebuilt vocabulary), admission counts, and the
// rebuilt vocabulary itself.
type FitResult struct {
	Model      *TopicModel
	Documents  Corpus
	NNew       int
	NDiscarded int
	Vocabulary []string
}
