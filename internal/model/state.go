// Package model holds the ModelState aggregate: the topic model as of now,
// together with its document store, date index, vocabulary, audit table and
// parameter record. A State is never mutated; every update produces a
// distinct successor.
package model

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/cran/rollinglda/internal/domain"
)

// State is the immutable model aggregate.
type State struct {
	id         string
	model      *domain.TopicModel
	documents  domain.Corpus
	dates      domain.Dates
	vocabulary []string
	chunkLog   []domain.ChunkRecord
	params     domain.Parameters
}

// New assembles a State, validating that the document store and the date
// index cover exactly the same identifiers.
func New(id string, m *domain.TopicModel, docs domain.Corpus, dates domain.Dates,
	vocabulary []string, chunkLog []domain.ChunkRecord, params domain.Parameters) (*State, error) {

	if id == "" {
		return nil, &domain.ValidationError{Reason: "empty model id"}
	}
	if m == nil {
		return nil, &domain.ValidationError{Reason: "nil topic model"}
	}
	if len(docs) != len(dates) {
		return nil, &domain.ValidationError{Reason: "documents and dates index different identifiers"}
	}
	for docID := range docs {
		if _, ok := dates[docID]; !ok {
			return nil, &domain.ValidationError{Reason: "document " + docID + " has no date"}
		}
	}
	return &State{
		id:         id,
		model:      m,
		documents:  copyCorpus(docs),
		dates:      copyDates(dates),
		vocabulary: append([]string(nil), vocabulary...),
		chunkLog:   append([]domain.ChunkRecord(nil), chunkLog...),
		params:     params,
	}, nil
}

// ID returns the immutable model identifier.
func (s *State) ID() string { return s.id }

// Model returns the latent topic model.
func (s *State) Model() *domain.TopicModel { return s.model }

// Documents returns a copy of the document store.
func (s *State) Documents() domain.Corpus { return copyCorpus(s.documents) }

// Dates returns a copy of the date index.
func (s *State) Dates() domain.Dates { return copyDates(s.dates) }

// Vocabulary returns a copy of the active vocabulary.
func (s *State) Vocabulary() []string { return append([]string(nil), s.vocabulary...) }

// ChunkLog returns a copy of the per-chunk audit table.
func (s *State) ChunkLog() []domain.ChunkRecord {
	return append([]domain.ChunkRecord(nil), s.chunkLog...)
}

// Parameters returns the threshold record of the most recent chunk step.
func (s *State) Parameters() domain.Parameters { return s.params }

// NDocs returns the number of documents currently retained.
func (s *State) NDocs() int { return len(s.documents) }

// MaxDate returns the latest document date in the model.
func (s *State) MaxDate() time.Time {
	var m time.Time
	for _, d := range s.dates {
		if d.After(m) {
			m = d
		}
	}
	return m
}

// NextChunkID returns the identifier the next chunk record will carry.
func (s *State) NextChunkID() int {
	if len(s.chunkLog) == 0 {
		return 0
	}
	return s.chunkLog[len(s.chunkLog)-1].ChunkID + 1
}

// Advance produces the successor state of one applied chunk step. The record
// is appended to the audit table; everything else is replaced wholesale.
func (s *State) Advance(m *domain.TopicModel, docs domain.Corpus, dates domain.Dates,
	vocabulary []string, record domain.ChunkRecord, params domain.Parameters) (*State, error) {

	log := make([]domain.ChunkRecord, 0, len(s.chunkLog)+1)
	log = append(log, s.chunkLog...)
	log = append(log, record)
	return New(s.id, m, docs, dates, vocabulary, log, params)
}

// WithTopics produces a successor whose latent model carries the given topic
// matrix; all bookkeeping is shared unchanged.
func (s *State) WithTopics(topics *mat.Dense) *State {
	c := *s
	c.model = s.model.WithTopics(topics)
	return &c
}

func copyCorpus(c domain.Corpus) domain.Corpus {
	out := make(domain.Corpus, len(c))
	for id, tokens := range c {
		out[id] = append(domain.Tokens(nil), tokens...)
	}
	return out
}

func copyDates(d domain.Dates) domain.Dates {
	out := make(domain.Dates, len(d))
	for id, date := range d {
		out[id] = date
	}
	return out
}
