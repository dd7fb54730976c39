package domain

import "gonum.org/v1/gonum/mat"

// ChunkEstimator performs the single-chunk fit: given the current latent
// model, the memory documents and the new (already tokenized) texts, it
// rebuilds the vocabulary under the threshold rule, decides document
// admission, and re-estimates topic assignments.
//
// Implementations must be deterministic in their admission decisions: a new
// document is admitted iff its token count after vocabulary filtering
// exceeds params.DocAbs.
type ChunkEstimator interface {
	FitChunk(model *TopicModel, memory Corpus, newTexts Corpus, vocabulary []string, params Parameters) (FitResult, error)
}

// TopicComputer derives the K x V topic matrix from final token-topic
// assignments, the document store, and the active vocabulary.
type TopicComputer interface {
	ComputeTopics(assignments map[string][]int, documents Corpus, k int, vocabulary []string) (*mat.Dense, error)
}
