package model

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"gonum.org/v1/gonum/mat"

	"github.com/cran/rollinglda/internal/domain"
)

// snapshot is the serialized form of a State. The topic matrix is flattened
// into row slices; assignments and bookkeeping round-trip as-is.
type snapshot struct {
	ID         string               `json:"id"`
	Model      *domain.TopicModel   `json:"model"`
	Topics     [][]float64          `json:"topics,omitempty"`
	Documents  domain.Corpus        `json:"documents"`
	Dates      domain.Dates         `json:"dates"`
	Vocabulary []string             `json:"vocabulary"`
	ChunkLog   []domain.ChunkRecord `json:"chunk_log"`
	Parameters domain.Parameters    `json:"parameters"`
}

// Save writes the state to path as JSON.
func (s *State) Save(path string) error {
	snap := snapshot{
		ID:         s.id,
		Model:      s.model,
		Topics:     s.model.TopicRows(),
		Documents:  s.documents,
		Dates:      s.dates,
		Vocabulary: s.vocabulary,
		ChunkLog:   s.chunkLog,
		Parameters: s.params,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a previously saved state from path.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Model == nil {
		return nil, &domain.ValidationError{Reason: "snapshot has no model"}
	}
	m := snap.Model
	if len(snap.Topics) > 0 {
		rows := len(snap.Topics)
		cols := len(snap.Topics[0])
		dense := mat.NewDense(rows, cols, nil)
		for i, row := range snap.Topics {
			if len(row) != cols {
				return nil, &domain.ValidationError{Reason: "ragged topic matrix in snapshot"}
			}
			dense.SetRow(i, row)
		}
		m = m.WithTopics(dense)
	}
	// Dates arrive as RFC 3339; renormalize to UTC midnight.
	dates := make(domain.Dates, len(snap.Dates))
	for id, d := range snap.Dates {
		dates[id] = domain.Day(d)
	}
	return New(snap.ID, m, snap.Documents, dates, snap.Vocabulary, snap.ChunkLog, snap.Parameters)
}
