package update

import (
	"github.com/google/uuid"

	"github.com/cran/rollinglda/internal/domain"
	"github.com/cran/rollinglda/internal/model"
)

// InitRequest carries the initial, non-incremental fit that creates a model.
type InitRequest struct {
	// ID identifies the model; a random identifier is generated when empty.
	ID string
	// Texts maps document identifiers to token sequences.
	Texts domain.Corpus
	// Dates maps the same identifiers to calendar dates.
	Dates domain.Dates
	// Parameters are the vocabulary and admission thresholds; they are
	// persisted on the model and inherited by later updates.
	Parameters domain.Parameters
	// ComputeTopics computes the topic matrix right after the fit.
	ComputeTopics bool
}

// NewModel runs the initial fit over the warmup corpus and produces the
// first ModelState. The estimator is invoked with an empty memory set and no
// prior vocabulary; chunk record 0 carries a zero memory date.
func (c *Controller) NewModel(req InitRequest) (*model.State, error) {
	if err := req.Parameters.Validate(); err != nil {
		return nil, err
	}
	if len(req.Texts) == 0 {
		return nil, &domain.ValidationError{Reason: "no documents for initial fit"}
	}
	if len(req.Texts) != len(req.Dates) {
		return nil, &domain.ValidationError{Reason: "texts and dates index different identifiers"}
	}
	dates := make(domain.Dates, len(req.Dates))
	for id := range req.Texts {
		d, ok := req.Dates[id]
		if !ok {
			return nil, &domain.ValidationError{Reason: "document " + id + " has no date"}
		}
		dates[id] = domain.Day(d)
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	fit, err := c.exec.estimator.FitChunk(nil, nil, req.Texts, nil, req.Parameters)
	if err != nil {
		return nil, err
	}

	admittedDates := make(domain.Dates, len(fit.Documents))
	for docID := range fit.Documents {
		d, ok := dates[docID]
		if !ok {
			return nil, &domain.ValidationError{Reason: "estimator returned unknown document " + docID}
		}
		admittedDates[docID] = d
	}
	start, end := dateSpan(admittedDates)
	record := domain.ChunkRecord{
		ChunkID:    0,
		StartDate:  start,
		EndDate:    end,
		NNew:       fit.NNew,
		NDiscarded: fit.NDiscarded,
		NMemory:    0,
		NVocab:     len(fit.Vocabulary),
	}

	state, err := model.New(id, fit.Model, fit.Documents, admittedDates,
		fit.Vocabulary, []domain.ChunkRecord{record}, req.Parameters)
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("model_id", id).
		Int("n_docs", state.NDocs()).Int("n_vocab", len(fit.Vocabulary)).
		Msg("initial model fitted")

	if req.ComputeTopics {
		return c.recomputeTopics(state)
	}
	return state, nil
}
