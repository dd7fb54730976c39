package update

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/cran/rollinglda/internal/domain"
	"github.com/cran/rollinglda/internal/model"
	"github.com/cran/rollinglda/internal/window"
)

// Controller orchestrates multi-chunk rolling updates. It resolves chunk and
// memory windows, folds the step executor over the chunk boundaries in
// temporal order, and optionally recomputes the topic matrix once at the end.
type Controller struct {
	exec   *Executor
	topics domain.TopicComputer
	log    zerolog.Logger
}

// NewController wires a controller to its collaborators. topics may be nil
// when no request will ask for topic recomputation.
func NewController(estimator domain.ChunkEstimator, topics domain.TopicComputer, log zerolog.Logger) *Controller {
	return &Controller{exec: NewExecutor(estimator, log), topics: topics, log: log}
}

// Request carries one rolling update: new texts against their dates, the
// chunk and memory specifications, and optional overrides.
type Request struct {
	// Texts maps document identifiers to token sequences.
	Texts domain.Corpus
	// Dates maps the same identifiers to calendar dates.
	Dates domain.Dates
	// Chunks partitions the new documents; zero value means one chunk.
	Chunks window.Spec
	// Memory selects the per-chunk memory cutoff. Required.
	Memory window.MemorySpec
	// Parameters override the thresholds; nil inherits the model's stored
	// parameter record.
	Parameters *domain.Parameters
	// ComputeTopics recomputes the topic matrix after the final chunk. It
	// defaults to off so a zero-value request stays cheap; callers wanting
	// the matrix on every update must set it each time.
	ComputeTopics bool
	// MemoryFallback, when positive, replaces an empty memory window with the
	// date of the n-th most recent retained document.
	MemoryFallback int
}

// Update applies the request to the state and returns the successor.
//
// Validation failures abort before the first chunk, leaving the caller's
// state untouched. Once a chunk has committed, a fatal error in a later
// chunk returns the partially advanced state together with the error; the
// caller still holds the untouched pre-call value.
func (c *Controller) Update(state *model.State, req Request) (*model.State, error) {
	params := state.Parameters()
	if req.Parameters != nil {
		params = *req.Parameters
	}
	if err := params.Validate(); err != nil {
		return state, err
	}

	if len(req.Texts) == 0 {
		// One skip diagnostic, state unchanged.
		res, err := c.exec.Step(state, nil, nil, time.Time{}, params, req.MemoryFallback)
		if err != nil {
			return state, err
		}
		return res.State, nil
	}
	if len(req.Texts) != len(req.Dates) {
		return state, &domain.ValidationError{Reason: "texts and dates index different identifiers"}
	}
	for id := range req.Texts {
		if _, ok := req.Dates[id]; !ok {
			return state, &domain.ValidationError{Reason: "document " + id + " has no date"}
		}
	}

	existing := dateValues(state.Dates())
	incoming := dateValues(req.Dates)
	win, err := window.Resolve(existing, incoming, req.Chunks, req.Memory)
	if err != nil {
		return state, err
	}

	n := win.N()
	remaining := make(domain.Dates, len(req.Dates))
	for id, d := range req.Dates {
		remaining[id] = domain.Day(d)
	}

	for i := 0; i < n; i++ {
		upper := win.Chunks[i+1]
		texts := make(domain.Corpus)
		dates := make(domain.Dates)
		for id, d := range remaining {
			if d.Before(upper) {
				texts[id] = req.Texts[id]
				dates[id] = d
				delete(remaining, id)
			}
		}

		c.log.Info().Int("chunk", i+1).Int("total", n).
			Time("from", win.Chunks[i]).Time("to", upper.AddDate(0, 0, -1)).
			Msg("fitting chunk")

		res, err := c.exec.Step(state, texts, dates, win.Memory[i], params, req.MemoryFallback)
		if err != nil {
			return state, err
		}
		state = res.State
	}

	if req.ComputeTopics {
		state, err = c.recomputeTopics(state)
		if err != nil {
			return state, err
		}
	}
	return state, nil
}

func (c *Controller) recomputeTopics(state *model.State) (*model.State, error) {
	if c.topics == nil {
		return state, &domain.ValidationError{Reason: "no topic computer configured"}
	}
	tm := state.Model()
	topics, err := c.topics.ComputeTopics(tm.Assignments, state.Documents(), tm.K, state.Vocabulary())
	if err != nil {
		return state, err
	}
	return state.WithTopics(topics), nil
}

func dateValues(d domain.Dates) []time.Time {
	out := make([]time.Time, 0, len(d))
	for _, v := range d {
		out = append(out, v)
	}
	return out
}
