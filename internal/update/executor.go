// Package update drives incremental model updates: the single-chunk step
// executor and the multi-chunk rolling controller built on top of it.
package update

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/cran/rollinglda/internal/domain"
	"github.com/cran/rollinglda/internal/model"
)

// StepOutcome tags the result of a single chunk step.
type StepOutcome int

const (
	// StepApplied means the estimator ran and a successor state was produced.
	StepApplied StepOutcome = iota
	// StepSkippedEmpty means the chunk held no new documents.
	StepSkippedEmpty
	// StepSkippedNoMemory means no retained document fell inside the memory
	// window and no fallback was configured.
	StepSkippedNoMemory
)

func (o StepOutcome) String() string {
	switch o {
	case StepApplied:
		return "applied"
	case StepSkippedEmpty:
		return "skipped: empty chunk"
	case StepSkippedNoMemory:
		return "skipped: no memory"
	}
	return "unknown"
}

// StepResult is the tagged outcome of one chunk step. State is the successor
// on StepApplied and the unchanged input state on either skip. MemoryDate is
// the cutoff actually used, after any fallback.
type StepResult struct {
	State           *model.State
	Outcome         StepOutcome
	MemoryDate      time.Time
	FallbackApplied bool
}

// Executor performs one atomic chunk update against a ModelState.
type Executor struct {
	estimator domain.ChunkEstimator
	log       zerolog.Logger
}

// NewExecutor wires an executor to the single-chunk estimator. Diagnostics
// are emitted on log; pass zerolog.Nop() to silence them.
func NewExecutor(estimator domain.ChunkEstimator, log zerolog.Logger) *Executor {
	return &Executor{estimator: estimator, log: log}
}

// Step applies one chunk of new documents to the state.
//
// Validation failures (ParameterError, ValidationError, DateRangeError,
// MemoryRangeError) are returned before anything is computed. An empty chunk
// and an empty memory window without fallback are not errors: the input
// state is returned unchanged under the corresponding skip outcome, with a
// structured diagnostic emitted.
func (e *Executor) Step(state *model.State, newTexts domain.Corpus, newDates domain.Dates,
	memoryDate time.Time, params domain.Parameters, memoryFallback int) (StepResult, error) {

	if err := params.Validate(); err != nil {
		return StepResult{}, err
	}
	if memoryFallback < 0 {
		return StepResult{}, &domain.ParameterError{Name: "memory_fallback",
			Reason: fmt.Sprintf("must be >= 0, got %d", memoryFallback)}
	}
	if len(newTexts) == 0 {
		e.log.Warn().Int("chunk_id", state.NextChunkID()).
			Msg("chunk skipped: no new documents")
		return StepResult{State: state, Outcome: StepSkippedEmpty, MemoryDate: memoryDate}, nil
	}
	if len(newTexts) != len(newDates) {
		return StepResult{}, &domain.ValidationError{Reason: "texts and dates index different identifiers"}
	}

	dates := make(domain.Dates, len(newDates))
	stateMax := state.MaxDate()
	memoryDate = domain.Day(memoryDate)
	for id := range newTexts {
		d, ok := newDates[id]
		if !ok {
			return StepResult{}, &domain.ValidationError{Reason: "document " + id + " has no date"}
		}
		d = domain.Day(d)
		if !d.After(stateMax) {
			return StepResult{}, &domain.DateRangeError{Reason: fmt.Sprintf(
				"document %s dated %s is not after model maximum %s",
				id, d.Format("2006-01-02"), stateMax.Format("2006-01-02"))}
		}
		if d.Before(memoryDate) {
			return StepResult{}, &domain.MemoryRangeError{Reason: fmt.Sprintf(
				"document %s dated %s precedes memory date %s",
				id, d.Format("2006-01-02"), memoryDate.Format("2006-01-02"))}
		}
		dates[id] = d
	}

	stateDates := state.Dates()
	memorySet := memoryWindow(stateDates, memoryDate)
	fallbackApplied := false
	if len(memorySet) == 0 {
		if memoryFallback == 0 || len(stateDates) == 0 {
			e.log.Warn().Int("chunk_id", state.NextChunkID()).
				Time("memory_date", memoryDate).
				Msg("chunk skipped: no memory documents")
			return StepResult{State: state, Outcome: StepSkippedNoMemory, MemoryDate: memoryDate}, nil
		}
		fbDate := nthMostRecent(stateDates, memoryFallback)
		e.log.Warn().Int("chunk_id", state.NextChunkID()).
			Time("memory_date", memoryDate).
			Time("fallback_date", fbDate).
			Int("position", memoryFallback).
			Msg("memory fallback applied")
		memoryDate = fbDate
		memorySet = memoryWindow(stateDates, memoryDate)
		fallbackApplied = true
	}

	stateDocs := state.Documents()
	memory := make(domain.Corpus, len(memorySet))
	for id := range memorySet {
		memory[id] = stateDocs[id]
	}

	fit, err := e.estimator.FitChunk(state.Model(), memory, newTexts, state.Vocabulary(), params)
	if err != nil {
		return StepResult{}, fmt.Errorf("fit chunk %d: %w", state.NextChunkID(), err)
	}

	start, end := dateSpan(dates)
	record := domain.ChunkRecord{
		ChunkID:    state.NextChunkID(),
		StartDate:  start,
		EndDate:    end,
		MemoryDate: memoryDate,
		NNew:       fit.NNew,
		NDiscarded: fit.NDiscarded,
		NMemory:    len(memorySet),
		NVocab:     len(fit.Vocabulary),
	}

	// Memory-window documents are replaced wholesale by the estimator's
	// surviving set; documents outside the window are untouched and keep
	// their prior topic assignments, so the successor model covers the whole
	// document footprint.
	prevModel := state.Model()
	nextDocs := make(domain.Corpus, len(stateDocs))
	nextDates := make(domain.Dates, len(stateDates))
	assignments := make(map[string][]int, len(stateDocs))
	for id, tokens := range stateDocs {
		if _, inMemory := memorySet[id]; !inMemory {
			nextDocs[id] = tokens
			nextDates[id] = stateDates[id]
			if asg, ok := prevModel.Assignments[id]; ok {
				assignments[id] = asg
			}
		}
	}
	for id, tokens := range fit.Documents {
		nextDocs[id] = tokens
		if d, ok := stateDates[id]; ok {
			nextDates[id] = d
		} else if d, ok := dates[id]; ok {
			nextDates[id] = d
		} else {
			return StepResult{}, &domain.ValidationError{Reason: "estimator returned unknown document " + id}
		}
	}
	for id, asg := range fit.Model.Assignments {
		assignments[id] = asg
	}
	nextModel := *fit.Model
	nextModel.Assignments = assignments

	next, err := state.Advance(&nextModel, nextDocs, nextDates, fit.Vocabulary, record, params)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{State: next, Outcome: StepApplied, MemoryDate: memoryDate, FallbackApplied: fallbackApplied}, nil
}

// memoryWindow returns the identifiers of documents dated at or after the
// cutoff.
func memoryWindow(dates domain.Dates, cutoff time.Time) map[string]struct{} {
	set := make(map[string]struct{})
	for id, d := range dates {
		if !d.Before(cutoff) {
			set[id] = struct{}{}
		}
	}
	return set
}

// nthMostRecent returns the date of the n-th most recent document (1 is the
// latest), clamped to the oldest when fewer than n documents exist.
func nthMostRecent(dates domain.Dates, n int) time.Time {
	all := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].After(all[j]) })
	if n > len(all) {
		n = len(all)
	}
	return all[n-1]
}

func dateSpan(dates domain.Dates) (start, end time.Time) {
	for _, d := range dates {
		if start.IsZero() || d.Before(start) {
			start = d
		}
		if d.After(end) {
			end = d
		}
	}
	return start, end
}
