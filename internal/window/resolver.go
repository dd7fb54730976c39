// Package window resolves chunk and memory specifications into concrete,
// sorted calendar dates. It is pure: no model state is read or written here.
package window

import (
	"fmt"
	"sort"
	"time"

	"github.com/cran/rollinglda/internal/domain"
)

// Period tokens accepted by Spec and MemorySpec.
const (
	PeriodWeek    = "week"
	PeriodMonth   = "month"
	PeriodQuarter = "quarter"
	PeriodYear    = "year"
)

// Spec designates how the incoming documents are partitioned into chunks.
// Exactly one of Dates or Period should be set; the zero value means a single
// chunk starting at the earliest new document.
type Spec struct {
	// Dates are explicit, sorted chunk lower boundaries.
	Dates []time.Time
	// Period generates boundaries by stepping from the earliest to the latest
	// new document at the given calendar period.
	Period string
}

// MemorySpec designates the memory cutoff for each chunk. Exactly one of the
// three fields must be set.
type MemorySpec struct {
	// Dates are explicit memory cutoffs, one per chunk.
	Dates []time.Time
	// Period steps back one calendar period from each chunk boundary.
	Period string
	// Lookback selects the date of the n-th most recent document (prior model
	// history and new documents combined) before each chunk boundary; 1 is
	// the most recent. Zero means unset.
	Lookback int
}

// Windows is the resolved result. Chunks holds one lower boundary per chunk
// plus a sentinel upper bound (latest new date + 1 day), so every new
// document falls into exactly one half-open interval [Chunks[i], Chunks[i+1]).
// Memory holds one cutoff per chunk and Memory[i] <= Chunks[i] always.
type Windows struct {
	Chunks []time.Time
	Memory []time.Time
}

// N returns the number of chunks.
func (w Windows) N() int { return len(w.Memory) }

// Resolve turns the chunk and memory specifications into concrete windows.
// existingDates are the dates of all documents already in the model;
// newDates must lie strictly after their maximum.
func Resolve(existingDates, newDates []time.Time, chunk Spec, memory MemorySpec) (Windows, error) {
	if len(existingDates) == 0 {
		return Windows{}, &domain.ValidationError{Reason: "no existing document dates"}
	}
	if len(newDates) == 0 {
		return Windows{}, &domain.ValidationError{Reason: "no new document dates"}
	}
	existing := normalize(existingDates)
	incoming := normalize(newDates)
	exMax := maxDate(existing)
	nMin, nMax := minDate(incoming), maxDate(incoming)
	if !nMin.After(exMax) {
		return Windows{}, &domain.DateRangeError{Reason: fmt.Sprintf(
			"new dates must be strictly after %s, earliest is %s",
			exMax.Format("2006-01-02"), nMin.Format("2006-01-02"))}
	}

	boundaries, err := resolveChunks(exMax, nMin, nMax, chunk)
	if err != nil {
		return Windows{}, err
	}
	mem, err := resolveMemory(boundaries, existing, incoming, memory)
	if err != nil {
		return Windows{}, err
	}

	var offending [][2]time.Time
	for i := range mem {
		if mem[i].After(boundaries[i]) {
			offending = append(offending, [2]time.Time{mem[i], boundaries[i]})
		}
	}
	if len(offending) > 0 {
		return Windows{}, &domain.MemoryRangeError{Reason: "memory date after chunk boundary", Pairs: offending}
	}
	if !sorted(mem) {
		return Windows{}, &domain.OrderError{Reason: "resolved memory dates are not non-decreasing"}
	}

	chunks := append(boundaries, nMax.AddDate(0, 0, 1))
	return Windows{Chunks: chunks, Memory: mem}, nil
}

func resolveChunks(exMax, nMin, nMax time.Time, spec Spec) ([]time.Time, error) {
	switch {
	case len(spec.Dates) > 0:
		bounds := normalize(spec.Dates)
		if !sorted(bounds) {
			return nil, &domain.OrderError{Reason: "chunk boundaries are not non-decreasing"}
		}
		for _, b := range bounds {
			if !b.After(exMax) {
				return nil, &domain.ChunkSpecError{Reason: fmt.Sprintf(
					"boundary %s is not after existing maximum %s",
					b.Format("2006-01-02"), exMax.Format("2006-01-02"))}
			}
			if b.After(nMax) {
				return nil, &domain.ChunkSpecError{Reason: fmt.Sprintf(
					"boundary %s is after the latest new document %s",
					b.Format("2006-01-02"), nMax.Format("2006-01-02"))}
			}
		}
		if bounds[0].After(nMin) {
			return nil, &domain.ChunkSpecError{Reason: fmt.Sprintf(
				"first boundary %s is after the earliest new document %s",
				bounds[0].Format("2006-01-02"), nMin.Format("2006-01-02"))}
		}
		return bounds, nil
	case spec.Period != "":
		if err := checkPeriod(spec.Period); err != nil {
			return nil, err
		}
		var bounds []time.Time
		for b := nMin; !b.After(nMax); b = step(b, spec.Period) {
			bounds = append(bounds, b)
		}
		return bounds, nil
	default:
		return []time.Time{nMin}, nil
	}
}

func resolveMemory(boundaries, existing, incoming []time.Time, spec MemorySpec) ([]time.Time, error) {
	switch {
	case len(spec.Dates) > 0:
		mem := normalize(spec.Dates)
		if len(mem) != len(boundaries) {
			return nil, &domain.ValidationError{Reason: fmt.Sprintf(
				"%d memory dates for %d chunks", len(mem), len(boundaries))}
		}
		if !sorted(mem) {
			return nil, &domain.OrderError{Reason: "memory dates are not non-decreasing"}
		}
		return mem, nil
	case spec.Period != "":
		if err := checkPeriod(spec.Period); err != nil {
			return nil, err
		}
		mem := make([]time.Time, len(boundaries))
		for i, b := range boundaries {
			mem[i] = stepBack(b, spec.Period)
		}
		return mem, nil
	case spec.Lookback > 0:
		all := make([]time.Time, 0, len(existing)+len(incoming))
		all = append(all, existing...)
		all = append(all, incoming...)
		sort.Slice(all, func(i, j int) bool { return all[i].Before(all[j]) })
		mem := make([]time.Time, len(boundaries))
		for i, b := range boundaries {
			pool := all[:sort.Search(len(all), func(j int) bool { return !all[j].Before(b) })]
			if len(pool) == 0 {
				return nil, &domain.MemoryRangeError{Reason: fmt.Sprintf(
					"no documents before boundary %s", b.Format("2006-01-02"))}
			}
			pos := len(pool) - spec.Lookback
			if pos < 0 {
				pos = 0
			}
			mem[i] = pool[pos]
		}
		return mem, nil
	default:
		return nil, &domain.ValidationError{Reason: "memory specification required: dates, period, or lookback"}
	}
}

func checkPeriod(p string) error {
	switch p {
	case PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear:
		return nil
	}
	return &domain.ValidationError{Reason: "unknown period token " + fmt.Sprintf("%q", p)}
}

func step(t time.Time, period string) time.Time {
	switch period {
	case PeriodWeek:
		return t.AddDate(0, 0, 7)
	case PeriodMonth:
		return t.AddDate(0, 1, 0)
	case PeriodQuarter:
		return t.AddDate(0, 3, 0)
	default:
		return t.AddDate(1, 0, 0)
	}
}

func stepBack(t time.Time, period string) time.Time {
	switch period {
	case PeriodWeek:
		return t.AddDate(0, 0, -7)
	case PeriodMonth:
		return t.AddDate(0, -1, 0)
	case PeriodQuarter:
		return t.AddDate(0, -3, 0)
	default:
		return t.AddDate(-1, 0, 0)
	}
}

func normalize(dates []time.Time) []time.Time {
	out := make([]time.Time, len(dates))
	for i, d := range dates {
		out[i] = domain.Day(d)
	}
	return out
}

func sorted(dates []time.Time) bool {
	for i := 1; i < len(dates); i++ {
		if dates[i].Before(dates[i-1]) {
			return false
		}
	}
	return true
}

func minDate(dates []time.Time) time.Time {
	m := dates[0]
	for _, d := range dates[1:] {
		if d.Before(m) {
			m = d
		}
	}
	return m
}

func maxDate(dates []time.Time) time.Time {
	m := dates[0]
	for _, d := range dates[1:] {
		if d.After(m) {
			m = d
		}
	}
	return m
}
