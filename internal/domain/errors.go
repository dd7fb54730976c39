package domain

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports malformed input shape: mismatched text/date keys,
// empty inputs, inconsistent lengths.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// DateRangeError reports new dates that are not strictly after the model's
// current maximum date, or dates that precede the memory cutoff.
type DateRangeError struct {
	Reason string
}

func (e *DateRangeError) Error() string { return "date range: " + e.Reason }

// ChunkSpecError reports chunk boundaries that cannot partition the new
// documents: boundaries at or before the existing maximum date, or a first
// boundary after the earliest new document.
type ChunkSpecError struct {
	Reason string
}

func (e *ChunkSpecError) Error() string { return "chunk spec: " + e.Reason }

// MemoryRangeError reports memory dates falling after their corresponding
// chunk boundary. Pairs lists the offending (memory, chunk) combinations.
type MemoryRangeError struct {
	Reason string
	Pairs  [][2]time.Time
}

func (e *MemoryRangeError) Error() string {
	if len(e.Pairs) == 0 {
		return "memory range: " + e.Reason
	}
	parts := make([]string, len(e.Pairs))
	for i, p := range e.Pairs {
		parts[i] = fmt.Sprintf("memory %s > chunk %s",
			p[0].Format("2006-01-02"), p[1].Format("2006-01-02"))
	}
	return "memory range: " + e.Reason + ": " + strings.Join(parts, ", ")
}

// OrderError reports explicit date sequences that are not in non-decreasing
// order.
type OrderError struct {
	Reason string
}

func (e *OrderError) Error() string { return "order: " + e.Reason }

// ParameterError reports a threshold outside its documented bounds. It is
// raised before any state mutation.
type ParameterError struct {
	Name   string
	Reason string
}

func (e *ParameterError) Error() string { return "parameter " + e.Name + ": " + e.Reason }
