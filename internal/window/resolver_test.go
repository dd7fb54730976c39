package window

import (
	"errors"
	"testing"
	"time"

	"github.com/cran/rollinglda/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// January through April, one document per day.
func springDates(t *testing.T) []time.Time {
	t.Helper()
	var out []time.Time
	for d := date(2008, 1, 1); !d.After(date(2008, 4, 30)); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func mayJuneDates() []time.Time {
	var out []time.Time
	for d := date(2008, 5, 1); !d.After(date(2008, 6, 30)); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func TestResolveMonthlyPeriods(t *testing.T) {
	t.Parallel()

	win, err := Resolve(springDates(t), mayJuneDates(),
		Spec{Period: PeriodMonth}, MemorySpec{Period: PeriodMonth})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if win.N() != 2 {
		t.Fatalf("expected 2 chunks, got %d", win.N())
	}
	wantChunks := []time.Time{date(2008, 5, 1), date(2008, 6, 1), date(2008, 7, 1)}
	for i, want := range wantChunks {
		if !win.Chunks[i].Equal(want) {
			t.Errorf("chunk[%d] = %s, want %s", i, win.Chunks[i], want)
		}
	}
	wantMemory := []time.Time{date(2008, 4, 1), date(2008, 5, 1)}
	for i, want := range wantMemory {
		if !win.Memory[i].Equal(want) {
			t.Errorf("memory[%d] = %s, want %s", i, win.Memory[i], want)
		}
	}
}

func TestResolveDefaultSingleChunk(t *testing.T) {
	t.Parallel()

	win, err := Resolve(springDates(t), mayJuneDates(),
		Spec{}, MemorySpec{Dates: []time.Time{date(2008, 4, 1)}})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if win.N() != 1 {
		t.Fatalf("expected 1 chunk, got %d", win.N())
	}
	if !win.Chunks[0].Equal(date(2008, 5, 1)) {
		t.Errorf("chunk boundary = %s, want 2008-05-01", win.Chunks[0])
	}
	if !win.Chunks[1].Equal(date(2008, 7, 1)) {
		t.Errorf("sentinel = %s, want 2008-07-01", win.Chunks[1])
	}
}

func TestResolveLookbackMemory(t *testing.T) {
	t.Parallel()

	// Third most recent document before 2008-05-01 is dated 2008-04-28.
	win, err := Resolve(springDates(t), mayJuneDates(),
		Spec{Period: PeriodMonth}, MemorySpec{Lookback: 3})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !win.Memory[0].Equal(date(2008, 4, 28)) {
		t.Errorf("memory[0] = %s, want 2008-04-28", win.Memory[0])
	}
	// Before 2008-06-01 the new May documents count too: 2008-05-29.
	if !win.Memory[1].Equal(date(2008, 5, 29)) {
		t.Errorf("memory[1] = %s, want 2008-05-29", win.Memory[1])
	}
}

func TestResolveLookbackClampsToOldest(t *testing.T) {
	t.Parallel()

	existing := []time.Time{date(2008, 4, 29), date(2008, 4, 30)}
	win, err := Resolve(existing, []time.Time{date(2008, 5, 1)},
		Spec{}, MemorySpec{Lookback: 10})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !win.Memory[0].Equal(date(2008, 4, 29)) {
		t.Errorf("memory[0] = %s, want oldest 2008-04-29", win.Memory[0])
	}
}

func TestResolveErrors(t *testing.T) {
	t.Parallel()

	existing := springDates(t)
	incoming := mayJuneDates()

	tests := []struct {
		name     string
		existing []time.Time
		incoming []time.Time
		chunk    Spec
		memory   MemorySpec
		check    func(error) bool
	}{
		{
			name:     "new dates not after existing",
			existing: existing,
			incoming: []time.Time{date(2008, 4, 30)},
			memory:   MemorySpec{Lookback: 1},
			check:    func(err error) bool { var e *domain.DateRangeError; return errors.As(err, &e) },
		},
		{
			name:     "unsorted chunk boundaries",
			existing: existing,
			incoming: incoming,
			chunk:    Spec{Dates: []time.Time{date(2008, 6, 1), date(2008, 5, 1)}},
			memory:   MemorySpec{Lookback: 1},
			check:    func(err error) bool { var e *domain.OrderError; return errors.As(err, &e) },
		},
		{
			name:     "boundary not after existing maximum",
			existing: existing,
			incoming: incoming,
			chunk:    Spec{Dates: []time.Time{date(2008, 4, 30)}},
			memory:   MemorySpec{Lookback: 1},
			check:    func(err error) bool { var e *domain.ChunkSpecError; return errors.As(err, &e) },
		},
		{
			name:     "first boundary after earliest new document",
			existing: existing,
			incoming: incoming,
			chunk:    Spec{Dates: []time.Time{date(2008, 6, 1)}},
			memory:   MemorySpec{Lookback: 1},
			check:    func(err error) bool { var e *domain.ChunkSpecError; return errors.As(err, &e) },
		},
		{
			name:     "memory length mismatch",
			existing: existing,
			incoming: incoming,
			chunk:    Spec{Period: PeriodMonth},
			memory:   MemorySpec{Dates: []time.Time{date(2008, 4, 1)}},
			check:    func(err error) bool { var e *domain.ValidationError; return errors.As(err, &e) },
		},
		{
			name:     "memory after chunk boundary",
			existing: existing,
			incoming: incoming,
			chunk:    Spec{Period: PeriodMonth},
			memory:   MemorySpec{Dates: []time.Time{date(2008, 5, 15), date(2008, 6, 15)}},
			check: func(err error) bool {
				var e *domain.MemoryRangeError
				return errors.As(err, &e) && len(e.Pairs) == 2
			},
		},
		{
			name:     "unknown period token",
			existing: existing,
			incoming: incoming,
			chunk:    Spec{Period: "fortnight"},
			memory:   MemorySpec{Lookback: 1},
			check:    func(err error) bool { var e *domain.ValidationError; return errors.As(err, &e) },
		},
		{
			name:     "memory spec missing",
			existing: existing,
			incoming: incoming,
			chunk:    Spec{Period: PeriodMonth},
			check:    func(err error) bool { var e *domain.ValidationError; return errors.As(err, &e) },
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Resolve(tt.existing, tt.incoming, tt.chunk, tt.memory)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.check(err) {
				t.Errorf("wrong error type: %v", err)
			}
		})
	}
}

// Resolved windows are equal-length, non-decreasing, and memory never
// exceeds its chunk boundary.
func TestResolveInvariants(t *testing.T) {
	t.Parallel()

	specs := []struct {
		chunk  Spec
		memory MemorySpec
	}{
		{Spec{Period: PeriodWeek}, MemorySpec{Period: PeriodWeek}},
		{Spec{Period: PeriodMonth}, MemorySpec{Period: PeriodQuarter}},
		{Spec{Period: PeriodMonth}, MemorySpec{Lookback: 5}},
		{Spec{}, MemorySpec{Lookback: 1}},
		{Spec{Dates: []time.Time{date(2008, 5, 1), date(2008, 6, 15)}}, MemorySpec{Period: PeriodMonth}},
	}
	for _, s := range specs {
		win, err := Resolve(springDates(t), mayJuneDates(), s.chunk, s.memory)
		if err != nil {
			t.Fatalf("Resolve(%+v, %+v) failed: %v", s.chunk, s.memory, err)
		}
		if len(win.Chunks) != len(win.Memory)+1 {
			t.Fatalf("chunks %d vs memory %d: sentinel missing", len(win.Chunks), len(win.Memory))
		}
		for i := 1; i < len(win.Chunks); i++ {
			if win.Chunks[i].Before(win.Chunks[i-1]) {
				t.Errorf("chunks not sorted at %d", i)
			}
		}
		for i := 1; i < len(win.Memory); i++ {
			if win.Memory[i].Before(win.Memory[i-1]) {
				t.Errorf("memory not sorted at %d", i)
			}
		}
		for i := range win.Memory {
			if win.Memory[i].After(win.Chunks[i]) {
				t.Errorf("memory[%d] after chunk boundary", i)
			}
		}
	}
}
