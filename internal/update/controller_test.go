package update

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cran/rollinglda/internal/domain"
	"github.com/cran/rollinglda/internal/model"
	"github.com/cran/rollinglda/internal/topics"
	"github.com/cran/rollinglda/internal/window"
)

func TestNewModel(t *testing.T) {
	t.Parallel()

	c := testController(nil)
	texts, dates := dailyDocs(day(2008, 1, 1), day(2008, 1, 10))
	state, err := c.NewModel(InitRequest{Texts: texts, Dates: dates, Parameters: openParams()})
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	if state.ID() == "" {
		t.Error("missing generated model id")
	}
	log := state.ChunkLog()
	if len(log) != 1 {
		t.Fatalf("chunk log length = %d, want 1", len(log))
	}
	if log[0].ChunkID != 0 {
		t.Errorf("initial chunk id = %d, want 0", log[0].ChunkID)
	}
	if !log[0].MemoryDate.IsZero() {
		t.Errorf("initial chunk memory date = %s, want zero", log[0].MemoryDate)
	}
	if log[0].NMemory != 0 || log[0].NNew != 10 {
		t.Errorf("initial counts: NMemory=%d NNew=%d", log[0].NMemory, log[0].NNew)
	}
	if state.NDocs() != 10 {
		t.Errorf("NDocs = %d, want 10", state.NDocs())
	}
}

// Monthly chunking of May and June against a month of memory: two records,
// the first anchored at 2008-04-01.
func TestUpdateMonthlyScenario(t *testing.T) {
	t.Parallel()

	c := testController(nil)
	state := warmState(t, c)
	texts, dates := dailyDocs(day(2008, 5, 1), day(2008, 6, 30))

	next, err := c.Update(state, Request{
		Texts:  texts,
		Dates:  dates,
		Chunks: window.Spec{Period: window.PeriodMonth},
		Memory: window.MemorySpec{Period: window.PeriodMonth},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	log := next.ChunkLog()
	if len(log) != len(state.ChunkLog())+2 {
		t.Fatalf("expected 2 new chunk records, got %d", len(log)-len(state.ChunkLog()))
	}
	first, second := log[len(log)-2], log[len(log)-1]
	if !first.MemoryDate.Equal(day(2008, 4, 1)) {
		t.Errorf("first memory date = %s, want 2008-04-01", first.MemoryDate)
	}
	if !first.StartDate.Equal(day(2008, 5, 1)) || !first.EndDate.Equal(day(2008, 5, 31)) {
		t.Errorf("first window = %s..%s, want May", first.StartDate, first.EndDate)
	}
	if !second.MemoryDate.Equal(day(2008, 5, 1)) {
		t.Errorf("second memory date = %s, want 2008-05-01", second.MemoryDate)
	}
	if !second.StartDate.Equal(day(2008, 6, 1)) || !second.EndDate.Equal(day(2008, 6, 30)) {
		t.Errorf("second window = %s..%s, want June", second.StartDate, second.EndDate)
	}
	if second.ChunkID != first.ChunkID+1 {
		t.Errorf("chunk ids not consecutive: %d, %d", first.ChunkID, second.ChunkID)
	}
}

func TestUpdateEmptyTextsLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := testController(&buf)
	state := warmState(t, c)
	buf.Reset()

	next, err := c.Update(state, Request{Texts: domain.Corpus{}})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if next != state {
		t.Error("state changed on empty update")
	}
	if n := strings.Count(buf.String(), "chunk skipped"); n != 1 {
		t.Errorf("want exactly 1 skip diagnostic, got %d", n)
	}
}

func TestUpdateChunkLogGrowth(t *testing.T) {
	t.Parallel()

	c := testController(nil)
	state := warmState(t, c)

	months := []struct{ start, end time.Time }{
		{day(2008, 5, 1), day(2008, 5, 31)},
		{day(2008, 6, 1), day(2008, 6, 30)},
		{day(2008, 7, 1), day(2008, 7, 31)},
	}
	for _, m := range months {
		before := len(state.ChunkLog())
		texts, dates := dailyDocs(m.start, m.end)
		next, err := c.Update(state, Request{
			Texts:  texts,
			Dates:  dates,
			Memory: window.MemorySpec{Period: window.PeriodMonth},
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if len(next.ChunkLog()) != before+1 {
			t.Fatalf("chunk log grew by %d, want 1", len(next.ChunkLog())-before)
		}
		state = next
	}
	log := state.ChunkLog()
	for i := 1; i < len(log); i++ {
		if log[i].ChunkID <= log[i-1].ChunkID {
			t.Errorf("chunk ids not strictly increasing at %d", i)
		}
		if log[i].StartDate.Before(log[i-1].StartDate) {
			t.Errorf("start dates not ordered at %d", i)
		}
	}
}

// Chunking granularity must not change admitted content: a single chunk and
// a month-by-month pass over the same range end with identical vocabulary
// and documents when the memory window covers everything.
func TestUpdateChunkingEquivalence(t *testing.T) {
	t.Parallel()

	c := testController(nil)
	base := warmState(t, c)
	texts, dates := dailyDocs(day(2008, 5, 1), day(2008, 6, 30))
	anchor := day(2008, 1, 1)

	single, err := c.Update(base, Request{
		Texts:  texts,
		Dates:  dates,
		Memory: window.MemorySpec{Dates: []time.Time{anchor}},
	})
	if err != nil {
		t.Fatalf("single-chunk update failed: %v", err)
	}
	multi, err := c.Update(base, Request{
		Texts:  texts,
		Dates:  dates,
		Chunks: window.Spec{Period: window.PeriodMonth},
		Memory: window.MemorySpec{Dates: []time.Time{anchor, anchor}},
	})
	if err != nil {
		t.Fatalf("multi-chunk update failed: %v", err)
	}

	if !reflect.DeepEqual(single.Vocabulary(), multi.Vocabulary()) {
		t.Error("vocabularies differ between chunkings")
	}
	if !reflect.DeepEqual(single.Documents(), multi.Documents()) {
		t.Error("document stores differ between chunkings")
	}
}

func TestUpdateAfterSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	c := testController(nil)
	base := warmState(t, c)

	path := filepath.Join(t.TempDir(), "model.json")
	if err := base.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	reloaded, err := model.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	texts, dates := dailyDocs(day(2008, 5, 1), day(2008, 6, 30))
	req := Request{
		Texts:  texts,
		Dates:  dates,
		Chunks: window.Spec{Period: window.PeriodMonth},
		Memory: window.MemorySpec{Period: window.PeriodMonth},
	}
	a, err := c.Update(base, req)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	b, err := c.Update(reloaded, req)
	if err != nil {
		t.Fatalf("Update after reload failed: %v", err)
	}

	if !reflect.DeepEqual(a.ChunkLog(), b.ChunkLog()) {
		t.Error("chunk logs diverge after snapshot round trip")
	}
	if !reflect.DeepEqual(a.Vocabulary(), b.Vocabulary()) {
		t.Error("vocabularies diverge after snapshot round trip")
	}
	ad, bd := a.Dates(), b.Dates()
	if len(ad) != len(bd) {
		t.Fatalf("date index sizes diverge: %d vs %d", len(ad), len(bd))
	}
	for id, d := range ad {
		if !bd[id].Equal(d) {
			t.Errorf("date of %s diverges: %s vs %s", id, d, bd[id])
		}
	}
}

func TestUpdateProgressDiagnostics(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := testController(&buf)
	state := warmState(t, c)
	buf.Reset()

	texts, dates := dailyDocs(day(2008, 5, 1), day(2008, 6, 30))
	_, err := c.Update(state, Request{
		Texts:  texts,
		Dates:  dates,
		Chunks: window.Spec{Period: window.PeriodMonth},
		Memory: window.MemorySpec{Period: window.PeriodMonth},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if n := strings.Count(buf.String(), "fitting chunk"); n != 2 {
		t.Errorf("want 2 progress events, got %d", n)
	}
}

func TestUpdateComputeTopics(t *testing.T) {
	t.Parallel()

	c := NewController(stubEstimator{k: 3}, topics.NewComputer(), zerolog.Nop())
	state := warmState(t, c)
	texts, dates := dailyDocs(day(2008, 5, 1), day(2008, 5, 31))

	next, err := c.Update(state, Request{
		Texts:         texts,
		Dates:         dates,
		Memory:        window.MemorySpec{Period: window.PeriodMonth},
		ComputeTopics: true,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	tm := next.Model()
	if tm.Topics == nil {
		t.Fatal("topic matrix not computed")
	}
	r, cols := tm.Topics.Dims()
	if r != tm.K || cols != len(next.Vocabulary()) {
		t.Errorf("topic matrix dims %dx%d, want %dx%d", r, cols, tm.K, len(next.Vocabulary()))
	}
}

func TestUpdateValidationAbortsBeforeAnyChunk(t *testing.T) {
	t.Parallel()

	c := testController(nil)
	state := warmState(t, c)
	texts, _ := dailyDocs(day(2008, 5, 1), day(2008, 5, 10))

	next, err := c.Update(state, Request{
		Texts:  texts,
		Dates:  domain.Dates{"doc-2008-05-01": day(2008, 5, 1)},
		Memory: window.MemorySpec{Period: window.PeriodMonth},
	})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if next != state {
		t.Error("state advanced despite validation failure")
	}
	if len(next.ChunkLog()) != len(state.ChunkLog()) {
		t.Error("chunk log grew despite validation failure")
	}
}

func TestUpdateInheritsStoredParameters(t *testing.T) {
	t.Parallel()

	c := testController(nil)
	texts, dates := dailyDocs(day(2008, 1, 1), day(2008, 4, 30))
	params := openParams()
	params.DocAbs = 2
	state, err := c.NewModel(InitRequest{Texts: texts, Dates: dates, Parameters: params})
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}

	upd, updDates := dailyDocs(day(2008, 5, 1), day(2008, 5, 10))
	upd["short"] = domain.Tokens{"alpha"}
	updDates["short"] = day(2008, 5, 5)
	next, err := c.Update(state, Request{
		Texts:  upd,
		Dates:  updDates,
		Memory: window.MemorySpec{Period: window.PeriodMonth},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	log := next.ChunkLog()
	if last := log[len(log)-1]; last.NDiscarded != 1 {
		t.Errorf("inherited DocAbs not applied: NDiscarded = %d, want 1", last.NDiscarded)
	}
	if next.Parameters().DocAbs != 2 {
		t.Errorf("parameters not persisted: %+v", next.Parameters())
	}
}
