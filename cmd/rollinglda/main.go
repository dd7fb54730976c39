package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/cran/rollinglda/internal/config"
	"github.com/cran/rollinglda/internal/corpus"
	"github.com/cran/rollinglda/internal/domain"
	"github.com/cran/rollinglda/internal/estimator/lda"
	"github.com/cran/rollinglda/internal/model"
	"github.com/cran/rollinglda/internal/store/sqlite"
	"github.com/cran/rollinglda/internal/topics"
	"github.com/cran/rollinglda/internal/tui"
	"github.com/cran/rollinglda/internal/update"
	"github.com/cran/rollinglda/internal/window"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "Path to config YAML")
	loadPath := flag.String("load", "", "Resume from a model snapshot instead of fitting a new one")
	noTUI := flag.Bool("no-tui", false, "Print a plain summary instead of the interactive browser")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Println("Usage: rollinglda [--config=config.yaml] [--load=model.json] [--no-tui] corpus.jsonl [more ...]")
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fatal("failed to load config", err)
	}
	log := newLogger(cfg.Logging)

	var docs []corpus.Document
	for _, path := range inputs {
		loaded, err := corpus.LoadFile(path)
		if err != nil {
			fatal("failed to load corpus", err)
		}
		docs = append(docs, loaded...)
	}
	if len(docs) == 0 {
		fatal("no documents loaded", nil)
	}
	texts, dates := corpus.Prepare(docs, corpus.NewTokenizer())
	log.Info().Int("n_docs", len(texts)).Msg("corpus loaded")

	params := domain.Parameters{
		VocabAbs:      cfg.Vocabulary.Abs,
		VocabRel:      cfg.Vocabulary.Rel,
		VocabFallback: cfg.Vocabulary.Fallback,
		DocAbs:        cfg.Vocabulary.DocAbs,
	}
	estimator := lda.New(lda.Config{
		K:          cfg.Model.K,
		Alpha:      cfg.Model.Alpha,
		Eta:        cfg.Model.Eta,
		Iterations: cfg.Model.Iterations,
		Processes:  cfg.Model.Processes,
	})
	controller := update.NewController(estimator, topics.NewComputer(), log)

	var state *model.State
	stream, streamDates := texts, dates

	if *loadPath != "" {
		state, err = model.Load(*loadPath)
		if err != nil {
			fatal("failed to load snapshot", err)
		}
		log.Info().Str("model_id", state.ID()).Int("n_chunks", len(state.ChunkLog())).Msg("snapshot loaded")
	} else {
		until, err := warmupCutoff(cfg.Init.Until, dates)
		if err != nil {
			fatal("bad init.until date", err)
		}
		warmTexts, warmDates := make(domain.Corpus), make(domain.Dates)
		stream, streamDates = make(domain.Corpus), make(domain.Dates)
		for id, d := range dates {
			if !d.After(until) {
				warmTexts[id], warmDates[id] = texts[id], d
			} else {
				stream[id], streamDates[id] = texts[id], d
			}
		}
		state, err = controller.NewModel(update.InitRequest{
			Texts:      warmTexts,
			Dates:      warmDates,
			Parameters: params,
		})
		if err != nil {
			fatal("initial fit failed", err)
		}
	}

	if len(stream) > 0 {
		state, err = controller.Update(state, update.Request{
			Texts:          stream,
			Dates:          streamDates,
			Chunks:         window.Spec{Period: cfg.Update.Chunks},
			Memory:         window.MemorySpec{Period: cfg.Update.Memory},
			Parameters:     &params,
			ComputeTopics:  cfg.Update.ComputeTopics,
			MemoryFallback: cfg.Update.MemoryFallback,
		})
		if err != nil {
			fatal("rolling update failed", err)
		}
	}

	if err := state.Save(cfg.Snapshot.Path); err != nil {
		fatal("failed to save snapshot", err)
	}
	log.Info().Str("path", cfg.Snapshot.Path).Msg("snapshot saved")

	if cfg.Store.Type == "sqlite" {
		st, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			fatal("failed to open audit store", err)
		}
		if err := st.SaveChunkLog(context.Background(), state.ID(), state.ChunkLog()); err != nil {
			st.Close()
			fatal("failed to persist chunk log", err)
		}
		st.Close()
	}

	terms := topics.TopTerms(state.Model().Topics, state.Vocabulary(), 8)
	if *noTUI {
		printSummary(state, terms)
		return
	}
	m := tui.New(state.ID(), state.ChunkLog(), terms)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		fatal("tui failed", err)
	}
}

// warmupCutoff parses init.until, defaulting to the earliest document date
// so an unset warmup yields a single-day initial model.
func warmupCutoff(until string, dates domain.Dates) (time.Time, error) {
	if until != "" {
		t, err := time.Parse("2006-01-02", until)
		if err != nil {
			return time.Time{}, err
		}
		return domain.Day(t), nil
	}
	var earliest time.Time
	for _, d := range dates {
		if earliest.IsZero() || d.Before(earliest) {
			earliest = d
		}
	}
	return earliest, nil
}

func printSummary(state *model.State, terms [][]string) {
	for _, r := range state.ChunkLog() {
		fmt.Printf("chunk %3d  %s..%s  memory=%s  new=%d discarded=%d memory_docs=%d vocab=%d\n",
			r.ChunkID, r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"),
			fmtMemory(r.MemoryDate), r.NNew, r.NDiscarded, r.NMemory, r.NVocab)
	}
	for k, t := range terms {
		fmt.Printf("topic %2d: %v\n", k+1, t)
	}
}

func fmtMemory(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out = os.Stderr
	logger := zerolog.New(out)
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func fatal(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	} else {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(1)
}
