// Package corpus loads dated documents from disk and turns raw text into the
// token sequences the model core consumes.
package corpus

import (
	"bufio"
	"crypto/sha1"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/cran/rollinglda/internal/domain"
)

// Document is one dated raw-text document as read from disk.
type Document struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
	Text string    `json:"text"`
}

// LoadFile reads dated documents from a .jsonl file (one JSON object per
// line with id, date, text) or a .csv file (date, text columns; an optional
// header row is detected). Missing ids are derived from content hashes.
func LoadFile(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return loadJSONL(f, path)
	case ".csv":
		return loadCSV(f, path)
	}
	return nil, fmt.Errorf("%s: unsupported corpus format (want .jsonl or .csv)", path)
}

func loadJSONL(r io.Reader, path string) ([]Document, error) {
	var docs []Document
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var rec struct {
			ID   string `json:"id"`
			Date string `json:"date"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		d, err := time.Parse("2006-01-02", rec.Date)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad date %q", path, line, rec.Date)
		}
		id := rec.ID
		if id == "" {
			id = hashString(rec.Text)
		}
		docs = append(docs, Document{ID: id, Date: domain.Day(d), Text: rec.Text})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func loadCSV(r io.Reader, path string) ([]Document, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	var docs []Document
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		line++
		if len(rec) < 2 {
			return nil, fmt.Errorf("%s:%d: want at least date and text columns", path, line)
		}
		d, err := time.Parse("2006-01-02", strings.TrimSpace(rec[0]))
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("%s:%d: bad date %q", path, line, rec[0])
		}
		text := strings.Join(rec[1:], " ")
		docs = append(docs, Document{ID: hashString(text), Date: domain.Day(d), Text: text})
	}
	return docs, nil
}

// Prepare tokenizes the documents into the corpus and date maps the update
// controller consumes. Documents tokenizing to nothing are dropped.
func Prepare(docs []Document, tok *Tokenizer) (domain.Corpus, domain.Dates) {
	texts := make(domain.Corpus, len(docs))
	dates := make(domain.Dates, len(docs))
	for _, d := range docs {
		tokens := tok.Tokenize(d.Text)
		if len(tokens) == 0 {
			continue
		}
		texts[d.ID] = tokens
		dates[d.ID] = domain.Day(d.Date)
	}
	return texts, dates
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
