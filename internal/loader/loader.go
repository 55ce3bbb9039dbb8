// Package loader reads card records from the data directory. CSV rows and JSON
// objects are mapped into the same card.Card by separate functions, and CSV
// records always come first.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cardgrade/slabgen/internal/card"
)

// previewLen bounds the content shown when the aggregate file fails to parse
const previewLen = 200

// Options controls where records are read from and how blanks are filled
type Options struct {
	DataDir       string
	PreferredCSV  string
	AggregateJSON string

	FrontPlaceholder string
	BackPlaceholder  string
	EdgePlaceholder  string

	// Now supplies the default graded_at date. Defaults to time.Now.
	Now func() time.Time
}

// ParseError reports an aggregate JSON file that could not be parsed. It is
// fatal for the build.
type ParseError struct {
	Path    string
	Preview string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error parsing %s: %v (content starts: %q)", e.Path, e.Err, e.Preview)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads the CSV source and then the JSON source, returning every record
// in order.
func Load(opts Options, log *zap.Logger) ([]card.Card, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if _, err := os.Stat(opts.DataDir); errors.Is(err, fs.ErrNotExist) {
		log.Warn("data directory not found", zap.String("dir", opts.DataDir))
		return nil, nil
	}

	var cards []card.Card

	csvPath, err := findCSV(opts.DataDir, opts.PreferredCSV)
	if err != nil {
		return nil, err
	}
	if csvPath != "" {
		fromCSV, err := LoadCSV(csvPath, opts)
		if err != nil {
			return nil, err
		}
		log.Debug("loaded csv records", zap.String("file", csvPath), zap.Int("count", len(fromCSV)))
		cards = append(cards, fromCSV...)
	}

	fromJSON, err := LoadJSON(opts, log)
	if err != nil {
		return nil, err
	}
	cards = append(cards, fromJSON...)

	log.Info("loaded records", zap.Int("csv", len(cards)-len(fromJSON)), zap.Int("json", len(fromJSON)))
	return cards, nil
}

// findCSV returns the preferred CSV when present, else the first CSV in
// lexical order, else "".
func findCSV(dir, preferred string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("error reading data directory: %w", err)
	}

	first := ""
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		if preferred != "" && entry.Name() == preferred {
			return filepath.Join(dir, entry.Name()), nil
		}
		if first == "" {
			first = filepath.Join(dir, entry.Name())
		}
	}
	return first, nil
}

func preview(data []byte) string {
	r := []rune(strings.Join(strings.Fields(string(data)), " "))
	if len(r) > previewLen {
		return string(r[:previewLen]) + "..."
	}
	return string(r)
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
