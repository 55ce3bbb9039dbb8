// Package build runs one full site build: clean output, copy static assets,
// load records, then validate, grade and render each record in order before
// writing the index.
package build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cardgrade/slabgen/internal/config"
	"github.com/cardgrade/slabgen/internal/grade"
	"github.com/cardgrade/slabgen/internal/loader"
	"github.com/cardgrade/slabgen/internal/render"
	"github.com/cardgrade/slabgen/internal/validator"
)

// ErrMissingCardTemplate aborts the build before anything is rendered
var ErrMissingCardTemplate = errors.New("card template not found")

// Skip describes a record that was not rendered
type Skip struct {
	ID      string
	Source  string
	Reasons []string
}

// Summary reports the outcome of a build
type Summary struct {
	Built         int
	Pages         []string
	Skipped       []Skip
	Warnings      int
	IndexPath     string
	FallbackIndex bool
}

// Run performs a build with cfg. Only fatal errors are returned; per-record
// problems are logged and listed in the summary.
func Run(cfg *config.Config, log *zap.Logger) (*Summary, error) {
	if log == nil {
		log = zap.NewNop()
	}
	summary := &Summary{IndexPath: filepath.Join(cfg.OutputDir, "index.html")}

	cardTpl, indexTpl, fallback, err := loadTemplates(cfg)
	if err != nil {
		return nil, err
	}
	if fallback {
		log.Warn("index template not found, using built-in fallback", zap.String("path", cfg.IndexTemplate))
		summary.FallbackIndex = true
	}

	if err := resetDir(cfg.OutputDir); err != nil {
		return nil, err
	}
	if err := copyStatic(cfg.StaticDir, cfg.OutputDir); err != nil {
		return nil, err
	}

	cards, err := loader.Load(loaderOptions(cfg), log)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.CardsDir(), 0755); err != nil {
		return nil, fmt.Errorf("error creating cards directory: %w", err)
	}

	r := render.New(cardTpl, indexTpl, render.Options{
		CardsSubdir:     cfg.CardsSubdir,
		SanitizeRemarks: cfg.SanitizeRemarks,
	})
	v := validator.NewValidator(cfg.ImagePrefix)

	var tiles []string
	for _, rec := range v.ValidateAll(cards) {
		c := rec.Card
		for _, w := range rec.Results.Warnings {
			log.Warn("record warning", zap.String("id", c.ID), zap.String("source", c.Source), zap.String("warning", w))
		}
		summary.Warnings += len(rec.Results.Warnings)

		if !rec.Results.Valid() {
			log.Warn("skipping record", zap.String("id", c.ID), zap.String("source", c.Source), zap.Strings("errors", rec.Results.Errors))
			summary.Skipped = append(summary.Skipped, Skip{ID: c.ID, Source: c.Source, Reasons: rec.Results.Errors})
			continue
		}

		res := grade.Compute(c)
		page := filepath.Join(cfg.CardsDir(), c.ID+".html")
		if err := os.WriteFile(page, []byte(r.Card(c, res)), 0644); err != nil {
			return nil, fmt.Errorf("error writing %s: %w", page, err)
		}
		log.Debug("wrote card page", zap.String("id", c.ID), zap.String("path", page))

		tiles = append(tiles, r.Tile(c, res))
		summary.Pages = append(summary.Pages, page)
	}

	if err := os.WriteFile(summary.IndexPath, []byte(r.Index(tiles)), 0644); err != nil {
		return nil, fmt.Errorf("error writing index: %w", err)
	}
	summary.Built = len(tiles)

	log.Info("build complete", zap.Int("built", summary.Built), zap.Int("skipped", len(summary.Skipped)))
	return summary, nil
}

func loaderOptions(cfg *config.Config) loader.Options {
	return loader.Options{
		DataDir:          cfg.DataDir,
		PreferredCSV:     cfg.PreferredCSV,
		AggregateJSON:    cfg.AggregateJSON,
		FrontPlaceholder: cfg.Placeholders.Front,
		BackPlaceholder:  cfg.Placeholders.Back,
		EdgePlaceholder:  cfg.Placeholders.Edge,
	}
}

// LoadRecords loads and validates without rendering anything
func LoadRecords(cfg *config.Config, log *zap.Logger) ([]validator.RecordResult, error) {
	cards, err := loader.Load(loaderOptions(cfg), log)
	if err != nil {
		return nil, err
	}
	return validator.NewValidator(cfg.ImagePrefix).ValidateAll(cards), nil
}

// loadTemplates reads both templates. A missing index template is reported
// through fallback rather than as an error.
func loadTemplates(cfg *config.Config) (cardTpl, indexTpl string, fallback bool, err error) {
	data, err := os.ReadFile(cfg.CardTemplate)
	if errors.Is(err, fs.ErrNotExist) {
		return "", "", false, fmt.Errorf("%w: %s", ErrMissingCardTemplate, cfg.CardTemplate)
	}
	if err != nil {
		return "", "", false, fmt.Errorf("error reading card template: %w", err)
	}
	cardTpl = string(data)

	data, err = os.ReadFile(cfg.IndexTemplate)
	if errors.Is(err, fs.ErrNotExist) {
		return cardTpl, render.FallbackIndexTemplate, true, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("error reading index template: %w", err)
	}
	return cardTpl, string(data), false, nil
}
