package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultConfigFile is looked up in the working directory
const DefaultConfigFile = "slabgen.toml"

// Config represents the build configuration. Every path is relative to the
// working directory unless absolute.
type Config struct {
	DataDir       string       `toml:"data_dir"`
	PreferredCSV  string       `toml:"preferred_csv"`
	AggregateJSON string       `toml:"aggregate_json"`
	CardTemplate  string       `toml:"card_template"`
	IndexTemplate string       `toml:"index_template"`
	StaticDir     string       `toml:"static_dir"`
	OutputDir     string       `toml:"output_dir"`
	CardsSubdir   string       `toml:"cards_subdir"`
	ImagePrefix   string       `toml:"image_prefix"`
	Placeholders  Placeholders `toml:"placeholders"`

	SanitizeRemarks bool `toml:"sanitize_remarks"`
}

// Placeholders are the image locators used when a CSV row leaves an image blank
type Placeholders struct {
	Front string `toml:"front"`
	Back  string `toml:"back"`
	Edge  string `toml:"edge"`
}

// Default returns the fixed layout the generator uses without a config file
func Default() *Config {
	return &Config{
		DataDir:       "data",
		PreferredCSV:  "cards.csv",
		AggregateJSON: "cards.json",
		CardTemplate:  filepath.Join("templates", "card.html"),
		IndexTemplate: filepath.Join("templates", "index.html"),
		StaticDir:     "static",
		OutputDir:     "dist",
		CardsSubdir:   "cards",
		ImagePrefix:   "/images/",
		Placeholders: Placeholders{
			Front: "/images/placeholder-front.png",
			Back:  "/images/placeholder-back.png",
			Edge:  "/images/placeholder-edge.png",
		},
		SanitizeRemarks: true,
	}
}

// LoadConfig loads the config file at path on top of the defaults. A missing
// file is not an error. SLABGEN_* environment variables, including ones from
// a .env file, override file values.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	if path == "" {
		path = DefaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, config); err != nil {
			return nil, fmt.Errorf("error decoding config file: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadDotEnv loads a .env file into the process environment if one exists.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// WriteDefaultConfig writes the default config to path, refusing to clobber
// an existing file.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(Default()); err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	return nil
}

// CardsDir is the directory detail pages are written to
func (c *Config) CardsDir() string {
	return filepath.Join(c.OutputDir, c.CardsSubdir)
}

func applyEnv(c *Config) error {
	strs := map[string]*string{
		"SLABGEN_DATA_DIR":          &c.DataDir,
		"SLABGEN_PREFERRED_CSV":     &c.PreferredCSV,
		"SLABGEN_AGGREGATE_JSON":    &c.AggregateJSON,
		"SLABGEN_CARD_TEMPLATE":     &c.CardTemplate,
		"SLABGEN_INDEX_TEMPLATE":    &c.IndexTemplate,
		"SLABGEN_STATIC_DIR":        &c.StaticDir,
		"SLABGEN_OUTPUT_DIR":        &c.OutputDir,
		"SLABGEN_CARDS_SUBDIR":      &c.CardsSubdir,
		"SLABGEN_IMAGE_PREFIX":      &c.ImagePrefix,
		"SLABGEN_PLACEHOLDER_FRONT": &c.Placeholders.Front,
		"SLABGEN_PLACEHOLDER_BACK":  &c.Placeholders.Back,
		"SLABGEN_PLACEHOLDER_EDGE":  &c.Placeholders.Edge,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("SLABGEN_SANITIZE_REMARKS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("error parsing SLABGEN_SANITIZE_REMARKS: %w", err)
		}
		c.SanitizeRemarks = b
	}
	return nil
}
