package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	colorize "github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cardgrade/slabgen/internal/render"
)

// newSite writes a config file with absolute paths plus starter templates
func newSite(t *testing.T) (root, configPath string) {
	t.Helper()
	root = t.TempDir()
	configPath = filepath.Join(root, "slabgen.toml")
	content := fmt.Sprintf(`data_dir = %q
card_template = %q
index_template = %q
static_dir = %q
output_dir = %q
`,
		filepath.Join(root, "data"),
		filepath.Join(root, "templates", "card.html"),
		filepath.Join(root, "templates", "index.html"),
		filepath.Join(root, "static"),
		filepath.Join(root, "dist"))
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "templates"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "data"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "templates", "card.html"), []byte(render.DefaultCardTemplate), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "templates", "index.html"), []byte(render.DefaultIndexTemplate), 0644))

	records := `[
  {"id": "jordan-86-fleer-57", "player": "Michael Jordan", "set": "Fleer", "number": "57",
   "images": {"front": "/images/jordan-front.jpg", "back": "/images/jordan-back.jpg"},
   "subgrades": {"front": {"surface": 9.5, "centering": 9, "corners": 9.5, "edges": 9,
                           "remarks": {"surface": "Strong gloss"}},
                 "back": {"surface": 9, "centering": 9, "corners": 9, "edges": 9}},
   "population": {"psa": {"count": 320, "gem_rate": "4%"}}},
  {"player": "Nobody", "images": {"front": "/images/x.jpg", "back": "/images/Y.jpg"}}
]`
	require.NoError(t, os.WriteFile(filepath.Join(root, "data", "cards.json"), []byte(records), 0644))
	return root, configPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	colorize.NoColor = true
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	return out.String(), err
}

func TestBuildCommand(t *testing.T) {
	root, configPath := newSite(t)

	out, err := run(t, "build", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "built 1 cards")
	assert.Contains(t, out, "skipped (no id)")

	page, err := os.ReadFile(filepath.Join(root, "dist", "cards", "jordan-86-fleer-57.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<h1>Michael Jordan</h1>")
	assert.Contains(t, string(page), "Strong gloss")
}

func TestValidateCommandFormats(t *testing.T) {
	_, configPath := newSite(t)

	out, err := run(t, "validate", "--config", configPath, "--format", "json")
	require.Error(t, err)
	var report validationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Records)
	assert.Equal(t, 1, report.Valid)
	assert.Equal(t, 1, report.Invalid)
	assert.Equal(t, "json", report.Results[0].Origin)
	assert.Len(t, report.Results[1].Warnings, 1)

	out, err = run(t, "validate", "--config", configPath, "--format", "yaml")
	require.Error(t, err)
	report = validationReport{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Records)
	assert.Equal(t, "jordan-86-fleer-57", report.Results[0].ID)

	out, err = run(t, "validate", "--config", configPath, "--format", "text")
	require.Error(t, err)
	assert.Contains(t, out, "Validation Results:")
	assert.Contains(t, out, "id is required")

	_, err = run(t, "validate", "--config", configPath, "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestShowCommand(t *testing.T) {
	_, configPath := newSite(t)

	out, err := run(t, "show", "--config", configPath, "jordan-86-fleer-57")
	require.NoError(t, err)
	assert.Contains(t, out, "Michael Jordan")
	assert.Contains(t, out, "Fleer #57")
	// 0.8*9.3 + 0.2*9.0 = 9.24 -> 9.2
	assert.Contains(t, out, "Overall       9.2")
	assert.Contains(t, out, "Strong gloss")
	assert.Contains(t, out, "PSA  pop 320")

	_, err = run(t, "show", "--config", configPath, "missing")
	assert.ErrorContains(t, err, "card not found")
}

func TestInitCommand(t *testing.T) {
	root := t.TempDir()
	t.Setenv("SLABGEN_DATA_DIR", filepath.Join(root, "data"))
	t.Setenv("SLABGEN_STATIC_DIR", filepath.Join(root, "static"))
	t.Setenv("SLABGEN_CARD_TEMPLATE", filepath.Join(root, "templates", "card.html"))
	t.Setenv("SLABGEN_INDEX_TEMPLATE", filepath.Join(root, "templates", "index.html"))
	configPath := filepath.Join(root, "slabgen.toml")

	out, err := run(t, "init", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Config file initialized")

	for _, path := range []string{configPath, filepath.Join(root, "templates", "card.html"), filepath.Join(root, "templates", "index.html")} {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}
	info, err := os.Stat(filepath.Join(root, "data"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	out, err = run(t, "init", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Config file already exists")
	assert.Equal(t, 2, strings.Count(out, "Template already exists"))
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{"one two", "three"}, wrapText("one two three", 10))
	assert.Equal(t, []string{""}, wrapText("   ", 20))
}
