package build

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/cardgrade/slabgen/internal/config"
	"github.com/cardgrade/slabgen/internal/loader"
)

const cardTemplate = `<!DOCTYPE html>
<html><head><title>{{player}}</title></head>
<body>
<h1 id="player">{{player}}</h1>
<span id="overall">{{overall}}</span>
<span id="overall-pct">{{overall_pct}}</span>
<script id="compare-data" type="application/json">{{compare_json}}</script>
</body></html>
`

const indexTemplate = `<html><body><p id="count">{{count}}</p><main>{{cards}}</main></body></html>`

// newSite lays out a working directory and returns a config rooted in it
func newSite(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(root, "data")
	cfg.CardTemplate = filepath.Join(root, "templates", "card.html")
	cfg.IndexTemplate = filepath.Join(root, "templates", "index.html")
	cfg.StaticDir = filepath.Join(root, "static")
	cfg.OutputDir = filepath.Join(root, "dist")

	require.NoError(t, os.MkdirAll(cfg.DataDir, 0755))
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.CardTemplate), 0755))
	require.NoError(t, os.WriteFile(cfg.CardTemplate, []byte(cardTemplate), 0644))
	require.NoError(t, os.WriteFile(cfg.IndexTemplate, []byte(indexTemplate), 0644))
	return cfg
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRunCSVAndJSON(t *testing.T) {
	cfg := newSite(t)
	write(t, filepath.Join(cfg.DataDir, "cards.csv"),
		"id,player,front_img,back_img,grade_overall\ncsv-card,Ken Griffey Jr.,/images/g-front.jpg,/images/g-back.jpg,9.5\n")
	write(t, filepath.Join(cfg.DataDir, "jordan.json"),
		`{"id": "json-card", "player": "Michael Jordan", "images": {"front": "/images/j-front.jpg", "back": "/images/j-back.jpg"},
		  "compare": {"distribution": {"10": 4, "9": 17}}}`)

	summary, err := Run(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Built)
	assert.Empty(t, summary.Skipped)
	assert.False(t, summary.FallbackIndex)

	entries, err := os.ReadDir(cfg.CardsDir())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	csvPage := read(t, filepath.Join(cfg.CardsDir(), "csv-card.html"))
	assert.Contains(t, csvPage, `<span id="overall">9.5</span>`)
	assert.Contains(t, csvPage, `<span id="overall-pct">95</span>`)

	index := read(t, summary.IndexPath)
	assert.Contains(t, index, `<p id="count">2</p>`)
	csvAt := strings.Index(index, "cards/csv-card.html")
	jsonAt := strings.Index(index, "cards/json-card.html")
	require.NotEqual(t, -1, csvAt)
	require.NotEqual(t, -1, jsonAt)
	assert.Less(t, csvAt, jsonAt, "csv records should be listed first")
}

func TestRunSkipsInvalidRecords(t *testing.T) {
	cfg := newSite(t)
	write(t, filepath.Join(cfg.DataDir, "cards.json"), `[
		{"player": "No Id", "images": {"front": "/images/a.jpg", "back": "/images/b.jpg"}},
		{"id": "no-back", "images": {"front": "/images/a.jpg"}},
		{"id": "good", "images": {"front": "/images/a.jpg", "back": "/images/b.jpg"}},
		{"id": "good", "images": {"front": "/images/c.jpg", "back": "/images/d.jpg"}},
		{"id": "../escape", "images": {"front": "/images/a.jpg", "back": "/images/b.jpg"}}
	]`)

	summary, err := Run(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Built)
	require.Len(t, summary.Skipped, 4)
	assert.Equal(t, "", summary.Skipped[0].ID)
	assert.Equal(t, "no-back", summary.Skipped[1].ID)
	assert.Equal(t, "good", summary.Skipped[2].ID)

	entries, err := os.ReadDir(cfg.CardsDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "good.html", entries[0].Name())
	assert.Contains(t, read(t, summary.IndexPath), `<p id="count">1</p>`)

	_, err = os.Stat(filepath.Join(cfg.OutputDir, "escape.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunMissingCardTemplateIsFatal(t *testing.T) {
	cfg := newSite(t)
	require.NoError(t, os.Remove(cfg.CardTemplate))
	write(t, filepath.Join(cfg.OutputDir, "keep.txt"), "previous build")

	_, err := Run(cfg, zap.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCardTemplate))
	assert.Equal(t, "previous build", read(t, filepath.Join(cfg.OutputDir, "keep.txt")))
}

func TestRunMissingIndexTemplateUsesFallback(t *testing.T) {
	cfg := newSite(t)
	require.NoError(t, os.Remove(cfg.IndexTemplate))
	write(t, filepath.Join(cfg.DataDir, "a.json"), `{"id": "a", "front_img": "/images/a.jpg", "back_img": "/images/b.jpg"}`)

	summary, err := Run(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, summary.FallbackIndex)
	assert.Contains(t, read(t, summary.IndexPath), "<p>1 cards</p>")
}

func TestRunEmptyIndexTemplateIsNotFallback(t *testing.T) {
	cfg := newSite(t)
	require.NoError(t, os.WriteFile(cfg.IndexTemplate, nil, 0644))
	write(t, filepath.Join(cfg.DataDir, "a.json"), `{"id": "a", "front_img": "/images/a.jpg", "back_img": "/images/b.jpg"}`)

	summary, err := Run(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, summary.FallbackIndex)
	assert.Equal(t, "", read(t, summary.IndexPath))
}

func TestRunAggregateParseErrorIsFatal(t *testing.T) {
	cfg := newSite(t)
	write(t, filepath.Join(cfg.DataDir, "cards.json"), `{"id": `)

	_, err := Run(cfg, zap.NewNop())
	require.Error(t, err)
	var perr *loader.ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestRunCleansOutputAndCopiesStatic(t *testing.T) {
	cfg := newSite(t)
	write(t, filepath.Join(cfg.OutputDir, "stale.html"), "old")
	write(t, filepath.Join(cfg.StaticDir, "css", "site.css"), "body{}")
	write(t, filepath.Join(cfg.StaticDir, "app.js"), "console.log(1)")

	_, err := Run(cfg, zap.NewNop())
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(cfg.OutputDir, "stale.html"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, "body{}", read(t, filepath.Join(cfg.OutputDir, "css", "site.css")))
	assert.Equal(t, "console.log(1)", read(t, filepath.Join(cfg.OutputDir, "app.js")))
	assert.Contains(t, read(t, filepath.Join(cfg.OutputDir, "index.html")), `<p id="count">0</p>`)
}

func TestRunDistributionRoundTrip(t *testing.T) {
	cfg := newSite(t)
	dist := `{"psa": {"10": 120, "9": 340}, "note": "</script>&<", "series": [1.5, null, true]}`
	write(t, filepath.Join(cfg.DataDir, "cards.json"),
		`{"id": "rt", "images": {"front": "/images/f.jpg", "back": "/images/b.jpg"}, "compare": {"distribution": `+dist+`}}`)

	_, err := Run(cfg, zap.NewNop())
	require.NoError(t, err)

	doc, err := html.Parse(strings.NewReader(read(t, filepath.Join(cfg.CardsDir(), "rt.html"))))
	require.NoError(t, err)
	blob := findScript(doc, "compare-data")
	require.NotEmpty(t, blob)

	var want, got interface{}
	require.NoError(t, json.Unmarshal([]byte(dist), &want))
	require.NoError(t, json.Unmarshal([]byte(blob), &got))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("distribution changed (-want +got):\n%s", diff)
	}
}

func TestResetDirRefusesCurrentDir(t *testing.T) {
	assert.Error(t, resetDir("."))
	assert.Error(t, resetDir(""))
}

func TestLoadRecords(t *testing.T) {
	cfg := newSite(t)
	write(t, filepath.Join(cfg.DataDir, "cards.csv"), "id,front_img,back_img\nx,/images/Front.jpg,/images/b.jpg\n,,\n")

	results, err := LoadRecords(cfg, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Results.Valid())
	assert.Len(t, results[0].Results.Warnings, 1)
}

func findScript(n *html.Node, id string) string {
	if n.Type == html.ElementNode && n.Data == "script" {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id && n.FirstChild != nil {
				return n.FirstChild.Data
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if s := findScript(child, id); s != "" {
			return s
		}
	}
	return ""
}
