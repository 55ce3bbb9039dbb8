// Package render fills the card and index templates. The template language is
// a bare {{identifier}} substitution: unknown names become empty strings and
// nothing is escaped.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/cardgrade/slabgen/internal/card"
	"github.com/cardgrade/slabgen/internal/grade"
	"github.com/cardgrade/slabgen/internal/numeric"
)

// FallbackIndexTemplate is used when no index template exists on disk
const FallbackIndexTemplate = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Graded cards ({{count}})</title></head>
<body>
<h1>Graded cards</h1>
<p>{{count}} cards</p>
<div class="card-grid">
{{cards}}
</div>
</body>
</html>
`

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Fields maps placeholder names to their substituted text
type Fields map[string]string

// Substitute replaces every {{name}} in tpl with fields[name].
func Substitute(tpl string, fields Fields) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
		sub := placeholder.FindStringSubmatch(m)
		return fields[sub[1]]
	})
}

// Options controls renderer output
type Options struct {
	CardsSubdir     string
	SanitizeRemarks bool
}

// Renderer holds the loaded templates for one build
type Renderer struct {
	cardTemplate  string
	indexTemplate string
	cardsSubdir   string
	policy        *bluemonday.Policy
}

// New returns a renderer for the given templates
func New(cardTemplate, indexTemplate string, opts Options) *Renderer {
	r := &Renderer{
		cardTemplate:  cardTemplate,
		indexTemplate: indexTemplate,
		cardsSubdir:   strings.Trim(opts.CardsSubdir, "/"),
	}
	if opts.SanitizeRemarks {
		r.policy = bluemonday.UGCPolicy()
	}
	return r
}

// Card renders the detail page of c.
func (r *Renderer) Card(c card.Card, res grade.Result) string {
	return Substitute(r.cardTemplate, r.Fields(c, res))
}

// Fields builds the full placeholder map for one card.
func (r *Renderer) Fields(c card.Card, res grade.Result) Fields {
	f := Fields{
		"id":          c.ID,
		"player":      c.Player,
		"set":         c.Set,
		"number":      c.Number,
		"variant":     c.Variant,
		"serial":      c.Serial,
		"team":        c.Team,
		"sport":       c.Sport,
		"graded_at":   c.GradedAt,
		"front_img":   c.Front,
		"back_img":    c.Back,
		"edge_img":    c.Edge,
		"compare_url": c.CompareURL,

		"overall":     numeric.Format1(res.Overall),
		"overall_pct": strconv.Itoa(res.OverallPct),

		"compare_json": CompareJSON(c.Distribution),
	}

	for _, name := range []string{"front", "back"} {
		side := res.Side(name)
		raw := c.Subgrades.Side(name)
		values := map[string]card.Value{
			"surface":   side.Surface,
			"centering": side.Centering,
			"corners":   side.Corners,
			"edges":     side.Edges,
		}
		for _, aspect := range card.Aspects {
			key := name + "_" + aspect
			f[key] = formatGrade(values[aspect])
			f[key+"_pct"] = strconv.Itoa(side.Pcts[aspect])
			f[key+"_note"] = r.remark(raw.Remarks[aspect])
		}
		f[name+"_avg"] = numeric.Format1(side.Average)
		f[name+"_avg_pct"] = strconv.Itoa(side.AvgPct)
	}

	for _, svc := range card.Services {
		pop := c.Population[svc]
		f[svc+"_pop"] = formatCount(pop.Count)
		f[svc+"_gem"] = formatCount(pop.GemRate)
	}
	return f
}

// Tile renders the index entry of one card. Data attributes are lower-cased
// for client-side search.
func (r *Renderer) Tile(c card.Card, res grade.Result) string {
	attr := func(s string) string {
		return html.EscapeString(strings.ToLower(s))
	}
	esc := html.EscapeString

	var b strings.Builder
	fmt.Fprintf(&b, `<a class="card-tile" href="%s" data-player="%s" data-set="%s" data-number="%s" data-variant="%s" data-serial="%s">`,
		esc(r.Href(c.ID)), attr(c.Player), attr(c.Set), attr(c.Number), attr(c.Variant), attr(c.Serial))
	fmt.Fprintf(&b, `<img src="%s" alt="%s" loading="lazy">`, esc(c.Front), esc(c.Player))
	b.WriteString(`<div class="tile-meta">`)
	fmt.Fprintf(&b, `<span class="tile-player">%s</span>`, esc(c.Player))
	setLine := c.Set
	if c.Number != "" {
		setLine = strings.TrimSpace(setLine + " #" + c.Number)
	}
	fmt.Fprintf(&b, `<span class="tile-set">%s</span>`, esc(setLine))
	if c.Variant != "" {
		fmt.Fprintf(&b, `<span class="tile-variant">%s</span>`, esc(c.Variant))
	}
	fmt.Fprintf(&b, `<span class="tile-grade" data-pct="%d">%s</span>`, res.OverallPct, numeric.Format1(res.Overall))
	b.WriteString(`</div></a>`)
	return b.String()
}

// Index renders the index page from the collected tiles.
func (r *Renderer) Index(tiles []string) string {
	return Substitute(r.indexTemplate, Fields{
		"cards": strings.Join(tiles, "\n"),
		"count": strconv.Itoa(len(tiles)),
	})
}

// Href is the index-relative link to a card's detail page
func (r *Renderer) Href(id string) string {
	name := url.PathEscape(id) + ".html"
	if r.cardsSubdir == "" {
		return name
	}
	return r.cardsSubdir + "/" + name
}

// CompareJSON serialises the distribution blob so it can sit inside a
// <script type="application/json"> element and parse back unchanged.
func CompareJSON(dist json.RawMessage) string {
	if len(bytes.TrimSpace(dist)) == 0 {
		return "{}"
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, dist); err != nil {
		return "{}"
	}
	var out bytes.Buffer
	json.HTMLEscape(&out, compact.Bytes())
	return out.String()
}

func (r *Renderer) remark(s string) string {
	if r.policy == nil || s == "" {
		return s
	}
	return r.policy.Sanitize(s)
}

func formatGrade(v card.Value) string {
	if f, ok := v.Get(); ok {
		return numeric.Format1(f)
	}
	return ""
}

func formatCount(v card.Value) string {
	if f, ok := v.Get(); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}
