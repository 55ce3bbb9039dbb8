package loader

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cardgrade/slabgen/internal/card"
	"github.com/cardgrade/slabgen/internal/numeric"
)

// row is one CSV record keyed by lower-cased header name
type row map[string]string

func (r row) get(key string) string {
	return strings.TrimSpace(r[key])
}

func (r row) num(key string) card.Value {
	if v, ok := numeric.ParseLoose(r.get(key)); ok {
		return card.Some(v)
	}
	return card.Value{}
}

func (r row) rate(key string) card.Value {
	if v, ok := numeric.ToRate0to100(r.get(key)); ok {
		return card.Some(float64(v))
	}
	return card.Value{}
}

// LoadCSV parses a header-keyed CSV file into cards.
func LoadCSV(path string, opts Options) ([]card.Card, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := readRows(f)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}

	cards := make([]card.Card, 0, len(rows))
	for _, r := range rows {
		c := fromCSV(r, opts)
		c.Source = path
		cards = append(cards, c)
	}
	return cards, nil
}

func readRows(in io.Reader) ([]row, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	var rows []row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		r := make(row, len(header))
		blank := true
		for i, value := range record {
			if i >= len(header) || header[i] == "" {
				continue
			}
			value = strings.TrimSpace(value)
			if value != "" {
				blank = false
			}
			r[header[i]] = value
		}
		if blank {
			continue
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func fromCSV(r row, opts Options) card.Card {
	c := card.Card{
		Origin:   card.OriginCSV,
		ID:       r.get("id"),
		Player:   r.get("player"),
		Set:      r.get("set"),
		Number:   r.get("number"),
		Variant:  r.get("variant"),
		Serial:   r.get("serial"),
		Team:     r.get("team"),
		Sport:    r.get("sport"),
		GradedAt: r.get("graded_at"),

		Front: firstNonEmpty(r.get("front_img"), opts.FrontPlaceholder),
		Back:  firstNonEmpty(r.get("back_img"), opts.BackPlaceholder),
		Edge:  firstNonEmpty(r.get("edge_img"), opts.EdgePlaceholder),

		CompareURL:   r.get("compare_url"),
		OverallGrade: r.num("grade_overall"),
		OverallPct:   r.rate("overall_pct"),
		Weights:      weights(r.num("weight_front"), r.num("weight_back")),
		Population:   make(map[string]card.ServicePop, len(card.Services)),
	}

	if c.GradedAt == "" {
		c.GradedAt = opts.Now().Format("2006-01-02")
	}

	if dist := r.get("compare_distribution"); dist != "" && json.Valid([]byte(dist)) {
		c.Distribution = json.RawMessage(dist)
	}

	for _, name := range []string{"front", "back"} {
		side := c.Subgrades.Side(name)
		side.Surface = r.num(name + "_surface")
		side.Centering = r.num(name + "_centering")
		side.Corners = csvMeasure(r.num(name + "_corners"))
		side.Edges = csvMeasure(r.num(name + "_edges"))
		side.Remarks = make(map[string]string, len(card.Aspects))
		side.Pcts = make(map[string]card.Value, len(card.Aspects)+1)
		for _, aspect := range card.Aspects {
			if note := r.get(name + "_" + aspect + "_note"); note != "" {
				side.Remarks[aspect] = note
			}
			if pct := r.rate(name + "_" + aspect + "_pct"); pct.Set {
				side.Pcts[aspect] = pct
			}
		}
		if pct := r.rate(name + "_avg_pct"); pct.Set {
			side.Pcts["avg"] = pct
		}
	}

	for _, svc := range card.Services {
		pop := card.ServicePop{
			Count:   r.num(svc + "_pop"),
			GemRate: r.rate(svc + "_gem"),
		}
		if pop.Count.Set || pop.GemRate.Set {
			c.Population[svc] = pop
		}
	}
	return c
}

func csvMeasure(v card.Value) card.Measure {
	return card.Measure{Avg: v, Present: v.Set}
}

// weights fills whichever side weight is missing from the defaults
func weights(front, back card.Value) card.Weights {
	w := card.Weights{Front: card.DefaultFrontWeight, Back: card.DefaultBackWeight}
	if v, ok := front.Get(); ok {
		w.Front = v
	}
	if v, ok := back.Get(); ok {
		w.Back = v
	}
	return w
}
