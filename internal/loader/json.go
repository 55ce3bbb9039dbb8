package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/cardgrade/slabgen/internal/card"
	"github.com/cardgrade/slabgen/internal/numeric"
)

// text decodes strings, numbers, booleans and null into a string. Objects and
// arrays decode as empty.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	*t = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			*t = text(strings.TrimSpace(s))
		}
	case 't', 'f':
		*t = text(data)
	case 'n', '{', '[':
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			*t = text(n.String())
		}
	}
	return nil
}

type jsonImages struct {
	Front text `json:"front"`
	Back  text `json:"back"`
	Edge  text `json:"edge"`
}

type jsonSide struct {
	Surface    card.Value        `json:"surface"`
	Centering  card.Value        `json:"centering"`
	Corners    card.Measure      `json:"corners"`
	CornersAvg card.Value        `json:"corners_avg"`
	Edges      card.Measure      `json:"edges"`
	EdgesAvg   card.Value        `json:"edges_avg"`
	Remarks    map[string]text   `json:"remarks"`
}

type jsonPop struct {
	Count   card.Value      `json:"count"`
	GemRate json.RawMessage `json:"gem_rate"`
}

type jsonRecord struct {
	ID       text `json:"id"`
	Player   text `json:"player"`
	Set      text `json:"set"`
	Number   text `json:"number"`
	Variant  text `json:"variant"`
	Serial   text `json:"serial"`
	Team     text `json:"team"`
	Sport    text `json:"sport"`
	GradedAt text `json:"graded_at"`

	Images   jsonImages `json:"images"`
	FrontImg text       `json:"front_img"`
	BackImg  text       `json:"back_img"`
	EdgeImg  text       `json:"edge_img"`

	Compare struct {
		URL          text            `json:"url"`
		Distribution json.RawMessage `json:"distribution"`
	} `json:"compare"`
	CompareURL text `json:"compare_url"`

	GradeOverall card.Value `json:"grade_overall"`
	OverallGrade card.Value `json:"overall_grade"`
	Weights      struct {
		Front card.Value `json:"front"`
		Back  card.Value `json:"back"`
	} `json:"weights"`

	Subgrades struct {
		Front jsonSide `json:"front"`
		Back  jsonSide `json:"back"`
	} `json:"subgrades"`

	Population map[string]jsonPop `json:"population"`
}

// LoadJSON reads the aggregate file when it exists, otherwise every JSON file
// in the data directory. Only an aggregate parse failure is returned as an
// error; loose files that fail are logged and skipped.
func LoadJSON(opts Options, log *zap.Logger) ([]card.Card, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if opts.AggregateJSON != "" {
		aggregate := filepath.Join(opts.DataDir, opts.AggregateJSON)
		data, err := os.ReadFile(aggregate)
		if err == nil {
			cards, err := decodeRecords(data, aggregate, opts)
			if err != nil {
				return nil, &ParseError{Path: aggregate, Preview: preview(data), Err: err}
			}
			return cards, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading %s: %w", aggregate, err)
		}
	}

	entries, err := os.ReadDir(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("error reading data directory: %w", err)
	}

	var cards []card.Card
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(opts.DataDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("skipping unreadable JSON file", zap.String("file", path), zap.Error(err))
			continue
		}
		fromFile, err := decodeRecords(data, path, opts)
		if err != nil {
			log.Warn("skipping unparsable JSON file", zap.String("file", path), zap.Error(err))
			continue
		}
		cards = append(cards, fromFile...)
	}
	return cards, nil
}

// decodeRecords accepts a single object or an array of objects. Fields whose
// JSON type does not fit are left empty; only malformed JSON is an error.
func decodeRecords(data []byte, source string, opts Options) ([]card.Card, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty file")
	}
	if !json.Valid(data) {
		var raw json.RawMessage
		return nil, json.Unmarshal(data, &raw)
	}

	var raws []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, err
		}
	case '{':
		raws = []json.RawMessage{data}
	default:
		return nil, fmt.Errorf("expected an object or an array of objects, got %s", preview(data))
	}

	cards := make([]card.Card, 0, len(raws))
	for _, raw := range raws {
		var rec jsonRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				return nil, err
			}
		}
		c := fromJSON(rec, opts)
		c.Source = source
		cards = append(cards, c)
	}
	return cards, nil
}

func fromJSON(rec jsonRecord, opts Options) card.Card {
	c := card.Card{
		Origin:   card.OriginJSON,
		ID:       string(rec.ID),
		Player:   string(rec.Player),
		Set:      string(rec.Set),
		Number:   string(rec.Number),
		Variant:  string(rec.Variant),
		Serial:   string(rec.Serial),
		Team:     string(rec.Team),
		Sport:    string(rec.Sport),
		GradedAt: string(rec.GradedAt),

		Front: firstNonEmpty(string(rec.Images.Front), string(rec.FrontImg)),
		Back:  firstNonEmpty(string(rec.Images.Back), string(rec.BackImg)),
		Edge:  firstNonEmpty(string(rec.Images.Edge), string(rec.EdgeImg), opts.EdgePlaceholder),

		CompareURL: firstNonEmpty(string(rec.Compare.URL), string(rec.CompareURL)),
		Weights:    weights(rec.Weights.Front, rec.Weights.Back),
		Population: make(map[string]card.ServicePop, len(rec.Population)),
	}

	c.OverallGrade = rec.GradeOverall
	if !c.OverallGrade.Set {
		c.OverallGrade = rec.OverallGrade
	}

	if dist := bytes.TrimSpace(rec.Compare.Distribution); len(dist) > 0 && !bytes.Equal(dist, []byte("null")) {
		c.Distribution = append(json.RawMessage(nil), dist...)
	}

	c.Subgrades.Front = jsonSideToCard(rec.Subgrades.Front)
	c.Subgrades.Back = jsonSideToCard(rec.Subgrades.Back)

	for svc, pop := range rec.Population {
		c.Population[strings.ToLower(svc)] = card.ServicePop{
			Count:   pop.Count,
			GemRate: rateFromRaw(pop.GemRate),
		}
	}
	return c
}

func jsonSideToCard(s jsonSide) card.Side {
	side := card.Side{
		Surface:   s.Surface,
		Centering: s.Centering,
		Corners:   s.Corners,
		Edges:     s.Edges,
	}
	if len(s.Remarks) > 0 {
		side.Remarks = make(map[string]string, len(s.Remarks))
		for k, v := range s.Remarks {
			side.Remarks[k] = string(v)
		}
	}
	if s.CornersAvg.Set {
		side.Corners.Avg = s.CornersAvg
		side.Corners.Present = true
	}
	if s.EdgesAvg.Set {
		side.Edges.Avg = s.EdgesAvg
		side.Edges.Present = true
	}
	return side
}

// rateFromRaw applies the rate rule to a JSON number or string
func rateFromRaw(raw json.RawMessage) card.Value {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return card.Value{}
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return card.Value{}
		}
		if v, ok := numeric.ToRate0to100(s); ok {
			return card.Some(float64(v))
		}
		return card.Value{}
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return card.Value{}
	}
	return card.Some(float64(numeric.RateOf(f)))
}
