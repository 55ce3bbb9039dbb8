package validator

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/cardgrade/slabgen/internal/card"
)

type ValidationResults struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether the record may be rendered
func (r ValidationResults) Valid() bool {
	return len(r.Errors) == 0
}

// RecordResult pairs a record with its validation outcome
type RecordResult struct {
	Card    card.Card
	Results ValidationResults
	// Duplicate is set when an earlier record already used the same id
	Duplicate bool
}

type Validator struct {
	ImagePrefix string
}

func NewValidator(imagePrefix string) *Validator {
	return &Validator{ImagePrefix: imagePrefix}
}

// Validate runs the minimal presence checks on one record. Only errors make a
// record unrenderable; warnings are informational.
func (v *Validator) Validate(c card.Card) ValidationResults {
	var results ValidationResults

	v.validateID(c.ID, &results)

	if strings.TrimSpace(c.Front) == "" {
		results.Errors = append(results.Errors, "front image is required (images.front or front_img)")
	}
	if strings.TrimSpace(c.Back) == "" {
		results.Errors = append(results.Errors, "back image is required (images.back or back_img)")
	}

	v.validateImage("front", c.Front, &results)
	v.validateImage("back", c.Back, &results)
	v.validateImage("edge", c.Edge, &results)

	return results
}

// ValidateAll validates records in order and flags repeated ids. The first
// record with a given id wins; later ones get an error so they are skipped.
func (v *Validator) ValidateAll(cards []card.Card) []RecordResult {
	seen := make(map[string]string, len(cards))
	out := make([]RecordResult, 0, len(cards))
	for _, c := range cards {
		res := RecordResult{Card: c, Results: v.Validate(c)}
		if res.Results.Valid() {
			if first, ok := seen[c.ID]; ok {
				res.Duplicate = true
				res.Results.Errors = append(res.Results.Errors,
					fmt.Sprintf("duplicate id %q (first defined in %s)", c.ID, first))
			} else {
				seen[c.ID] = c.Source
			}
		}
		out = append(out, res)
	}
	return out
}

// validateID requires an id that is usable verbatim as a file name stem
func (v *Validator) validateID(id string, results *ValidationResults) {
	if strings.TrimSpace(id) == "" {
		results.Errors = append(results.Errors, "id is required")
		return
	}
	if id == "." || id == ".." {
		results.Errors = append(results.Errors, fmt.Sprintf("id %q is not a valid file name", id))
		return
	}
	if strings.ContainsAny(id, `/\`) {
		results.Errors = append(results.Errors, fmt.Sprintf("id %q must not contain path separators", id))
		return
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			results.Errors = append(results.Errors, fmt.Sprintf("id %q contains control characters", id))
			return
		}
	}
}

// validateImage emits cosmetic warnings for local image paths
func (v *Validator) validateImage(side, locator string, results *ValidationResults) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return
	}

	if strings.HasPrefix(locator, "/") && v.ImagePrefix != "" && !strings.HasPrefix(locator, v.ImagePrefix) {
		results.Warnings = append(results.Warnings,
			fmt.Sprintf("%s image %s is outside %s", side, locator, v.ImagePrefix))
	}

	name := path.Base(locator)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if name != strings.ToLower(name) {
		results.Warnings = append(results.Warnings,
			fmt.Sprintf("%s image file name %s contains uppercase characters", side, name))
	}
}
