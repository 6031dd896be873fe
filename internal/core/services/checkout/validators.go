package checkout

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/CacconeLabYale/TsetseCheckout/internal/core/domain"
	"github.com/CacconeLabYale/TsetseCheckout/internal/core/vocab"
)

// Validators holds the per-field validation functions. Each one maps a raw
// string to a normalized value or an error carrying the user-facing message.
// They are pure with respect to the shared vocabulary set, so the aggregator
// can run all of them unconditionally and union every failure into one
// report instead of forcing fix-one-resubmit cycles.
type Validators struct {
	vocab *vocab.Set
}

// NewValidators creates validators over the given vocabulary set.
func NewValidators(set *vocab.Set) *Validators {
	return &Validators{vocab: set}
}

// Derivative validates the material to produce from the fly sample.
func (v *Validators) Derivative(raw string) (string, error) {
	derivative := strings.ToUpper(strings.TrimSpace(raw))
	if v.vocab.HasDerivative(derivative) {
		return derivative, nil
	}
	return "", fmt.Errorf("%s is not an expected material to produce from the fly samples; choose from: %s",
		raw, strings.Join(v.vocab.Derivatives(), ", "))
}

// TissueType validates the tissue type.
func (v *Validators) TissueType(raw string) (string, error) {
	tissue := strings.ToUpper(strings.TrimSpace(raw))
	if v.vocab.HasTissueType(tissue) {
		return tissue, nil
	}
	return "", fmt.Errorf("%s is not a recognized tissue type: %s",
		raw, strings.Join(v.vocab.TissueTypes(), ", "))
}

// VillageSymbol validates the village id.
func (v *Validators) VillageSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if v.vocab.HasVillage(symbol) {
		return symbol, nil
	}
	return "", fmt.Errorf("%s is not a recognized village id", raw)
}

// Month validates the collection month. Accepts a number in 1-12, an
// abbreviated month name ("Mar") or a full month name ("March"); textual
// forms are converted to their numeric month.
func (v *Validators) Month(raw string) (int, error) {
	value := strings.TrimSpace(raw)

	if n, err := strconv.Atoi(value); err == nil {
		if n >= 1 && n <= 12 {
			return n, nil
		}
		return 0, fmt.Errorf("%s is not a recognized representation of a month of the year", raw)
	}

	// time.Parse wants "Mar"/"March" exactly, so canonicalize the casing first.
	name := cases.Title(language.English).String(strings.ToLower(value))
	if t, err := time.Parse("Jan", name); err == nil {
		return int(t.Month()), nil
	}
	if t, err := time.Parse("January", name); err == nil {
		return int(t.Month()), nil
	}

	return 0, fmt.Errorf("%s is not a recognized representation of a month of the year", raw)
}

// Year validates the collection year against the accepted range.
func (v *Validators) Year(raw string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s is not a valid year for this collection", raw)
	}

	min, max := v.vocab.YearRange()
	if year < min || year > max {
		return 0, fmt.Errorf("%s is not a valid year for this collection", raw)
	}
	return year, nil
}

// TubeNumber validates and translates a raw tube label.
func (v *Validators) TubeNumber(raw string) (int, error) {
	return vocab.ConvertTubeCode(raw)
}

// BuildingCode validates the destination building. The match is
// case-sensitive against the combined building code list.
func (v *Validators) BuildingCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if v.vocab.HasBuildingCode(code) {
		return code, nil
	}
	return "", fmt.Errorf("%s is not present in our list of building codes; please contact the database administrator", raw)
}

// SampleStatus validates a sample status code.
func (v *Validators) SampleStatus(raw string) (int, error) {
	code, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !domain.IsValidSampleStatus(code) {
		return 0, fmt.Errorf("the status code '%s' is not valid; choose from the numbers in: %v",
			raw, domain.SampleStatusNames())
	}
	return code, nil
}
