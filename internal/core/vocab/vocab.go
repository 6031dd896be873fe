// Package vocab holds the fixed reference vocabularies every checkout request
// is validated against: village symbols, building codes, fly derivatives,
// tissue types and the accepted collection year range. The sets are loaded
// once at process start and never mutated afterwards, so a single *Set can be
// shared by any number of concurrent validators.
package vocab

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	apperrors "github.com/CacconeLabYale/TsetseCheckout/internal/pkg/errors"
)

//go:embed data/village_id_map.csv data/yale_building_codes.tsv data/additional_buildings.csv
var dataFS embed.FS

// Derivatives are the materials that can be produced from a fly sample.
var derivatives = []string{"DNA", "RNA", "PROTEIN", "OTHER"}

// Tissue types recognized by the sample database.
var tissueTypes = []string{"CARCASS", "HEAD", "REPRODUCTIVE PARTS", "MIDGUT", "OTHER"}

// MinCollectionYear is the first year samples were collected for this archive.
const MinCollectionYear = 1990

// Set is the immutable vocabulary snapshot used by the validators.
type Set struct {
	villages      map[string]string // symbol -> long-form village name
	buildingCodes map[string]string // code -> building name
	derivatives   map[string]struct{}
	tissueTypes   map[string]struct{}
	yearMin       int
	yearMax       int
}

// Load builds the vocabulary set from the embedded reference files. The
// collection-year upper bound is the current calendar year.
func Load() (*Set, error) {
	villages, err := dataFS.Open("data/village_id_map.csv")
	if err != nil {
		return nil, apperrors.Configuration(fmt.Sprintf("village id map unavailable: %v", err))
	}
	defer villages.Close()

	yale, err := dataFS.Open("data/yale_building_codes.tsv")
	if err != nil {
		return nil, apperrors.Configuration(fmt.Sprintf("yale building codes unavailable: %v", err))
	}
	defer yale.Close()

	extra, err := dataFS.Open("data/additional_buildings.csv")
	if err != nil {
		return nil, apperrors.Configuration(fmt.Sprintf("additional buildings list unavailable: %v", err))
	}
	defer extra.Close()

	return NewSet(villages, yale, extra, time.Now())
}

// NewSet parses the three reference sources and assembles a vocabulary set.
// Building codes from the Yale list and the additional list must be disjoint;
// overlap is a configuration error reported with the offending codes.
func NewSet(villageSrc, yaleSrc, extraSrc io.Reader, now time.Time) (*Set, error) {
	villages, err := parseVillages(villageSrc)
	if err != nil {
		return nil, err
	}

	yaleCodes, err := parseYaleBuildings(yaleSrc)
	if err != nil {
		return nil, err
	}

	extraCodes, err := parseAdditionalBuildings(extraSrc)
	if err != nil {
		return nil, err
	}

	var common []string
	for code := range yaleCodes {
		if _, ok := extraCodes[code]; ok {
			common = append(common, code)
		}
	}
	if len(common) > 0 {
		sort.Strings(common)
		return nil, apperrors.Configuration(fmt.Sprintf(
			"the following building codes are common to both the Yale and the additional building code lists: %s; this is not permitted",
			strings.Join(common, ", ")))
	}

	buildings := make(map[string]string, len(yaleCodes)+len(extraCodes))
	for code, name := range yaleCodes {
		buildings[code] = name
	}
	for code, name := range extraCodes {
		buildings[code] = name
	}

	derivSet := make(map[string]struct{}, len(derivatives))
	for _, d := range derivatives {
		derivSet[d] = struct{}{}
	}
	tissueSet := make(map[string]struct{}, len(tissueTypes))
	for _, tt := range tissueTypes {
		tissueSet[tt] = struct{}{}
	}

	return &Set{
		villages:      villages,
		buildingCodes: buildings,
		derivatives:   derivSet,
		tissueTypes:   tissueSet,
		yearMin:       MinCollectionYear,
		yearMax:       now.Year(),
	}, nil
}

// HasVillage reports whether symbol is a known village id. Symbols are stored
// uppercase; callers pass the already-normalized form.
func (s *Set) HasVillage(symbol string) bool {
	_, ok := s.villages[symbol]
	return ok
}

// VillageName returns the long-form name for a village symbol.
func (s *Set) VillageName(symbol string) (string, bool) {
	name, ok := s.villages[symbol]
	return name, ok
}

// HasBuildingCode reports whether code is in the combined building code set.
// The match is case-sensitive.
func (s *Set) HasBuildingCode(code string) bool {
	_, ok := s.buildingCodes[code]
	return ok
}

// HasDerivative reports whether the (uppercased) value is a recognized
// material to produce.
func (s *Set) HasDerivative(derivative string) bool {
	_, ok := s.derivatives[derivative]
	return ok
}

// HasTissueType reports whether the (uppercased) value is a recognized tissue
// type.
func (s *Set) HasTissueType(tissue string) bool {
	_, ok := s.tissueTypes[tissue]
	return ok
}

// Derivatives returns the accepted materials, in canonical order.
func (s *Set) Derivatives() []string {
	out := make([]string, len(derivatives))
	copy(out, derivatives)
	return out
}

// TissueTypes returns the accepted tissue types, in canonical order.
func (s *Set) TissueTypes() []string {
	out := make([]string, len(tissueTypes))
	copy(out, tissueTypes)
	return out
}

// YearRange returns the inclusive bounds of accepted collection years.
func (s *Set) YearRange() (min, max int) {
	return s.yearMin, s.yearMax
}

// parseVillages reads symbol,name pairs. Symbols are uppercased on load so
// lookups never depend on the casing in the reference file.
func parseVillages(r io.Reader) (map[string]string, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, apperrors.Configuration(fmt.Sprintf("malformed village id map: %v", err))
	}

	villages := make(map[string]string, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			return nil, apperrors.Configuration(fmt.Sprintf("village id map row has %d fields, want 2", len(row)))
		}
		villages[strings.ToUpper(strings.TrimSpace(row[0]))] = strings.TrimSpace(row[1])
	}
	return villages, nil
}

// parseYaleBuildings reads the tab-separated Yale building list (no header).
func parseYaleBuildings(r io.Reader) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.Configuration(fmt.Sprintf("malformed yale building codes list: %v", err))
	}

	codes := make(map[string]string, len(rows))
	for _, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		name := ""
		if len(row) > 1 {
			name = strings.TrimSpace(row[1])
		}
		codes[strings.TrimSpace(row[0])] = name
	}
	return codes, nil
}

// parseAdditionalBuildings reads the comma-separated additional building list,
// which carries a header row.
func parseAdditionalBuildings(r io.Reader) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.Configuration(fmt.Sprintf("malformed additional buildings list: %v", err))
	}

	codes := make(map[string]string, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		name := ""
		if len(row) > 1 {
			name = strings.TrimSpace(row[1])
		}
		codes[strings.TrimSpace(row[0])] = name
	}
	return codes, nil
}
