package checkout

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CacconeLabYale/TsetseCheckout/internal/core/vocab"
)

func testValidators(t *testing.T) *Validators {
	t.Helper()

	set, err := vocab.Load()
	require.NoError(t, err)
	return NewValidators(set)
}

func TestValidators_Derivative(t *testing.T) {
	v := testValidators(t)

	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"DNA", "DNA", false},
		{"dna", "DNA", false},
		{" rna ", "RNA", false},
		{"protein", "PROTEIN", false},
		{"other", "OTHER", false},
		{"plasmid", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := v.Derivative(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "not an expected material")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidators_TissueType(t *testing.T) {
	v := testValidators(t)

	got, err := v.TissueType("midgut")
	require.NoError(t, err)
	assert.Equal(t, "MIDGUT", got)

	got, err = v.TissueType("Reproductive Parts")
	require.NoError(t, err)
	assert.Equal(t, "REPRODUCTIVE PARTS", got)

	_, err = v.TissueType("gizzard")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a recognized tissue type")
}

func TestValidators_VillageSymbol(t *testing.T) {
	v := testValidators(t)

	got, err := v.VillageSymbol("oca")
	require.NoError(t, err)
	assert.Equal(t, "OCA", got)

	_, err = v.VillageSymbol("XYZ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a recognized village id")
}

func TestValidators_Month(t *testing.T) {
	v := testValidators(t)

	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"3", 3, false},
		{"12", 12, false},
		{"Mar", 3, false},
		{"mar", 3, false},
		{"MARCH", 3, false},
		{"September", 9, false},
		{"0", 0, true},
		{"13", 0, true},
		{"Mar2", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := v.Month(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "month of the year")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidators_Year(t *testing.T) {
	v := testValidators(t)

	set, err := vocab.Load()
	require.NoError(t, err)
	min, max := set.YearRange()

	got, err := v.Year("2014")
	require.NoError(t, err)
	assert.Equal(t, 2014, got)

	_, err = v.Year("1989")
	require.Error(t, err)

	got, err = v.Year("1990")
	require.NoError(t, err)
	assert.Equal(t, min, got)

	got, err = v.Year("  2020  ")
	require.NoError(t, err)
	assert.Equal(t, 2020, got)

	_, err = v.Year("twenty-fourteen")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid year")

	// Far future years fall outside the accepted range.
	_, err = v.Year("3050")
	require.Error(t, err)
	assert.Greater(t, 3050, max)
}

func TestValidators_Year_UpperBound(t *testing.T) {
	// Pin the clock so the boundary is exact: the current calendar year is
	// accepted, the following year is not.
	set, err := vocab.NewSet(
		strings.NewReader("OCA,Ocallo\n"),
		strings.NewReader("OML\tOsborn Memorial Laboratories\n"),
		strings.NewReader("code,name\nKBT,Kline Biology Tower\n"),
		time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	v := NewValidators(set)

	got, err := v.Year("2024")
	require.NoError(t, err)
	assert.Equal(t, 2024, got)

	_, err = v.Year("2025")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid year")
}

func TestValidators_TubeNumber(t *testing.T) {
	v := testValidators(t)

	got, err := v.TubeNumber("103")
	require.NoError(t, err)
	assert.Equal(t, 103, got)

	got, err = v.TubeNumber("B07")
	require.NoError(t, err)
	assert.Equal(t, 19, got)

	_, err = v.TubeNumber("T-9000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "was not able to translate")
}

func TestValidators_BuildingCode(t *testing.T) {
	v := testValidators(t)

	got, err := v.BuildingCode("OML")
	require.NoError(t, err)
	assert.Equal(t, "OML", got)

	// Building codes are matched case-sensitively.
	_, err = v.BuildingCode("oml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "building codes")
}

func TestValidators_SampleStatus(t *testing.T) {
	v := testValidators(t)

	got, err := v.SampleStatus("1")
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	_, err = v.SampleStatus("7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid")
}
