package extract

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateISORoundTrip(t *testing.T) {
	for _, iso := range []string{"2024-02-01", "2025-12-31", "2000-01-01"} {
		d, err := ParseISODate(iso)
		require.NoError(t, err)
		assert.Equal(t, iso, d.ISO())

		back, err := ParseISODate(d.ISO())
		require.NoError(t, err)
		assert.Equal(t, d, back)
	}
}

func TestNewDateRejectsInvalid(t *testing.T) {
	_, err := NewDate(2024, 13, 1)
	assert.Error(t, err)
	_, err = NewDate(2023, 2, 29)
	assert.Error(t, err)
	_, err = NewDate(2024, 2, 29) // leap year
	assert.NoError(t, err)
}

func TestDateJSON(t *testing.T) {
	d, err := NewDate(2024, 5, 7)
	require.NoError(t, err)
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-07"`, string(data))

	var back Date
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d, back)
}

func TestParseAmountNormalization(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"31,46", "31.46"},
		{"1 234,56", "1234.56"},
		{"17.50", "17.5"},
		{"5,00 ", "5"},
	}
	for _, tt := range tests {
		amt, err := ParseAmount(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, amt.String(), tt.in)
	}
}

func TestParseAmountFailures(t *testing.T) {
	for _, in := range []string{"", "   ", ".", "1.234.56"} {
		_, err := ParseAmount(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestAmountFormatRoundTrip(t *testing.T) {
	for _, s := range []string{"31.46", "0.01", "1234.5", "17"} {
		amt := decimal.RequireFromString(s)
		back, err := ParseAmount(FormatAmount(amt))
		require.NoError(t, err)
		assert.True(t, amt.Equal(back), "round trip of %s gave %s", s, back)
	}
}

func TestRecomputeOverall(t *testing.T) {
	rec := &ExtractedRecord{}
	rec.RecomputeOverall(0)
	assert.Zero(t, rec.OverallConfidence)

	rec.SetConfidence(FieldSupplierName, 0.9)
	rec.SetConfidence(FieldTotalAmount, 0.7)
	rec.SetConfidence(FieldVATAmount, 0) // ignored
	rec.RecomputeOverall(0)
	assert.InDelta(t, 0.8, rec.OverallConfidence, 1e-9)

	rec.RecomputeOverall(0.5) // capped at 1
	assert.InDelta(t, 1.0, rec.OverallConfidence, 1e-9)
}
