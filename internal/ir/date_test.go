package ir

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2026, Month: time.March, Day: 15}, d)
	assert.Equal(t, "2026-03-15", d.String())

	_, err = ParseDate("15/03/2026")
	assert.Error(t, err)
}

func TestDate_AddMonthsClamps(t *testing.T) {
	tests := []struct {
		from   string
		months int
		want   string
	}{
		{"2026-01-31", 1, "2026-02-28"},
		{"2028-01-31", 1, "2028-02-29"},
		{"2026-03-31", 3, "2026-06-30"},
		{"2026-11-15", 3, "2027-02-15"},
		{"2026-05-10", 1, "2026-06-10"},
	}
	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			got := MustParseDate(tt.from).AddMonths(tt.months)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFrequency_Advance(t *testing.T) {
	base := MustParseDate("2026-01-31")
	assert.Equal(t, "2026-02-01", FrequencyDaily.Advance(base).String())
	assert.Equal(t, "2026-02-07", FrequencyWeekly.Advance(base).String())
	assert.Equal(t, "2026-02-14", FrequencyBiweekly.Advance(base).String())
	assert.Equal(t, "2026-02-28", FrequencyMonthly.Advance(base).String())
	assert.Equal(t, "2026-04-30", FrequencyQuarterly.Advance(base).String())
}

func TestDate_Comparisons(t *testing.T) {
	a := MustParseDate("2026-01-01")
	b := MustParseDate("2026-01-11")
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.After(a))
	assert.Equal(t, 10, a.DaysUntil(b))
	assert.Equal(t, -10, b.DaysUntil(a))
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		Due *Date `json:"due,omitempty"`
	}
	data, err := json.Marshal(wrapper{Due: DatePtr(MustParseDate("2026-07-04"))})
	require.NoError(t, err)
	assert.Equal(t, `{"due":"2026-07-04"}`, string(data))

	var decoded wrapper
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotNil(t, decoded.Due)
	assert.Equal(t, "2026-07-04", decoded.Due.String())

	assert.Error(t, json.Unmarshal([]byte(`{"due":"July 4"}`), &decoded))
}

func TestDate_JSONEmptyIsZero(t *testing.T) {
	var decoded struct {
		Due *Date `json:"due"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"due":""}`), &decoded))
	require.NotNil(t, decoded.Due)
	assert.True(t, decoded.Due.IsZero())
}
