package backtest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradecore/market"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadBarsCSV(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, `time,symbol,open,high,low,close,volume
2024-03-04T09:00:00Z,EUR_USD,1.1000,1.1010,1.0995,1.1005,120
2024-03-04T09:05:00Z,EUR_USD,1.1005,1.1020,1.1000,1.1018,90
`)

	bars, err := LoadBarsCSV(path, market.M5)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, "EUR_USD", bars[0].Symbol)
	assert.Equal(t, market.M5, bars[0].Timeframe)
	assert.Equal(t, 1.1000, bars[0].Open)
	assert.Equal(t, 1.1010, bars[0].High)
	assert.Equal(t, 1.0995, bars[0].Low)
	assert.Equal(t, 1.1005, bars[0].Close)
	assert.Equal(t, 120.0, bars[0].Volume)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), bars[0].Time)
}

func TestLoadBarsCSVHeaderless(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, "2024-03-04T09:00:00Z,EUR_USD,1.1,1.1,1.1,1.1,0\n")
	bars, err := LoadBarsCSV(path, market.M5)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestLoadBarsCSVRejectsBadData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"header only", "time,symbol,open,high,low,close,volume\n"},
		{"short row", "2024-03-04T09:00:00Z,EUR_USD,1.1\n"},
		{"bad time", "yesterday,EUR_USD,1.1,1.1,1.1,1.1,0\n"},
		{"bad number", "2024-03-04T09:00:00Z,EUR_USD,one,1.1,1.1,1.1,0\n"},
		{"high below low", "2024-03-04T09:00:00Z,EUR_USD,1.1,1.0,1.2,1.1,0\n"},
		{
			"time does not advance",
			"2024-03-04T09:00:00Z,EUR_USD,1.1,1.1,1.1,1.1,0\n" +
				"2024-03-04T09:00:00Z,EUR_USD,1.1,1.1,1.1,1.1,0\n",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeCSV(t, tt.content)
			_, err := LoadBarsCSV(path, market.M5)
			assert.Error(t, err)
		})
	}
}

func TestLoadBarsCSVMissingFile(t *testing.T) {
	t.Parallel()
	_, err := LoadBarsCSV(filepath.Join(t.TempDir(), "nope.csv"), market.M5)
	assert.Error(t, err)
}
