package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC)

	tests := []string{
		"15-07-2024",
		"15/07/2024",
		"15-Jul-2024",
		"15th July 2024",
		" 15th  July 2024 ",
		"2024-07-15",
	}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			got := ParseDate(in)
			require.NotNil(t, got)
			assert.True(t, want.Equal(*got), "got %s", got)
		})
	}
}

func TestParseDateOrdinals(t *testing.T) {
	tests := map[string]time.Time{
		"1st August 2023":    time.Date(2023, time.August, 1, 0, 0, 0, 0, time.UTC),
		"2nd March 2022":     time.Date(2022, time.March, 2, 0, 0, 0, 0, time.UTC),
		"23rd December 2021": time.Date(2021, time.December, 23, 0, 0, 0, 0, time.UTC),
		"5-8-2020":           time.Date(2020, time.August, 5, 0, 0, 0, 0, time.UTC),
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			got := ParseDate(in)
			require.NotNil(t, got)
			assert.True(t, want.Equal(*got), "got %s", got)
		})
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, in := range []string{"", "   ", "--", "not a date", "32-13-2024", "NA"} {
		t.Run(in, func(t *testing.T) {
			assert.Nil(t, ParseDate(in))
		})
	}
}
