package utils

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSerial_Format(t *testing.T) {
	for i := 0; i < 1000; i++ {
		serial := GenerateSerial()
		require.True(t, IsValidSerial(serial), "invalid serial %q", serial)

		groups := strings.Split(serial, "-")
		require.Len(t, groups, 3)
		for _, g := range groups {
			n, err := strconv.Atoi(g)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, n, 100)
			assert.LessOrEqual(t, n, 999)
		}
	}
}

func TestGenerateSerial_Varies(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		seen[GenerateSerial()] = struct{}{}
	}

	// 50 draws from 900^3 values colliding down to one is not plausible
	assert.Greater(t, len(seen), 1)
}

func TestIsValidSerial(t *testing.T) {
	tests := []struct {
		serial string
		want   bool
	}{
		{"123-456-789", true},
		{"100-100-999", true},
		{"099-456-789", false},
		{"1234-456-789", false},
		{"123-456", false},
		{"abc-def-ghi", false},
		{"", false},
		{"123-456-789 ", false},
	}

	for _, tt := range tests {
		t.Run(tt.serial, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidSerial(tt.serial))
		})
	}
}

func TestFormatIssueDate(t *testing.T) {
	saoPaulo, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	// 02:00 UTC on the 6th is still the 5th in Sao Paulo (UTC-3)
	instant := time.Date(2026, time.March, 6, 2, 0, 0, 0, time.UTC)

	assert.Equal(t, "05/03/2026", FormatIssueDate(instant, saoPaulo))
	assert.Equal(t, "06/03/2026", FormatIssueDate(instant, time.UTC))
	assert.Equal(t, "06/03/2026", FormatIssueDate(instant, nil))
}
