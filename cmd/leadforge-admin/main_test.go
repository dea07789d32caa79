package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlertData(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[string]string
		expectError bool
	}{
		{name: "empty", input: "", expected: nil},
		{name: "single pair", input: "job_id=123", expected: map[string]string{"job_id": "123"}},
		{
			name:     "multiple pairs with spaces",
			input:    "job_id=123, job_type=email",
			expected: map[string]string{"job_id": "123", "job_type": "email"},
		},
		{name: "missing separator", input: "job_id", expectError: true},
		{name: "empty key", input: "=value", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAlertData(tt.input)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseIDFlag(t *testing.T) {
	id, err := parseIDFlag("jobs get", []string{"-id", "job-42"})
	require.NoError(t, err)
	assert.Equal(t, "job-42", id)

	_, err = parseIDFlag("jobs get", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires -id")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-10", truncate("exactly-10", 10))
	assert.Equal(t, "longer ...", truncate("longer than ten", 10))
}
