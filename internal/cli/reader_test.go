package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonBlockingReader_ReadLine(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedValue string
		expectError   bool
	}{
		{name: "successful read", input: "test input\n", expectedValue: "test input"},
		{name: "read with extra whitespace", input: "  test input  \n", expectedValue: "test input"},
		{name: "empty line", input: "\n", expectedValue: ""},
		{name: "last line without newline", input: "yes", expectedValue: "yes"},
		{name: "no input", input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nbr := NewNonBlockingReader(strings.NewReader(tt.input))

			result, err := nbr.ReadLine(context.Background())

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedValue, result)
		})
	}
}

func TestNonBlockingReader_ContextCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pr.Close() }()
	defer func() { _ = pw.Close() }()

	nbr := NewNonBlockingReader(pr)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := nbr.ReadLine(ctx)
	assert.Equal(t, ErrInputCancelled, err)
}

func TestNonBlockingReader_MultipleReads(t *testing.T) {
	nbr := NewNonBlockingReader(strings.NewReader("line1\nline2\n"))
	ctx := context.Background()

	line1, err := nbr.ReadLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "line1", line1)

	line2, err := nbr.ReadLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "line2", line2)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{input: "y\n", expected: true},
		{input: "YES\n", expected: true},
		{input: "n\n", expected: false},
		{input: "\n", expected: false},
		{input: "sure\n", expected: false},
		{input: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			nbr := NewNonBlockingReader(strings.NewReader(tt.input))

			ok, err := nbr.Confirm(context.Background(), &out, "Delete goal Trip?")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
			assert.Contains(t, out.String(), "Delete goal Trip? [y/N]")
		})
	}
}
