package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractToken(t *testing.T) {
	testCases := []struct {
		name     string
		script   string
		expected string
	}{
		{
			name:     "token in quoted url",
			script:   `const api = "https://apiabfuhrtermine.waswob.de/api/download-json?token=4ca39186e";`,
			expected: "4ca39186e",
		},
		{
			name:     "token in template literal",
			script:   "fetch(`${base}/api/download-json?token=abc123`)",
			expected: "abc123",
		},
		{
			name:     "token terminated by newline",
			script:   "var token=xyz789\nvar other = 1;",
			expected: "xyz789",
		},
		{
			name:     "capture runs to the terminator",
			script:   `url = "download-json?token=abc&cached=1";`,
			expected: "abc&cached=1",
		},
		{
			name:     "first occurrence wins",
			script:   `a = "x?token=first"; b = "y?token=second";`,
			expected: "first",
		},
		{
			name:     "empty capture is a valid token",
			script:   `url = "download-json?token=";`,
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := extractToken(tc.script)

			assert.NoError(t, err, "unexpected error for case: %s", tc.name)
			assert.Equal(t, tc.expected, token, "token mismatch for case: %s", tc.name)
		})
	}
}

func TestExtractToken_NotFound(t *testing.T) {
	testCases := []struct {
		name   string
		script string
	}{
		{name: "empty script", script: ""},
		{name: "no token assignment", script: `console.log("hello");`},
		{name: "different parameter name", script: `url = "download-json?access_key=abc";`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := extractToken(tc.script)

			assert.ErrorIs(t, err, ErrTokenNotFound, "expected ErrTokenNotFound for case: %s", tc.name)
		})
	}
}
