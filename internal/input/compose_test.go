package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	cases := []struct {
		description     string
		sources         Sources
		expectedMessage string
		expectWarning   bool
	}{
		{
			description:     "query only",
			sources:         Sources{Query: "test query"},
			expectedMessage: "test query",
		},
		{
			description:     "stdin only",
			sources:         Sources{Stdin: "stdin"},
			expectedMessage: "stdin",
		},
		{
			description:     "query and stdin",
			sources:         Sources{Query: "query", Stdin: "stdin"},
			expectedMessage: "query stdin",
		},
		{
			description:     "attachment only",
			sources:         Sources{Attachment: "file query"},
			expectedMessage: "file query",
		},
		{
			description:     "query and attachment",
			sources:         Sources{Query: "query", Attachment: "file"},
			expectedMessage: "query file",
		},
		{
			description:     "stdin and attachment",
			sources:         Sources{Stdin: "stdin", Attachment: "file"},
			expectedMessage: "stdin file",
		},
		{
			description:     "query, stdin, and attachment drops stdin with a warning",
			sources:         Sources{Query: "query", Stdin: "stdin", Attachment: "file"},
			expectedMessage: "query file",
			expectWarning:   true,
		},
		{
			description:     "query and terminal output",
			sources:         Sources{Query: "query", TerminalOutput: "last out"},
			expectedMessage: "query last out",
		},
		{
			description:     "query, attachment, and terminal output",
			sources:         Sources{Query: "query", Attachment: "file", TerminalOutput: "last out"},
			expectedMessage: "query file last out",
		},
		{
			description:     "all four present drops terminal output silently",
			sources:         Sources{Query: "query", Stdin: "stdin", Attachment: "file", TerminalOutput: "last out"},
			expectedMessage: "query file",
			expectWarning:   true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			result, err := Compose(tc.sources)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedMessage, result.Message)
			if tc.expectWarning {
				assert.NotEmpty(t, result.Warning)
			} else {
				assert.Empty(t, result.Warning)
			}
		})
	}
}

func TestComposeNoInputReturnsValueError(t *testing.T) {
	_, err := Compose(Sources{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No input provided")
}

func TestComposeRuleNinetyNineDropsTerminalOutputNotStdinWarningOnly(t *testing.T) {
	// Pinning the documented quirk: all four sources present yields the same
	// composed message as query+attachment alone, with terminal_output
	// vanishing from both the message and any explicit mention of being
	// dropped.
	withAll, err := Compose(Sources{Query: "q", Stdin: "s", Attachment: "a", TerminalOutput: "t"})
	require.NoError(t, err)
	withoutTerminal, err := Compose(Sources{Query: "q", Stdin: "s", Attachment: "a"})
	require.NoError(t, err)
	assert.Equal(t, withoutTerminal.Message, withAll.Message)
}
