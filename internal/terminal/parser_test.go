package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleBlock(t *testing.T) {
	content := `{"command":"ls","output":"a.txt b.txt"}`
	blocks, err := Parse(content)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "ls", blocks[0].Command)
	assert.Equal(t, "a.txt b.txt", blocks[0].Output)
}

func TestParseMultipleBlocks(t *testing.T) {
	content := `{"command":"ls","output":"a.txt"}
{"command":"pwd","output":"/home/user"}`
	blocks, err := Parse(content)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "ls", blocks[0].Command)
	assert.Equal(t, "pwd", blocks[1].Command)
	assert.Equal(t, "/home/user", blocks[1].Output)
}

func TestParseStripsANSIEscapes(t *testing.T) {
	content := "{\"command\":\"ls\",\"output\":\"\x1b[32mgreen\x1b[0m text\"}"
	blocks, err := Parse(content)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "green text", blocks[0].Output)
}

func TestParseDropsTrailingExitBlock(t *testing.T) {
	content := `{"command":"ls","output":"a.txt"}
{"command":"exit","output":"exit"}`
	blocks, err := Parse(content)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "ls", blocks[0].Command)
}

func TestParseStopsAtMalformedBlockKeepingPriorBlocks(t *testing.T) {
	content := `{"command":"ls","output":"a.txt"}
{"command":"pwd"` // truncated, as if the writer was killed mid-block
	blocks, err := Parse(content)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "ls", blocks[0].Command)
}

func TestParseEmptyContent(t *testing.T) {
	blocks, err := Parse("")
	require.NoError(t, err)
	assert.Nil(t, blocks)
}

func TestFindOutputByIndex(t *testing.T) {
	blocks := []Block{
		{Command: "ls", Output: "first"},
		{Command: "pwd", Output: "second"},
		{Command: "whoami", Output: "third"},
	}

	assert.Equal(t, "first", FindOutputByIndex(blocks, 0))
	assert.Equal(t, "third", FindOutputByIndex(blocks, -1))
	assert.Equal(t, "second", FindOutputByIndex(blocks, -2))
	assert.Equal(t, "", FindOutputByIndex(blocks, 99))
	assert.Equal(t, "", FindOutputByIndex(blocks, -99))
	assert.Equal(t, "", FindOutputByIndex(nil, 0))
}
