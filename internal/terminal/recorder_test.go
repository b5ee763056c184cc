package terminal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecorderConsumeEmitsCommandOutputBlocks(t *testing.T) {
	var out bytes.Buffer
	rec := NewRecorder(&out)

	// Marker, command text, marker (end command / start output), output
	// text, marker (end output / start next command).
	rec.consume([]byte(PromptMarker + "ls -la" + PromptMarker + "total 0\n" + PromptMarker))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var block Block
	require.NoError(t, json.Unmarshal(lines[0], &block))
	require.Equal(t, "ls -la", block.Command)
	require.Equal(t, "total 0", block.Output)
}

func TestRecorderConsumeWithoutMarkerBuffersAsOutput(t *testing.T) {
	var out bytes.Buffer
	rec := NewRecorder(&out)

	rec.consume([]byte("no marker yet"))
	require.Equal(t, "no marker yet", rec.currentOutput.String())
	require.Equal(t, 0, out.Len())
}
