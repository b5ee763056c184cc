// Package terminal implements the session-recording pty wrapper and the
// log parser that later reads it back, matching the original daemon's
// terminal reader/parser byte for byte.
package terminal

import (
	"bytes"
	"encoding/json"
	"io"

	"golang.org/x/sys/unix"
)

// PromptMarker delimits command boundaries in the captured shell prompt,
// matching the original reader's PROMPT_MARKER constant.
const PromptMarker = "%c"

// Recorder implements the state machine of the original TerminalRecorder:
// it watches pty output for PromptMarker to tell command text apart from
// command output, buffering each until a full command/output pair is ready
// to flush as one JSON block.
type Recorder struct {
	out io.Writer

	inCommand      bool
	currentCommand bytes.Buffer
	currentOutput  bytes.Buffer
}

func NewRecorder(out io.Writer) *Recorder {
	return &Recorder{out: out}
}

type jsonBlock struct {
	Command string `json:"command"`
	Output  string `json:"output"`
}

// WriteJSONBlock flushes the buffered command/output pair as one trimmed,
// ANSI-stripped, newline-terminated JSON object, then resets the buffers
// for the next command.
func (r *Recorder) WriteJSONBlock() error {
	block := jsonBlock{
		Command: trimSpace(ansiEscape.ReplaceAllString(r.currentCommand.String(), "")),
		Output:  trimSpace(ansiEscape.ReplaceAllString(r.currentOutput.String(), "")),
	}
	r.currentCommand.Reset()
	r.currentOutput.Reset()

	encoded, err := json.Marshal(block)
	if err != nil {
		return err
	}
	if _, err := r.out.Write(append(encoded, '\n')); err != nil {
		return err
	}
	return nil
}

// Read implements the pty.spawn read-callback signature: it reads one
// chunk of data from fd and returns it unmodified so it can still be
// forwarded to the user's terminal. As a side effect it feeds the
// recorder's state machine. StartCapturing does not use it; its copy loop
// reads the pty master itself and passes each chunk to consume.
func (r *Recorder) Read(fd int) ([]byte, error) {
	buf := make([]byte, 1024)
	n, err := readFd(fd, buf)
	if n > 0 {
		r.consume(buf[:n])
	}
	return buf[:n], err
}

func (r *Recorder) consume(data []byte) {
	markerBytes := []byte(PromptMarker)

	for len(data) > 0 {
		idx := bytes.Index(data, markerBytes)
		if idx == -1 {
			r.appendCurrent(data)
			return
		}

		r.appendCurrent(data[:idx])

		if !r.inCommand {
			// Marker seen outside a command: output just ended, a new
			// command is starting.
			if r.currentCommand.Len() > 0 || r.currentOutput.Len() > 0 {
				_ = r.WriteJSONBlock()
			}
			r.inCommand = true
		} else {
			// Marker seen while in a command: command text just ended,
			// output is starting.
			r.inCommand = false
		}

		data = data[idx+len(markerBytes):]
	}
}

func (r *Recorder) appendCurrent(data []byte) {
	if len(data) == 0 {
		return
	}
	if r.inCommand {
		r.currentCommand.Write(data)
	} else {
		r.currentOutput.Write(data)
	}
}

func readFd(fd int, buf []byte) (int, error) {
	return unix.Read(fd, buf)
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}
