package terminal

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"
)

// ansiEscape matches the same CSI/escape sequences the original parser
// strips before returning output text to a caller.
var ansiEscape = regexp.MustCompile("\x1B(?:[@-Z\\\\-_]|\\[[0-?]*[ -/]*[@-~])")

// Block is one parsed command/output record from a terminal log.
type Block struct {
	Command string `json:"command"`
	Output  string `json:"output"`
}

// ParseFile reads a terminal log written by Recorder and returns its
// blocks in order. The log format is one JSON object per line, so blocks
// are recovered by splitting on the "}\n{" boundary between consecutive
// objects and restoring the braces that split removed. A trailing block
// whose Output is exactly "exit" is dropped,
// matching the original parser's end-of-session marker.
func ParseFile(path string) ([]Block, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(raw))
}

func Parse(content string) ([]Block, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}

	rawBlocks := strings.Split(content, "}\n{")
	blocks := make([]Block, 0, len(rawBlocks))

	for i, raw := range rawBlocks {
		switch {
		case len(rawBlocks) == 1:
			// already a complete object
		case i == 0:
			raw += "}"
		case i == len(rawBlocks)-1:
			raw = "{" + raw
		default:
			raw = "{" + raw + "}"
		}

		var block Block
		if err := json.Unmarshal([]byte(raw), &block); err != nil {
			return blocks, nil
		}
		block.Output = ansiEscape.ReplaceAllString(block.Output, "")
		blocks = append(blocks, block)
	}

	if len(blocks) > 0 && blocks[len(blocks)-1].Output == "exit" {
		blocks = blocks[:len(blocks)-1]
	}

	return blocks, nil
}

// FindOutputByIndex returns the output field of the block at index,
// supporting negative indices counted from the end the same way the
// original parser's Python-style list indexing does. Returns "" if index
// is out of range, instead of an error.
func FindOutputByIndex(blocks []Block, index int) string {
	n := len(blocks)
	if n == 0 {
		return ""
	}
	if index < 0 {
		index += n
	}
	if index < 0 || index >= n {
		return ""
	}
	return blocks[index].Output
}
