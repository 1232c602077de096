package ai

import (
	"errors"
	"regexp"
	"strings"
)

// ErrEmptyReply marks a reply with no usable text after sanitization.
var ErrEmptyReply = errors.New("reply engine returned empty content")

var reasoningBlock = regexp.MustCompile(`(?is)<think>.*?</think>`)

// StripReasoning removes every <think>...</think> block and trims the remainder.
// Removal repeats until nothing matches, since dropping an inner block can join
// its neighbours into a new one.
func StripReasoning(text string) string {
	for {
		stripped := reasoningBlock.ReplaceAllString(text, "")
		if stripped == text {
			return strings.TrimSpace(stripped)
		}
		text = stripped
	}
}
