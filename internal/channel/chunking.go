package channel

import (
	"strings"
	"unicode/utf8"

	"github.com/flemzord/warden/pkg/message"
)

// SplitMessage splits msg into messages of at most maxLen bytes of text.
// Only the first part keeps ReplyToID and only the last keeps Buttons, so
// a keyboard stays under the full answer. maxLen <= 0 disables splitting.
func SplitMessage(msg message.OutboundMessage, maxLen int) []message.OutboundMessage {
	if maxLen <= 0 || len(msg.Text) <= maxLen {
		return []message.OutboundMessage{msg}
	}

	parts := SplitText(msg.Text, maxLen)
	out := make([]message.OutboundMessage, len(parts))
	for i, text := range parts {
		m := msg
		m.Text = text
		if i > 0 {
			m.ReplyToID = 0
		}
		if i < len(parts)-1 {
			m.Buttons = nil
		}
		out[i] = m
	}
	return out
}

// SplitText breaks text at line boundaries into chunks of at most maxLen
// bytes. Lines longer than maxLen are cut at rune boundaries.
func SplitText(text string, maxLen int) []string {
	var chunks []string
	var cur strings.Builder

	flush := func() {
		if chunk := strings.TrimRight(cur.String(), "\n"); chunk != "" {
			chunks = append(chunks, chunk)
		}
		cur.Reset()
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		if cur.Len()+len(line) <= maxLen {
			cur.WriteString(line)
			continue
		}
		flush()
		for len(line) > maxLen {
			cut := runeBoundary(line, maxLen)
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		cur.WriteString(line)
	}
	flush()
	return chunks
}

// runeBoundary returns the largest index <= n that does not split a
// multi-byte rune.
func runeBoundary(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	if n == 0 {
		_, size := utf8.DecodeRuneInString(s)
		return size
	}
	return n
}
