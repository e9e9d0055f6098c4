package channel

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/flemzord/warden/pkg/message"
)

func TestSplitText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		maxLen int
		want   []string
	}{
		{"fits", "hello", 10, []string{"hello"}},
		{"line boundary", "aaaa\nbbbb", 5, []string{"aaaa", "bbbb"}},
		{"packs lines", "aa\nbb\ncc", 6, []string{"aa\nbb", "cc"}},
		{"force split", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"blank lines dropped between chunks", "aaaaa\n\nbbbbb", 5, []string{"aaaaa", "bbbbb"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SplitText(tt.text, tt.maxLen)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("SplitText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitText_RuneSafe(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("ş", 10) // 2 bytes each
	for _, chunk := range SplitText(text, 5) {
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk %q is not valid UTF-8", chunk)
		}
		if len(chunk) > 5 {
			t.Fatalf("chunk %q exceeds limit", chunk)
		}
	}
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	msg := message.OutboundMessage{
		Channel:   "telegram",
		ReplyToID: 9,
		Text:      "first line\nsecond line",
		Buttons:   [][]message.Button{{{Text: "More", CallbackData: "more"}}},
	}
	parts := SplitMessage(msg, 12)
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(parts))
	}
	if parts[0].ReplyToID != 9 || parts[1].ReplyToID != 0 {
		t.Errorf("reply ids = %d, %d", parts[0].ReplyToID, parts[1].ReplyToID)
	}
	if parts[0].Buttons != nil || len(parts[1].Buttons) != 1 {
		t.Error("buttons should only be on the last part")
	}
	if parts[1].Channel != "telegram" {
		t.Error("channel not carried over")
	}

	if got := SplitMessage(msg, 0); len(got) != 1 {
		t.Errorf("maxLen 0 produced %d parts", len(got))
	}
}
