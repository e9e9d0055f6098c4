package channel

import (
	"strconv"
	"strings"

	"github.com/flemzord/warden/pkg/message"
)

// AllowList restricts which chats a channel serves. Entries are numeric
// chat IDs or "@username" for public chats. A nil or empty list allows
// every chat: a moderation bot serves whatever groups it was added to.
type AllowList struct {
	chats map[string]struct{}
}

// NewAllowList normalizes entries once so IsAllowed is a map lookup.
func NewAllowList(chats []string) *AllowList {
	a := &AllowList{chats: make(map[string]struct{}, len(chats))}
	for _, c := range chats {
		if c = normalize(c); c != "" {
			a.chats[c] = struct{}{}
		}
	}
	return a
}

// IsAllowed reports whether msg's chat is served.
func (a *AllowList) IsAllowed(msg message.InboundMessage) bool {
	if a == nil || len(a.chats) == 0 {
		return true
	}
	if _, ok := a.chats[strconv.FormatInt(msg.Chat.ID, 10)]; ok {
		return true
	}
	if msg.Chat.Username != "" {
		if _, ok := a.chats["@"+normalize(msg.Chat.Username)]; ok {
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (a *AllowList) Len() int {
	if a == nil {
		return 0
	}
	return len(a.chats)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
