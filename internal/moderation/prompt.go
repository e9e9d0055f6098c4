package moderation

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the fixed classification prompt: the numbered rule
// list, the few-shot examples, then the literal message text.
func BuildPrompt(r Rules, text string) string {
	var b strings.Builder
	b.WriteString("Does the following message violate these rules? (Write only YES/NO):\n")
	b.WriteString("Rules:\n")
	for i, rule := range r.PromptRules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}
	if len(r.Examples) > 0 {
		b.WriteString("Examples:\n")
		for _, ex := range r.Examples {
			fmt.Fprintf(&b, "- '%s' -> %s\n", ex.Text, ex.Verdict)
		}
	}
	fmt.Fprintf(&b, "Message: '%s'\n", text)
	return b.String()
}
