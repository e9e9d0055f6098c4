// Package moderation decides whether a chat message breaks the group rules
// and drives the per-user warn → warn → ban escalation that follows.
//
// The package is transport-agnostic: it consumes a Transport (admin lookup,
// send, delete, ban), an Oracle (LLM completion) and a Persistence backend,
// all injected by the caller.
package moderation

import (
	"fmt"
	"time"
)

// Message is an inbound chat message, immutable once received. Whether the
// sender is an admin is looked up lazily through the Transport.
type Message struct {
	ChatID    int64
	UserID    int64
	MessageID int
	Text      string
	Timestamp time.Time
}

// Verdict is the classifier's binary output for one message.
type Verdict int

// Verdict values.
const (
	Clean Verdict = iota
	Violation
)

func (v Verdict) String() string {
	if v == Violation {
		return "violation"
	}
	return "clean"
}

// Reason records which classification step produced a verdict.
type Reason string

// Classification reasons.
const (
	ReasonTooShort    Reason = "too_short"
	ReasonWhitelisted Reason = "whitelist"
	ReasonSafePhrase  Reason = "safe_phrase"
	ReasonTopicTerm   Reason = "topic_term"
	ReasonOracle      Reason = "oracle"
	ReasonOracleError Reason = "oracle_error"
)

// ActionKind is the enforcement outcome of handling one message.
type ActionKind int

// Action kinds.
const (
	ActionNone ActionKind = iota
	ActionWarned
	ActionBanned
)

func (k ActionKind) String() string {
	switch k {
	case ActionWarned:
		return "warned"
	case ActionBanned:
		return "banned"
	default:
		return "none"
	}
}

// Action is what HandleMessage did. Count is the escalation count that led
// to the action (for a ban, the count reached before the reset).
type Action struct {
	Kind  ActionKind
	Count int
}

func (a Action) String() string {
	if a.Kind == ActionNone {
		return "none"
	}
	return fmt.Sprintf("%s(%d)", a.Kind, a.Count)
}

// None, Warned and Banned build Actions.
func None() Action            { return Action{Kind: ActionNone} }
func Warned(count int) Action { return Action{Kind: ActionWarned, Count: count} }
func Banned(count int) Action { return Action{Kind: ActionBanned, Count: count} }
