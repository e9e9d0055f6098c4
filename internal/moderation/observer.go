package moderation

import "time"

// Observer receives moderation events. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	Classified(reason Reason, verdict Verdict, elapsed time.Duration)
	ActionTaken(msg Message, action Action)
	CounterReset(chatID, userID, by int64)
	SideEffectFailed(op string, err error)
	PersistenceFailed(err error)
}

// NopObserver ignores every event. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) Classified(Reason, Verdict, time.Duration) {}
func (NopObserver) ActionTaken(Message, Action)               {}
func (NopObserver) CounterReset(int64, int64, int64)          {}
func (NopObserver) SideEffectFailed(string, error)            {}
func (NopObserver) PersistenceFailed(error)                   {}

// Observers fans every event out to each member.
type Observers []Observer

func (o Observers) Classified(reason Reason, verdict Verdict, elapsed time.Duration) {
	for _, obs := range o {
		obs.Classified(reason, verdict, elapsed)
	}
}

func (o Observers) ActionTaken(msg Message, action Action) {
	for _, obs := range o {
		obs.ActionTaken(msg, action)
	}
}

func (o Observers) CounterReset(chatID, userID, by int64) {
	for _, obs := range o {
		obs.CounterReset(chatID, userID, by)
	}
}

func (o Observers) SideEffectFailed(op string, err error) {
	for _, obs := range o {
		obs.SideEffectFailed(op, err)
	}
}

func (o Observers) PersistenceFailed(err error) {
	for _, obs := range o {
		obs.PersistenceFailed(err)
	}
}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return NopObserver{}
	}
	return o
}
