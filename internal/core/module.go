package core

import "strings"

// ModuleID is a dotted identifier of the form "<namespace>.<name>",
// e.g. "channel.telegram" or "store.sqlite".
type ModuleID string

// Namespace returns the part before the first dot ("store" for "store.sqlite").
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

// Name returns the part after the first dot, or the whole ID when there is none.
func (id ModuleID) Name() string {
	_, name, found := strings.Cut(string(id), ".")
	if !found {
		return string(id)
	}
	return name
}

// Module is implemented by every pluggable component.
type Module interface {
	ModuleInfo() ModuleInfo
}

// ModuleInfo describes a registered module and how to instantiate it.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}
