// Package securitytest provides test doubles for the security package.
package securitytest

import (
	"sync"

	"github.com/flemzord/warden/internal/security"
)

// NewTestRedactor creates a Redactor with no patterns, so test strings that
// look like tokens are left intact.
func NewTestRedactor() *security.Redactor {
	return &security.Redactor{}
}

// NewTestAuditLogger creates an AuditLogger that records events in memory.
// It returns the logger and a function returning a copy of the events
// logged so far.
func NewTestAuditLogger() (*security.AuditLogger, func() []security.AuditEvent) {
	var mu sync.Mutex
	var events []security.AuditEvent
	logger := security.NewAuditLogger(security.AuditLoggerConfig{
		OnEvent: func(e security.AuditEvent) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		},
	})
	return logger, func() []security.AuditEvent {
		mu.Lock()
		defer mu.Unlock()
		return append([]security.AuditEvent(nil), events...)
	}
}
