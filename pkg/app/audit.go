package app

import (
	"strconv"

	"github.com/flemzord/warden/internal/moderation"
	"github.com/flemzord/warden/internal/security"
)

// auditObserver records bans and admin resets in the audit trail.
type auditObserver struct {
	moderation.NopObserver
	audit *security.AuditLogger
}

func newAuditObserver(audit *security.AuditLogger) *auditObserver {
	return &auditObserver{audit: audit}
}

func (o *auditObserver) ActionTaken(msg moderation.Message, action moderation.Action) {
	if action.Kind != moderation.ActionBanned {
		return
	}
	o.audit.Log(security.AuditEvent{
		Type:   security.EventUserBanned,
		Actor:  "policy",
		ChatID: msg.ChatID,
		UserID: msg.UserID,
		Detail: action.String(),
	})
}

// CounterReset records chat command resets. Resets with no chat come from
// the admin API, which audits them itself with the caller's address.
func (o *auditObserver) CounterReset(chatID, userID, by int64) {
	if chatID == 0 {
		return
	}
	o.audit.Log(security.AuditEvent{
		Type:   security.EventViolationReset,
		Actor:  strconv.FormatInt(by, 10),
		ChatID: chatID,
		UserID: userID,
		Detail: "chat command",
	})
}
