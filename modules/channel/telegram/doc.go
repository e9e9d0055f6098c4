// Package telegram implements the Telegram Bot API channel.
//
// It bridges Telegram and the platform-agnostic message model:
//
//   - Inbound conversion of text messages, member joins and button presses
//   - Outbound replies with inline keyboards, chunked via channel.SplitMessage
//   - Two delivery modes: long-polling with a bounded worker pool (default) and webhook
//   - A moderation.Transport (admin lookup, delete, ban) with a cached admin check
//
// The module registers itself as "channel.telegram" via init() and follows
// the module lifecycle: Configure → Provision → Validate → Start → Stop.
//
// No external Telegram library is used; the module talks to the Bot API
// with net/http and encoding/json.
package telegram
