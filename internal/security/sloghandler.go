package security

import (
	"context"
	"log/slog"
	"regexp"
)

// secretAttrKey matches log attribute keys whose value is a credential as a
// whole: token, bot_token, webhook_secret, api_key, password, authorization.
var secretAttrKey = regexp.MustCompile(`(?i)^(.+_)?(token|secret|api_key|password|authorization)$`)

// RedactingHandler scrubs secrets from log records before the inner handler
// formats them. The message and every string, error or Stringer value go
// through the Redactor, groups included, and attributes named like a
// credential are replaced outright. Bot API transport errors embed the
// request URL and with it the bot token, which is why errors are scrubbed.
type RedactingHandler struct {
	inner    slog.Handler
	redactor *Redactor
}

var _ slog.Handler = (*RedactingHandler)(nil)

// NewRedactingHandler wraps inner with redactor.
func NewRedactingHandler(inner slog.Handler, redactor *Redactor) *RedactingHandler {
	return &RedactingHandler{inner: inner, redactor: redactor}
}

// Enabled delegates to the inner handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle rebuilds the record with a scrubbed message and attributes.
func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	out := slog.NewRecord(record.Time, record.Level, h.redactor.Redact(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.scrub(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

// WithAttrs scrubs attrs once and hands them to the inner handler.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	scrubbed := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		scrubbed[i] = h.scrub(a)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(scrubbed), redactor: h.redactor}
}

// WithGroup delegates to the inner handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}

func (h *RedactingHandler) scrub(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() != slog.KindGroup && secretAttrKey.MatchString(a.Key) {
		if !isEmpty(a.Value) {
			a.Value = slog.StringValue(RedactPlaceholder)
		}
		return a
	}

	switch a.Value.Kind() {
	case slog.KindString:
		a.Value = slog.StringValue(h.redactor.Redact(a.Value.String()))
	case slog.KindGroup:
		attrs := a.Value.Group()
		scrubbed := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			scrubbed[i] = h.scrub(ga)
		}
		a.Value = slog.GroupValue(scrubbed...)
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			a.Value = slog.StringValue(h.redactor.Redact(err.Error()))
			return a
		}
		text := a.Value.String()
		if redacted := h.redactor.Redact(text); redacted != text {
			a.Value = slog.StringValue(redacted)
		}
	}
	return a
}

func isEmpty(v slog.Value) bool {
	switch v.Kind() {
	case slog.KindString:
		return v.String() == ""
	case slog.KindAny:
		return v.Any() == nil
	}
	return false
}
