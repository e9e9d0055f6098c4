package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/flemzord/warden/internal/security"
	"github.com/go-chi/chi/v5"
)

// WebhookDispatcherService is the service name the dispatcher is
// registered under. Channel modules look it up to mount their receivers.
const WebhookDispatcherService = "gateway.webhook_dispatcher"

// ErrWebhookUnauthorized is wrapped by handlers that reject a payload's
// credentials. The dispatcher answers it with 401 instead of 500.
var ErrWebhookUnauthorized = errors.New("webhook unauthorized")

// WebhookHandler processes a validated webhook payload.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, source string, body []byte, headers http.Header) error
}

type webhookEntry struct {
	handler WebhookHandler
	secret  string
}

// WebhookDispatcher routes incoming webhooks to registered handlers with
// optional HMAC validation and payload limits.
type WebhookDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]webhookEntry
	secrets  map[string]string
	logger   *slog.Logger
	audit    *security.AuditLogger
	maxBody  int
	maxDepth int
}

// NewWebhookDispatcher creates a ready-to-use dispatcher.
func NewWebhookDispatcher(logger *slog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		handlers: make(map[string]webhookEntry),
		secrets:  make(map[string]string),
		logger:   logger,
		maxBody:  security.DefaultMaxMessageSize,
		maxDepth: security.DefaultMaxJSONDepth,
	}
}

// SetLimits overrides the body size and JSON depth limits. Zero keeps the
// current value.
func (d *WebhookDispatcher) SetLimits(maxBody, maxDepth int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if maxBody > 0 {
		d.maxBody = maxBody
	}
	if maxDepth > 0 {
		d.maxDepth = maxDepth
	}
}

// SetAuditLogger records rejected webhooks to a.
func (d *WebhookDispatcher) SetAuditLogger(a *security.AuditLogger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.audit = a
}

// SetSecret configures the HMAC secret for source ahead of registration.
func (d *WebhookDispatcher) SetSecret(source, secret string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.secrets[source] = secret
	if e, ok := d.handlers[source]; ok && e.secret == "" {
		e.secret = secret
		d.handlers[source] = e
	}
}

// Register adds a handler for the given source with an optional HMAC
// secret. An empty secret falls back to the one set with SetSecret.
func (d *WebhookDispatcher) Register(source string, h WebhookHandler, secret string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if secret == "" {
		secret = d.secrets[source]
	}
	d.handlers[source] = webhookEntry{handler: h, secret: secret}
}

// Sources returns the registered source names.
func (d *WebhookDispatcher) Sources() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.handlers))
	for s := range d.handlers {
		out = append(out, s)
	}
	return out
}

// ServeHTTP implements http.Handler. It extracts the source from the chi URL param,
// validates HMAC if configured, and dispatches to the registered handler.
func (d *WebhookDispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	source := chi.URLParam(r, "source")
	if source == "" {
		http.Error(w, "missing source", http.StatusBadRequest)
		return
	}

	d.mu.RLock()
	entry, ok := d.handlers[source]
	maxBody, maxDepth, audit := d.maxBody, d.maxDepth, d.audit
	d.mu.RUnlock()

	if !ok {
		d.logger.Warn("webhook received for unregistered source", "source", source)
		http.Error(w, "unknown source", http.StatusNotFound)
		return
	}

	// One extra byte lets ValidatePayload report the overflow.
	body, err := io.ReadAll(io.LimitReader(r.Body, int64(maxBody)+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if err := security.ValidatePayload(body, maxBody, maxDepth); err != nil {
		d.logger.Warn("webhook payload rejected", "source", source, "error", err)
		if errors.Is(err, security.ErrMessageTooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if entry.secret != "" {
		sig := r.Header.Get("X-Signature-256")
		if !validateHMAC(body, sig, entry.secret) {
			d.deny(audit, r, source, "invalid signature")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	if err := entry.handler.HandleWebhook(r.Context(), source, body, r.Header); err != nil {
		if errors.Is(err, ErrWebhookUnauthorized) {
			d.deny(audit, r, source, err.Error())
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		d.logger.Error("webhook handler failed", "source", source, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func (d *WebhookDispatcher) deny(audit *security.AuditLogger, r *http.Request, source, detail string) {
	d.logger.Warn("webhook denied", "source", source, "remote_addr", r.RemoteAddr)
	audit.Log(security.AuditEvent{
		Type:   security.EventWebhookDenied,
		Actor:  r.RemoteAddr,
		Detail: detail,
		Metadata: map[string]string{
			"source": source,
		},
	})
}

// validateHMAC checks HMAC-SHA256 signature in constant time.
func validateHMAC(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
