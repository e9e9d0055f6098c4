package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/warden/internal/channel"
	"github.com/flemzord/warden/internal/core"
	"github.com/flemzord/warden/internal/gateway"
	"github.com/flemzord/warden/internal/moderation"
	"github.com/flemzord/warden/pkg/message"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Telegram{})
}

// Compile-time interface guards.
var (
	_ channel.Channel          = (*Telegram)(nil)
	_ channel.CallbackAnswerer = (*Telegram)(nil)
	_ core.Configurable        = (*Telegram)(nil)
	_ core.Provisioner         = (*Telegram)(nil)
	_ core.Validator           = (*Telegram)(nil)
	_ core.Starter             = (*Telegram)(nil)
	_ core.Stopper             = (*Telegram)(nil)
)

// TransportService is the service name under which the moderation
// transport is registered.
const TransportService = moderation.TransportService

const startupTimeout = 15 * time.Second

// Telegram implements the Telegram Bot API channel.
type Telegram struct {
	config    Config
	client    *Client
	transport *Transport
	logger    *slog.Logger
	allowList *channel.AllowList
	inbox     channel.InboxFunc
	botUser   *User
	appCtx    *core.AppContext

	// Set during Start() depending on mode.
	poller          *Poller
	webhookReceiver *WebhookReceiver
}

// ModuleInfo implements core.Module.
func (t *Telegram) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "channel.telegram",
		New: func() core.Module { return &Telegram{} },
	}
}

// Configure implements core.Configurable.
func (t *Telegram) Configure(node *yaml.Node) error {
	if err := node.Decode(&t.config); err != nil {
		return fmt.Errorf("telegram: decode config: %w", err)
	}
	t.config.defaults()
	return nil
}

// Provision implements core.Provisioner. It registers the moderation
// transport so the policy can ban and delete through this bot.
func (t *Telegram) Provision(ctx *core.AppContext) error {
	t.config.defaults()
	t.appCtx = ctx
	t.logger = ctx.Logger
	t.client = NewClient(t.config.Token, t.config.APIURL)
	t.allowList = channel.NewAllowList(t.config.AllowChats)
	t.transport = NewTransport(t.client, t.sendOutbound, t.config.AdminCacheTTL, t.logger)

	ctx.RegisterService(TransportService, t.transport)
	return nil
}

// Validate implements core.Validator.
func (t *Telegram) Validate() error {
	if t.config.Token == "" {
		return errors.New("telegram: token is required")
	}
	switch t.config.Mode {
	case "polling", "webhook":
	default:
		return fmt.Errorf("telegram: invalid mode %q (must be \"polling\" or \"webhook\")", t.config.Mode)
	}
	if t.config.Mode == "webhook" && t.config.WebhookURL == "" {
		return errors.New("telegram: webhook_url is required when mode is \"webhook\"")
	}
	return t.config.validate()
}

// Transport returns the moderation transport backed by this bot.
func (t *Telegram) Transport() moderation.Transport {
	return t.transport
}

// Start implements core.Starter. It validates the bot token, then starts
// either polling or webhook mode.
func (t *Telegram) Start() error {
	if t.inbox == nil {
		return fmt.Errorf("telegram: %w, call SetInbox before Start", channel.ErrNoInbox)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	user, err := t.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram: getMe failed (check token): %w", err)
	}
	t.botUser = user
	t.logger.Info("telegram bot authenticated",
		"id", user.ID,
		"username", user.Username,
		"allowed_chats", t.allowList.Len(),
	)

	channelName := string(t.ModuleInfo().ID)

	switch t.config.Mode {
	case "polling":
		// A webhook left over from a previous deployment makes getUpdates fail.
		if err := t.client.DeleteWebhook(ctx); err != nil {
			t.logger.Warn("telegram: deleteWebhook before polling failed", "error", err)
		}
		t.poller = NewPoller(t.client, t.inbox, t.allowList, t.logger, channelName, t.config)
		t.poller.Start()
		t.logger.Info("telegram polling started",
			"timeout", t.config.PollingTimeout,
			"workers", t.config.Workers,
		)

	case "webhook":
		if t.config.WebhookSecret == "" {
			t.logger.Warn("telegram webhook running without secret_token, " +
				"set webhook_secret for production deployments")
		}
		t.webhookReceiver = NewWebhookReceiver(t.inbox, t.allowList, t.logger, channelName, t.config.WebhookSecret)

		if err := t.registerWebhook(); err != nil {
			return err
		}

		if err := t.client.SetWebhook(ctx, SetWebhookRequest{
			URL:            t.config.WebhookURL,
			SecretToken:    t.config.WebhookSecret,
			AllowedUpdates: t.config.AllowedUpdates,
		}); err != nil {
			return fmt.Errorf("telegram: setWebhook failed: %w", err)
		}
		t.logger.Info("telegram webhook configured",
			"url", t.config.WebhookURL,
		)
	}

	return nil
}

// registerWebhook resolves the gateway webhook dispatcher from the service
// registry and registers the WebhookReceiver as a handler.
func (t *Telegram) registerWebhook() error {
	svc, ok := t.appCtx.GetService(gateway.WebhookDispatcherService)
	if !ok {
		return errors.New("telegram: gateway.webhook_dispatcher service not found (is the gateway module loaded?)")
	}

	dispatcher, ok := svc.(*gateway.WebhookDispatcher)
	if !ok {
		return errors.New("telegram: gateway.webhook_dispatcher is not a *gateway.WebhookDispatcher")
	}

	// No HMAC secret: Telegram authenticates with its own
	// X-Telegram-Bot-Api-Secret-Token header, checked by the receiver.
	dispatcher.Register("telegram", t.webhookReceiver, "")
	return nil
}

// Stop implements core.Stopper.
func (t *Telegram) Stop(ctx context.Context) error {
	t.logger.Info("telegram channel stopping")

	switch t.config.Mode {
	case "polling":
		if t.poller != nil {
			return t.poller.Stop(ctx)
		}
	case "webhook":
		if err := t.client.DeleteWebhook(ctx); err != nil {
			t.logger.Warn("telegram: failed to delete webhook on shutdown", "error", err)
		}
	}

	return nil
}

// Send implements channel.Channel.
func (t *Telegram) Send(ctx context.Context, msg message.OutboundMessage) error {
	return t.sendOutbound(ctx, msg)
}

// SetInbox implements channel.Channel.
func (t *Telegram) SetInbox(fn channel.InboxFunc) {
	t.inbox = fn
}

// AnswerCallback implements channel.CallbackAnswerer.
func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return t.client.AnswerCallbackQuery(ctx, callbackID, text)
}
