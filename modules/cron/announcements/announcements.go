// Package announcements posts scheduled, LLM-written messages to a public
// channel. Each post's text is generated once and reused until its cache
// entry expires, so a day's posts stay consistent across restarts of the
// schedule but not across process restarts.
package announcements

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flemzord/warden/internal/channel"
	"github.com/flemzord/warden/internal/core"
	"github.com/flemzord/warden/internal/cron"
	"github.com/flemzord/warden/internal/moderation"
	"github.com/flemzord/warden/internal/provider"
	"github.com/flemzord/warden/pkg/message"
	gocache "github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Announcements{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Announcements)(nil)
	_ core.Provisioner  = (*Announcements)(nil)
	_ core.Validator    = (*Announcements)(nil)
	_ core.Starter      = (*Announcements)(nil)
)

// ErrNotReady is returned when a post runs before Start resolved the
// oracle and the outbox.
var ErrNotReady = errors.New("announcements: not started")

// Outbox sends a message through a channel.
type Outbox interface {
	Send(ctx context.Context, msg message.OutboundMessage) error
}

// Announcements registers one cron job per configured post.
type Announcements struct {
	config Config
	appCtx *core.AppContext
	logger *slog.Logger
	chat   message.Chat
	cache  *gocache.Cache

	oracle moderation.Oracle
	outbox Outbox
}

// ModuleInfo implements core.Module.
func (a *Announcements) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "cron.announcements",
		New: func() core.Module { return &Announcements{} },
	}
}

// Configure implements core.Configurable.
func (a *Announcements) Configure(node *yaml.Node) error {
	if err := node.Decode(&a.config); err != nil {
		return fmt.Errorf("announcements: decode config: %w", err)
	}
	a.config.defaults()
	return nil
}

// Provision implements core.Provisioner. Jobs go into the shared scheduler
// when one is registered.
func (a *Announcements) Provision(ctx *core.AppContext) error {
	a.config.defaults()
	a.appCtx = ctx
	a.logger = ctx.Logger
	a.cache = gocache.New(a.config.CacheTTL, a.config.CacheTTL)

	if chat, err := message.ParseChat(a.config.Chat); err == nil {
		a.chat = chat
	}

	svc, ok := ctx.GetService(cron.SchedulerService)
	if !ok {
		a.logger.Warn("announcements: no scheduler registered, posts will not run")
		return nil
	}
	sched, ok := svc.(*cron.Scheduler)
	if !ok {
		return fmt.Errorf("announcements: service %s has type %T", cron.SchedulerService, svc)
	}
	for _, p := range a.config.Posts {
		job := &cron.FuncJob{
			JobName: "announcement:" + p.Name,
			Expr:    a.config.schedule(p),
			Fn:      func(ctx context.Context) error { return a.Post(ctx, p) },
		}
		if err := sched.RegisterJob(job); err != nil {
			return fmt.Errorf("announcements: %w", err)
		}
	}
	return nil
}

// Validate implements core.Validator.
func (a *Announcements) Validate() error {
	return a.config.validate()
}

// Start implements core.Starter. It resolves the provider chain and the
// outbound dispatcher, both wired after modules are provisioned.
func (a *Announcements) Start() error {
	if a.oracle == nil {
		svc, ok := a.appCtx.GetService(provider.ChainService)
		if !ok {
			return fmt.Errorf("announcements: %s not registered", provider.ChainService)
		}
		chain, ok := svc.(*provider.Chain)
		if !ok {
			return fmt.Errorf("announcements: service %s has type %T", provider.ChainService, svc)
		}
		a.oracle = provider.NewOracle(chain, provider.OracleConfig{Role: provider.RoleAnnouncement})
	}
	if a.outbox == nil {
		svc, ok := a.appCtx.GetService(channel.DispatcherService)
		if !ok {
			return errors.New("announcements: channel dispatcher not registered")
		}
		outbox, ok := svc.(Outbox)
		if !ok {
			return fmt.Errorf("announcements: channel dispatcher has type %T", svc)
		}
		a.outbox = outbox
	}
	a.logger.Info("announcements ready", "chat", a.chat.String(), "posts", len(a.config.Posts))
	return nil
}

// Post generates (or reuses) the text for p and sends it. A generation
// failure sends nothing and caches nothing.
func (a *Announcements) Post(ctx context.Context, p Post) error {
	if a.oracle == nil || a.outbox == nil {
		return ErrNotReady
	}

	text, err := a.text(ctx, p)
	if err != nil {
		return err
	}

	msg := message.NewTextMessage(a.chat, text)
	msg.Channel = a.config.Channel
	if err := a.outbox.Send(ctx, msg); err != nil {
		return fmt.Errorf("announcements: send %s: %w", p.Name, err)
	}
	a.logger.Info("announcement sent", "post", p.Name, "chat", a.chat.String())
	return nil
}

func (a *Announcements) text(ctx context.Context, p Post) (string, error) {
	if cached, ok := a.cache.Get(p.Name); ok {
		return cached.(string), nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	start := time.Now()
	text, err := a.oracle.Complete(ctx, a.config.SystemPrompt, a.config.userPrompt(p))
	if err != nil {
		return "", fmt.Errorf("announcements: generate %s: %w", p.Name, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("announcements: generate %s: empty completion", p.Name)
	}
	a.cache.SetDefault(p.Name, text)
	a.logger.Debug("announcement generated", "post", p.Name, "elapsed", time.Since(start))
	return text, nil
}
