package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/flemzord/warden/internal/moderation")

// Oracle is a text-completion service. Implementations are expected to
// honor ctx cancellation.
type Oracle interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ClassifierConfig holds the dependencies of a Classifier.
type ClassifierConfig struct {
	Oracle   Oracle
	Rules    Rules
	Logger   *slog.Logger
	Observer Observer
}

// Classifier decides whether a message text violates the rules. Cheap
// deterministic checks run first; the oracle is consulted at most once
// per message and only when no bypass matched.
type Classifier struct {
	oracle   Oracle
	current  atomic.Pointer[compiledRules]
	logger   *slog.Logger
	observer Observer
}

// compiledRules is the lowercased form of Rules the checks run against.
type compiledRules struct {
	rules       Rules
	whitelist   []string
	safe        []string
	topic       []string
	affirmative []string
}

func compileRules(rules Rules) *compiledRules {
	rules.ApplyDefaults()

	affirmative := make([]string, 0, len(rules.AffirmativeTokens))
	for _, tok := range rules.AffirmativeTokens {
		if tok = strings.ToUpper(strings.TrimSpace(tok)); tok != "" {
			affirmative = append(affirmative, tok)
		}
	}
	return &compiledRules{
		rules:       rules,
		whitelist:   lowerAll(rules.Whitelist),
		safe:        lowerAll(rules.SafePhrases),
		topic:       lowerAll(rules.TopicTerms),
		affirmative: affirmative,
	}
}

// NewClassifier builds a classifier. Rules are defaulted but not validated.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Classifier{
		oracle:   cfg.Oracle,
		logger:   logger.With("component", "classifier"),
		observer: observerOrNop(cfg.Observer),
	}
	c.current.Store(compileRules(cfg.Rules))
	return c
}

// SetRules swaps the rules used by later calls. Classifications already
// running finish with the rules they started with.
func (c *Classifier) SetRules(rules Rules) {
	c.current.Store(compileRules(rules))
}

// Rules returns the rules in effect, defaults applied.
func (c *Classifier) Rules() Rules {
	return c.current.Load().rules
}

// Classify returns the verdict for text. It never fails: oracle errors
// yield Clean.
func (c *Classifier) Classify(ctx context.Context, text string) Verdict {
	v, _ := c.classify(ctx, text)
	return v
}

func (c *Classifier) classify(ctx context.Context, text string) (Verdict, Reason) {
	ctx, span := tracer.Start(ctx, "moderation.classify")
	defer span.End()

	start := time.Now()
	verdict, reason := c.decide(ctx, text)
	c.observer.Classified(reason, verdict, time.Since(start))

	span.SetAttributes(
		attribute.String("moderation.verdict", verdict.String()),
		attribute.String("moderation.reason", string(reason)),
	)
	return verdict, reason
}

func (c *Classifier) decide(ctx context.Context, text string) (Verdict, Reason) {
	r := c.current.Load()
	if utf8.RuneCountInString(strings.TrimSpace(text)) < r.rules.MinRunes() {
		return Clean, ReasonTooShort
	}

	lower := strings.ToLower(text)
	if entry, ok := containsAny(lower, r.whitelist); ok {
		c.logger.Debug("whitelisted entry matched", "entry", entry)
		return Clean, ReasonWhitelisted
	}
	if _, ok := containsAny(lower, r.safe); ok {
		return Clean, ReasonSafePhrase
	}
	if _, ok := containsAny(lower, r.topic); ok {
		return Clean, ReasonTopicTerm
	}

	resp, err := c.ask(ctx, r.rules, text)
	if err != nil {
		c.logger.Warn("classification failed, treating message as clean", "error", err)
		trace.SpanFromContext(ctx).RecordError(err)
		return Clean, ReasonOracleError
	}

	if r.affirmativeIn(resp) {
		return Violation, ReasonOracle
	}
	return Clean, ReasonOracle
}

func (c *Classifier) ask(ctx context.Context, rules Rules, text string) (string, error) {
	if c.oracle == nil {
		return "", fmt.Errorf("%w: no oracle configured", ErrClassifierUnavailable)
	}

	if rules.ClassifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rules.ClassifyTimeout)
		defer cancel()
	}

	resp, err := c.oracle.Complete(ctx, rules.SystemPrompt, BuildPrompt(rules, text))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: timed out after %s", ErrClassifierUnavailable, rules.ClassifyTimeout)
		}
		return "", fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
	}
	if strings.TrimSpace(resp) == "" {
		return "", fmt.Errorf("%w: empty response", ErrClassifierUnavailable)
	}
	return resp, nil
}

func (r *compiledRules) affirmativeIn(resp string) bool {
	upper := strings.ToUpper(resp)
	for _, tok := range r.affirmative {
		if strings.Contains(upper, tok) {
			return true
		}
	}
	return false
}

func containsAny(lower string, entries []string) (string, bool) {
	for _, e := range entries {
		if strings.Contains(lower, e) {
			return e, true
		}
	}
	return "", false
}
