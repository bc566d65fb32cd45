package settings

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"hookrelay/internal/config"
	"hookrelay/internal/dispatch"
	"hookrelay/internal/logger"
	"hookrelay/pkg/metrics"
)

// Provider hands out immutable settings snapshots. Reloading routing rules
// swaps in a new snapshot; callers holding an old one are unaffected.
type Provider struct {
	base    dispatch.Settings
	repo    RuleRepository
	reload  config.ReloadConfig
	current atomic.Pointer[dispatch.Settings]
	logger  logger.Logger
}

// NewProvider builds the initial snapshot from cfg. repo may be nil, in
// which case only the rules from cfg are used.
func NewProvider(cfg config.DispatchConfig, repo RuleRepository, log logger.Logger) (*Provider, error) {
	base, err := FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		base:   base,
		repo:   repo,
		reload: cfg.RulesReload,
		logger: log,
	}
	snapshot := base
	p.current.Store(&snapshot)
	return p, nil
}

func (p *Provider) Snapshot() *dispatch.Settings {
	return p.current.Load()
}

// ReloadRules re-reads the routing rules after a random delay of up to
// rules_reload.jitter_max_milliseconds, so that replicas notified by the
// same config event do not hit the database at once.
func (p *Provider) ReloadRules(ctx context.Context) error {
	return p.reloadRules(ctx, true)
}

func (p *Provider) reloadRules(ctx context.Context, jitter bool) error {
	if p.repo == nil {
		return nil
	}

	if jitter {
		if err := p.applyJitter(ctx); err != nil {
			return err
		}
	}

	rules, err := p.repo.ListEnabledRoutingRules(ctx)
	if err != nil {
		return err
	}

	// Config rules keep their place ahead of the stored ones.
	next := p.base
	next.Rules = make([]dispatch.RoutingRule, 0, len(p.base.Rules)+len(rules))
	next.Rules = append(next.Rules, p.base.Rules...)
	next.Rules = append(next.Rules, rules...)
	p.current.Store(&next)

	metrics.SetDispatchActiveRules(next.EnabledRules())
	p.logger.InfowCtx(ctx, "Successfully reloaded routing rules",
		"rules_count", len(rules),
	)
	return nil
}

func (p *Provider) applyJitter(ctx context.Context) error {
	if p.reload.JitterMaxMilliseconds <= 0 {
		return nil
	}

	jitter := time.Duration(rand.Intn(p.reload.JitterMaxMilliseconds)) * time.Millisecond
	p.logger.DebugwCtx(ctx, "Reload scheduled with jitter",
		"jitter_ms", jitter.Milliseconds(),
	)

	t := time.NewTimer(jitter)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartReloader loads the rules once, then every interval_seconds until ctx
// ends. A zero interval only performs the initial load.
func (p *Provider) StartReloader(ctx context.Context) error {
	if err := p.reloadRules(ctx, false); err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to reload routing rules", "error", err)
	}

	if p.reload.IntervalSeconds <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(time.Duration(p.reload.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.reloadRules(ctx, false); err != nil {
				p.logger.ErrorwCtx(ctx, "Failed to reload routing rules", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
