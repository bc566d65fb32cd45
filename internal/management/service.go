package management

import (
	"context"

	"hookrelay/internal/delivery"
	"hookrelay/internal/logger"
	pkgerrors "hookrelay/pkg/errors"
	"hookrelay/pkg/models"
)

type service struct {
	repo                Repository
	attempts            delivery.AttemptLog
	configEventProducer *ConfigEventProducer
	logger              logger.Logger
}

type ServiceOption func(*service)

func WithAttemptLog(attempts delivery.AttemptLog) ServiceOption {
	return func(s *service) {
		s.attempts = attempts
	}
}

func WithConfigEvents(configEventProducer *ConfigEventProducer) ServiceOption {
	return func(s *service) {
		s.configEventProducer = configEventProducer
	}
}

func WithLogger(log logger.Logger) ServiceOption {
	return func(s *service) {
		s.logger = log
	}
}

func NewService(repo Repository, opts ...ServiceOption) Service {
	s := &service{
		repo:   repo,
		logger: logger.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *service) CreateRoutingRule(ctx context.Context, req CreateRoutingRuleRequest) (*RoutingRule, error) {
	if err := ValidateRoutingRule(req); err != nil {
		return nil, pkgerrors.ErrValidation.WithCause(err).WithDetail("message", err.Error())
	}

	rule := &RoutingRule{
		Name:            req.Name,
		Position:        req.Position,
		Enabled:         getEnabledValue(req.Enabled),
		SourceIDs:       normalizeList(req.SourceIDs),
		Keywords:        normalizeList(req.Keywords),
		UseRegex:        req.UseRegex,
		RegexPattern:    req.RegexPattern,
		DestinationURLs: normalizeList(req.DestinationURLs),
	}

	if err := s.repo.CreateRoutingRule(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.publishConfigEvent(ctx, models.ActionCreate, rule.ID)
	return copyRoutingRule(rule), nil
}

func (s *service) ListRoutingRules(ctx context.Context) ([]RoutingRule, error) {
	rules, err := s.repo.ListRoutingRules(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return rules, nil
}

func (s *service) GetRoutingRule(ctx context.Context, id string) (*RoutingRule, error) {
	rule, err := s.repo.GetRoutingRule(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return copyRoutingRule(rule), nil
}

func (s *service) UpdateRoutingRule(ctx context.Context, id string, req UpdateRoutingRuleRequest) (*RoutingRule, error) {
	if err := ValidateUpdateRoutingRule(req); err != nil {
		return nil, pkgerrors.ErrValidation.WithCause(err).WithDetail("message", err.Error())
	}

	rule, err := s.repo.GetRoutingRule(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	updateRoutingRuleFields(rule, req)
	if err := validateRegex(rule.UseRegex, rule.RegexPattern); err != nil {
		return nil, pkgerrors.ErrValidation.WithCause(err).WithDetail("message", err.Error())
	}

	if err := s.repo.UpdateRoutingRule(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.publishConfigEvent(ctx, models.ActionUpdate, rule.ID)
	return copyRoutingRule(rule), nil
}

func (s *service) DeleteRoutingRule(ctx context.Context, id string) error {
	if err := s.repo.DeleteRoutingRule(ctx, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.publishConfigEvent(ctx, models.ActionDelete, id)
	return nil
}

func (s *service) ListDeliveryAttempts(ctx context.Context, filter delivery.AttemptFilter) ([]delivery.Attempt, error) {
	if s.attempts == nil {
		return nil, pkgerrors.ErrUnavailable.WithDetail("message", "delivery attempt log not configured")
	}
	attempts, err := s.attempts.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return attempts, nil
}

func (s *service) ReloadSettings(ctx context.Context) error {
	if s.configEventProducer == nil {
		return pkgerrors.ErrUnavailable.WithDetail("message", "config events not configured")
	}
	if err := s.configEventProducer.PublishSettingsReload(ctx, getChangedBy(ctx)); err != nil {
		return pkgerrors.ErrUnavailable.WithCause(err)
	}
	return nil
}

// publishConfigEvent is best effort: the rule change is already committed
// and dispatch instances also reload on their own interval.
func (s *service) publishConfigEvent(ctx context.Context, action, ruleID string) {
	if s.configEventProducer == nil {
		return
	}
	if err := s.configEventProducer.PublishRoutingRuleEvent(ctx, action, ruleID, getChangedBy(ctx)); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to publish config event",
			"error", err,
			"rule_id", ruleID,
			"action", action,
		)
	}
}

func updateRoutingRuleFields(rule *RoutingRule, req UpdateRoutingRuleRequest) {
	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Position != nil {
		rule.Position = *req.Position
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if req.SourceIDs != nil {
		rule.SourceIDs = normalizeList(*req.SourceIDs)
	}
	if req.Keywords != nil {
		rule.Keywords = normalizeList(*req.Keywords)
	}
	if req.UseRegex != nil {
		rule.UseRegex = *req.UseRegex
	}
	if req.RegexPattern != nil {
		rule.RegexPattern = *req.RegexPattern
	}
	if req.DestinationURLs != nil {
		rule.DestinationURLs = normalizeList(*req.DestinationURLs)
	}
}

func copyRoutingRule(rule *RoutingRule) *RoutingRule {
	cp := *rule
	cp.SourceIDs = append([]string{}, rule.SourceIDs...)
	cp.Keywords = append([]string{}, rule.Keywords...)
	cp.DestinationURLs = append([]string{}, rule.DestinationURLs...)
	return &cp
}

func getEnabledValue(reqEnabled *bool) bool {
	if reqEnabled == nil {
		return true
	}
	return *reqEnabled
}

type changedByKey struct{}

// WithChangedBy records who is making a change, for config events.
func WithChangedBy(ctx context.Context, who string) context.Context {
	return context.WithValue(ctx, changedByKey{}, who)
}

func getChangedBy(ctx context.Context) string {
	if who, ok := ctx.Value(changedByKey{}).(string); ok && who != "" {
		return who
	}
	return "system"
}
