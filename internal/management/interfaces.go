package management

import (
	"context"

	"hookrelay/internal/delivery"
)

type Service interface {
	CreateRoutingRule(ctx context.Context, req CreateRoutingRuleRequest) (*RoutingRule, error)
	ListRoutingRules(ctx context.Context) ([]RoutingRule, error)
	GetRoutingRule(ctx context.Context, id string) (*RoutingRule, error)
	UpdateRoutingRule(ctx context.Context, id string, req UpdateRoutingRuleRequest) (*RoutingRule, error)
	DeleteRoutingRule(ctx context.Context, id string) error

	ListDeliveryAttempts(ctx context.Context, filter delivery.AttemptFilter) ([]delivery.Attempt, error)
	ReloadSettings(ctx context.Context) error
}
