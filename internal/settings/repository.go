package settings

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"hookrelay/internal/dispatch"
	"hookrelay/pkg/metrics"
)

type RuleRepository interface {
	ListEnabledRoutingRules(ctx context.Context) ([]dispatch.RoutingRule, error)
}

type PostgresRuleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) *PostgresRuleRepository {
	return &PostgresRuleRepository{db: db}
}

func (r *PostgresRuleRepository) ListEnabledRoutingRules(ctx context.Context) ([]dispatch.RoutingRule, error) {
	query := `
		SELECT id, name, enabled, source_ids, keywords, use_regex, regex_pattern, destination_urls
		FROM routing_rules
		WHERE enabled = true
		ORDER BY position ASC, created_at ASC
	`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query)
	metrics.ObserveDatabaseQueryDuration("dispatch-service", "postgres", "list_routing_rules", time.Since(start))
	if err != nil {
		metrics.IncDatabaseQuery("dispatch-service", "postgres", "list_routing_rules", "error")
		return nil, fmt.Errorf("failed to query routing rules: %w", err)
	}
	defer rows.Close()

	var rules []dispatch.RoutingRule
	for rows.Next() {
		var rule dispatch.RoutingRule
		if err := rows.Scan(
			&rule.ID,
			&rule.Name,
			&rule.Enabled,
			pq.Array(&rule.SourceIDs),
			pq.Array(&rule.Keywords),
			&rule.UseRegex,
			&rule.RegexPattern,
			pq.Array(&rule.DestinationURLs),
		); err != nil {
			return nil, fmt.Errorf("failed to scan routing rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	metrics.IncDatabaseQuery("dispatch-service", "postgres", "list_routing_rules", "success")
	return rules, nil
}
