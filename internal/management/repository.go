package management

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	pkgerrors "hookrelay/pkg/errors"
	"hookrelay/pkg/metrics"
)

type Repository interface {
	CreateRoutingRule(ctx context.Context, rule *RoutingRule) error
	ListRoutingRules(ctx context.Context) ([]RoutingRule, error)
	GetRoutingRule(ctx context.Context, id string) (*RoutingRule, error)
	UpdateRoutingRule(ctx context.Context, rule *RoutingRule) error
	DeleteRoutingRule(ctx context.Context, id string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

const routingRuleColumns = `id, name, position, enabled, source_ids, keywords, use_regex, regex_pattern, destination_urls, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRoutingRule(row rowScanner) (*RoutingRule, error) {
	var rule RoutingRule
	err := row.Scan(
		&rule.ID, &rule.Name, &rule.Position, &rule.Enabled,
		pq.Array(&rule.SourceIDs), pq.Array(&rule.Keywords),
		&rule.UseRegex, &rule.RegexPattern,
		pq.Array(&rule.DestinationURLs),
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *PostgresRepository) CreateRoutingRule(ctx context.Context, rule *RoutingRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	query := `
		INSERT INTO routing_rules (` + routingRuleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Position, rule.Enabled,
		pq.Array(rule.SourceIDs), pq.Array(rule.Keywords),
		rule.UseRegex, rule.RegexPattern,
		pq.Array(rule.DestinationURLs),
		rule.CreatedAt, rule.UpdatedAt,
	)
	r.observe("create_routing_rule", err)
	if err != nil {
		if conflict := asConflict(err, rule.Name); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to create routing rule: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetRoutingRule(ctx context.Context, id string) (*RoutingRule, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	query := `SELECT ` + routingRuleColumns + ` FROM routing_rules WHERE id = $1`

	rule, err := scanRoutingRule(r.db.QueryRowContext(ctx, query, id))
	r.observe("get_routing_rule", ignoreNoRows(err))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get routing rule: %w", err)
	}

	return rule, nil
}

func (r *PostgresRepository) ListRoutingRules(ctx context.Context) ([]RoutingRule, error) {
	query := `SELECT ` + routingRuleColumns + ` FROM routing_rules ORDER BY position ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	r.observe("list_routing_rules", err)
	if err != nil {
		return nil, fmt.Errorf("failed to list routing rules: %w", err)
	}
	defer rows.Close()

	rules := []RoutingRule{}
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		rule, err := scanRoutingRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan routing rule: %w", err)
		}
		rules = append(rules, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return rules, nil
}

func (r *PostgresRepository) UpdateRoutingRule(ctx context.Context, rule *RoutingRule) error {
	rule.UpdatedAt = time.Now()

	query := `
		UPDATE routing_rules
		SET name = $1, position = $2, enabled = $3, source_ids = $4, keywords = $5,
		    use_regex = $6, regex_pattern = $7, destination_urls = $8, updated_at = $9
		WHERE id = $10
	`

	res, err := r.db.ExecContext(ctx, query,
		rule.Name, rule.Position, rule.Enabled,
		pq.Array(rule.SourceIDs), pq.Array(rule.Keywords),
		rule.UseRegex, rule.RegexPattern,
		pq.Array(rule.DestinationURLs),
		rule.UpdatedAt, rule.ID,
	)
	r.observe("update_routing_rule", err)
	if err != nil {
		if conflict := asConflict(err, rule.Name); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to update routing rule: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return pkgerrors.ErrNotFound.WithDetail("id", rule.ID)
	}

	return nil
}

func (r *PostgresRepository) DeleteRoutingRule(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM routing_rules WHERE id = $1`, id)
	r.observe("delete_routing_rule", err)
	if err != nil {
		return fmt.Errorf("failed to delete routing rule: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	return nil
}

func (r *PostgresRepository) observe(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery("management-service", "postgres", operation, status)
}

func asConflict(err error, name string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("rule with name '%s' already exists", name))
	}
	if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
		return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("rule with name '%s' already exists", name))
	}
	return nil
}

func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
