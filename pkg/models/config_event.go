package models

import "time"

type ConfigUpdateEvent struct {
	EventType string                 `json:"event_type"` // "routing_rule_updated", "settings_reload"
	RuleID    string                 `json:"rule_id,omitempty"`
	Action    string                 `json:"action"` // "create", "update", "delete", "reload"
	Timestamp time.Time              `json:"timestamp"`
	ChangedBy string                 `json:"changed_by,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

const (
	EventTypeRoutingRuleUpdated = "routing_rule_updated"
	EventTypeSettingsReload     = "settings_reload"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionReload = "reload"
)
