package management

import "time"

type RoutingRule struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Position        int       `json:"position" db:"position"`
	Enabled         bool      `json:"enabled" db:"enabled"`
	SourceIDs       []string  `json:"source_ids" db:"source_ids"`
	Keywords        []string  `json:"keywords" db:"keywords"`
	UseRegex        bool      `json:"use_regex" db:"use_regex"`
	RegexPattern    string    `json:"regex_pattern" db:"regex_pattern"`
	DestinationURLs []string  `json:"destination_urls" db:"destination_urls"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

type CreateRoutingRuleRequest struct {
	Name            string   `json:"name" binding:"required"`
	Position        int      `json:"position"`
	Enabled         *bool    `json:"enabled"`
	SourceIDs       []string `json:"source_ids"`
	Keywords        []string `json:"keywords"`
	UseRegex        bool     `json:"use_regex"`
	RegexPattern    string   `json:"regex_pattern"`
	DestinationURLs []string `json:"destination_urls" binding:"required"`
}

type UpdateRoutingRuleRequest struct {
	Name            *string   `json:"name"`
	Position        *int      `json:"position"`
	Enabled         *bool     `json:"enabled"`
	SourceIDs       *[]string `json:"source_ids"`
	Keywords        *[]string `json:"keywords"`
	UseRegex        *bool     `json:"use_regex"`
	RegexPattern    *string   `json:"regex_pattern"`
	DestinationURLs *[]string `json:"destination_urls"`
}

// ReloadResponse acknowledges a published settings reload.
type ReloadResponse struct {
	Status string `json:"status"`
}

type ValidateConditionRequest struct {
	Condition string `json:"condition" binding:"required"`
}

type ValidateConditionResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}
