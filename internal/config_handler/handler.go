package config_handler

import (
	"context"

	"hookrelay/internal/constants"
	"hookrelay/internal/logger"
	"hookrelay/pkg/models"
)

type ConfigReloader interface {
	ReloadRules(ctx context.Context) error
}

// Handler reacts to config_update envelopes by reloading the routing rules.
// Envelopes of other types, or for event types it was not built for, are
// ignored.
type Handler struct {
	eventTypes map[string]bool
	reloader   ConfigReloader
	logger     logger.Logger
}

func NewHandler(reloader ConfigReloader, log logger.Logger, eventTypes ...string) *Handler {
	if len(eventTypes) == 0 {
		eventTypes = []string{models.EventTypeRoutingRuleUpdated, models.EventTypeSettingsReload}
	}
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	return &Handler{
		eventTypes: types,
		reloader:   reloader,
		logger:     log,
	}
}

func (h *Handler) HandleConfigUpdateEvent(ctx context.Context, envelope models.Envelope) error {
	if envelope.Type != constants.EnvelopeTypeConfigUpdate {
		return nil
	}

	event := envelope.ConfigUpdate
	if event == nil {
		h.logger.WarnwCtx(ctx, "Config event missing payload", "id", envelope.ID)
		return nil
	}

	if !h.eventTypes[event.EventType] {
		return nil
	}

	h.logger.InfowCtx(ctx, "Received config update event",
		"event_type", event.EventType,
		"action", event.Action,
		"rule_id", event.RuleID,
	)

	if h.reloader == nil {
		return nil
	}

	if err := h.reloader.ReloadRules(ctx); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to reload rules after config update", "error", err)
		return err
	}
	h.logger.InfowCtx(ctx, "Rules reloaded successfully after config update", "action", event.Action)
	return nil
}
