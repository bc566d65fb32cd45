package management

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hookrelay/internal/constants"
	"hookrelay/internal/delivery"
	"hookrelay/internal/logger"
	"hookrelay/pkg/cel"
	"hookrelay/pkg/errors"
)

// ChangedByHeader names the caller making a change; it ends up in the
// config_update events.
const ChangedByHeader = "X-Changed-By"

type BaseHandler struct {
	Service Service
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		rules := v1.Group("/rules/routing")
		{
			rules.GET("", h.ListRules)
			rules.POST("", h.CreateRule)
			rules.GET("/:id", h.GetRule)
			rules.PUT("/:id", h.UpdateRule)
			rules.DELETE("/:id", h.DeleteRule)
		}

		deliveries := v1.Group("/deliveries")
		{
			deliveries.GET("/attempts", h.ListAttempts)
		}

		conditions := v1.Group("/filter/conditions")
		{
			conditions.GET("/examples", h.ConditionExamples)
			conditions.POST("/validate", h.ValidateCondition)
		}

		v1.POST("/settings/reload", h.ReloadSettings)
	}
}

// ListRules godoc
// @Summary      List all routing rules
// @Description  Get all routing rules ordered by position
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Success      200  {array}   RoutingRule
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/routing [get]
func (h *Handler) ListRules(c *gin.Context) {
	rules, err := h.Service.ListRoutingRules(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// CreateRule godoc
// @Summary      Create a new routing rule
// @Description  Create a routing rule sending matching events to extra destinations
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        rule  body      CreateRoutingRuleRequest  true  "Routing rule data"
// @Success      201   {object}  RoutingRule
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      409   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /rules/routing [post]
func (h *Handler) CreateRule(c *gin.Context) {
	var req CreateRoutingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.CreateRoutingRule(withChangedBy(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// GetRule godoc
// @Summary      Get a routing rule by ID
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  RoutingRule
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/routing/{id} [get]
func (h *Handler) GetRule(c *gin.Context) {
	rule, err := h.Service.GetRoutingRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// UpdateRule godoc
// @Summary      Update a routing rule
// @Description  Update the given fields of an existing routing rule
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        id    path      string                    true  "Rule ID"
// @Param        rule  body      UpdateRoutingRuleRequest  true  "Updated rule data"
// @Success      200   {object}  RoutingRule
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      404   {object}  errors.ErrorResponse
// @Failure      409   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /rules/routing/{id} [put]
func (h *Handler) UpdateRule(c *gin.Context) {
	var req UpdateRoutingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.UpdateRoutingRule(withChangedBy(c), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeleteRule godoc
// @Summary      Delete a routing rule
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/routing/{id} [delete]
func (h *Handler) DeleteRule(c *gin.Context) {
	if err := h.Service.DeleteRoutingRule(withChangedBy(c), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListAttempts godoc
// @Summary      List delivery attempts
// @Description  Newest first, optionally filtered by job, source or status
// @Tags         deliveries
// @Accept       json
// @Produce      json
// @Param        job_id     query     string  false  "Filter by job ID"
// @Param        source_id  query     string  false  "Filter by source ID"
// @Param        status     query     string  false  "Filter by status (delivered, retrying, failed)"
// @Param        limit      query     int     false  "Maximum number of attempts to return (1-1000)" default(100)
// @Param        offset     query     int     false  "Number of attempts to skip"
// @Success      200        {array}   delivery.Attempt
// @Failure      503        {object}  errors.ErrorResponse
// @Failure      500        {object}  errors.ErrorResponse
// @Router       /deliveries/attempts [get]
func (h *Handler) ListAttempts(c *gin.Context) {
	filter := delivery.AttemptFilter{
		JobID:    c.Query("job_id"),
		SourceID: c.Query("source_id"),
		Status:   c.Query("status"),
		Limit:    parseLimit(c.Query("limit")),
		Offset:   parseOffset(c.Query("offset")),
	}

	attempts, err := h.Service.ListDeliveryAttempts(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempts)
}

// ReloadSettings godoc
// @Summary      Ask dispatch instances to reload their settings
// @Tags         settings
// @Produce      json
// @Success      202  {object}  ReloadResponse
// @Failure      503  {object}  errors.ErrorResponse
// @Router       /settings/reload [post]
func (h *Handler) ReloadSettings(c *gin.Context) {
	if err := h.Service.ReloadSettings(withChangedBy(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, ReloadResponse{Status: "reload requested"})
}

// ConditionExamples godoc
// @Summary      List example filter conditions
// @Tags         filter
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /filter/conditions/examples [get]
func (h *Handler) ConditionExamples(c *gin.Context) {
	c.JSON(http.StatusOK, cel.ConditionExamples)
}

// ValidateCondition godoc
// @Summary      Check a CEL filter condition
// @Description  Compiles the condition against the notification event schema
// @Tags         filter
// @Accept       json
// @Produce      json
// @Param        request  body      ValidateConditionRequest  true  "Condition to check"
// @Success      200      {object}  ValidateConditionResponse
// @Failure      400      {object}  errors.ErrorResponse
// @Router       /filter/conditions/validate [post]
func (h *Handler) ValidateCondition(c *gin.Context) {
	var req ValidateConditionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	if err := ValidateFilterCondition(req.Condition); err != nil {
		c.JSON(http.StatusOK, ValidateConditionResponse{Valid: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ValidateConditionResponse{Valid: true})
}

func withChangedBy(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if who := c.GetHeader(ChangedByHeader); who != "" {
		ctx = WithChangedBy(ctx, who)
	}
	return ctx
}

func parseLimit(limitStr string) int {
	if limitStr == "" {
		return constants.DefaultLimit
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed <= 0 || parsed > constants.MaxLimit {
		return constants.DefaultLimit
	}
	return parsed
}

func parseOffset(offsetStr string) int {
	parsed, err := strconv.Atoi(offsetStr)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}
