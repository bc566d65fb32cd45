package management

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookrelay/internal/logger"
	pkgerrors "hookrelay/pkg/errors"
)

func newTestRouter() (*gin.Engine, *capturingProducer, *stubAttempts) {
	gin.SetMode(gin.TestMode)
	svc, _, producer, attempts := newTestService()
	router := gin.New()
	NewHandler(svc, logger.NopLogger()).RegisterRoutes(router)
	return router, producer, attempts
}

func doJSON(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ChangedByHeader, "ops-bot")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoutingRuleCRUD(t *testing.T) {
	router, producer, _ := newTestRouter()

	w := doJSON(router, http.MethodPost, "/api/v1/rules/routing", validCreate())
	require.Equal(t, http.StatusCreated, w.Code)

	var created RoutingRule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "ops", created.Name)
	assert.Equal(t, "ops-bot", producer.envelopes[0].ConfigUpdate.ChangedBy)

	w = doJSON(router, http.MethodGet, "/api/v1/rules/routing/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	name := "ops-renamed"
	w = doJSON(router, http.MethodPut, "/api/v1/rules/routing/"+created.ID, UpdateRoutingRuleRequest{Name: &name})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/rules/routing", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rules []RoutingRule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rules))
	require.Len(t, rules, 1)
	assert.Equal(t, "ops-renamed", rules[0].Name)

	w = doJSON(router, http.MethodDelete, "/api/v1/rules/routing/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/rules/routing/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRule_BadRequest(t *testing.T) {
	router, _, _ := newTestRouter()

	w := doJSON(router, http.MethodPost, "/api/v1/rules/routing", map[string]string{"name": "no-destinations"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp pkgerrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, pkgerrors.ErrValidation.Code, resp.ErrorCode)
}

func TestCreateRule_Conflict(t *testing.T) {
	router, _, _ := newTestRouter()

	require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/api/v1/rules/routing", validCreate()).Code)
	assert.Equal(t, http.StatusConflict, doJSON(router, http.MethodPost, "/api/v1/rules/routing", validCreate()).Code)
}

func TestListAttempts_Query(t *testing.T) {
	router, _, attempts := newTestRouter()

	w := doJSON(router, http.MethodGet, "/api/v1/deliveries/attempts?source_id=src&status=failed&limit=5000&offset=20", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "src", attempts.got.SourceID)
	assert.Equal(t, "failed", attempts.got.Status)
	assert.Equal(t, 100, attempts.got.Limit)
	assert.Equal(t, 20, attempts.got.Offset)
}

func TestReloadSettingsEndpoint(t *testing.T) {
	router, producer, _ := newTestRouter()

	w := doJSON(router, http.MethodPost, "/api/v1/settings/reload", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, producer.envelopes, 1)
}

func TestValidateCondition(t *testing.T) {
	router, _, _ := newTestRouter()

	tests := []struct {
		name      string
		condition string
		valid     bool
	}{
		{"boolean", `importance >= 3 && !is_summary`, true},
		{"not boolean", `title`, false},
		{"unknown variable", `severity > 2`, false},
		{"syntax error", `importance >=`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/api/v1/filter/conditions/validate", ValidateConditionRequest{Condition: tt.condition})
			require.Equal(t, http.StatusOK, w.Code)

			var resp ValidateConditionResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.valid, resp.Valid)
			if !tt.valid {
				assert.NotEmpty(t, resp.Error)
			}
		})
	}

	w := doJSON(router, http.MethodPost, "/api/v1/filter/conditions/validate", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConditionExamples(t *testing.T) {
	router, _, _ := newTestRouter()

	w := doJSON(router, http.MethodGet, "/api/v1/filter/conditions/examples", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var examples map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &examples))
	assert.Contains(t, examples, "min_importance")
}
