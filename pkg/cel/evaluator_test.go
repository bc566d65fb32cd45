package cel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookrelay/pkg/models"
)

func testEvent() models.Event {
	return models.Event{
		ID:         "ev-1",
		SourceID:   "com.example.bank",
		SourceName: "Bank",
		Title:      "[PROD] Payment received",
		Text:       "Order #42 paid",
		Timestamp:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		CategoryID: "alerts",
		Importance: 3,
	}
}

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidateFilterExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{"valid comparison", `importance > 2`, false},
		{"valid string call", `title.contains("x")`, false},
		{"syntax error", `invalid syntax here!!!`, true},
		{"undefined variable", `payload.status == "x"`, true},
		{"non-bool result", `title + text`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateFilterExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluateFilter(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"source equals", `source_id == "com.example.bank"`, true},
		{"importance threshold", `importance >= 4`, false},
		{"regex over text", `text.matches("(?i)order #[0-9]+")`, true},
		{"summary flag", `!is_summary`, true},
		{"no image", `has_image`, false},
		{"timestamp", `timestamp > timestamp("2024-01-01T00:00:00Z")`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.EvaluateFilter(context.Background(), tt.expr, testEvent())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateFilter_CompileErrorIsReturned(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	_, err = eval.EvaluateFilter(context.Background(), `title ==`, testEvent())
	assert.Error(t, err)
}

func TestEvaluateFilter_CachesProgram(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	_, err = eval.EvaluateFilter(context.Background(), `importance > 1`, testEvent())
	require.NoError(t, err)
	_, err = eval.EvaluateFilter(context.Background(), `importance > 1`, testEvent())
	require.NoError(t, err)

	assert.Len(t, eval.programs, 1)
}

func TestConditionExamplesCompile(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	for name, expr := range ConditionExamples {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, eval.ValidateFilterExpression(expr))
		})
	}
}
