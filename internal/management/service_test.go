package management

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookrelay/internal/constants"
	"hookrelay/internal/delivery"
	pkgerrors "hookrelay/pkg/errors"
	"hookrelay/pkg/models"
)

type memoryRepo struct {
	mu    sync.Mutex
	rules map[string]RoutingRule
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rules: make(map[string]RoutingRule)}
}

func (r *memoryRepo) CreateRoutingRule(_ context.Context, rule *RoutingRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rules {
		if existing.Name == rule.Name {
			return pkgerrors.ErrConflict.WithDetail("name", rule.Name)
		}
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	r.rules[rule.ID] = *rule
	return nil
}

func (r *memoryRepo) ListRoutingRules(context.Context) ([]RoutingRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RoutingRule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	return out, nil
}

func (r *memoryRepo) GetRoutingRule(_ context.Context, id string) (*RoutingRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return &rule, nil
}

func (r *memoryRepo) UpdateRoutingRule(_ context.Context, rule *RoutingRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.ID]; !ok {
		return pkgerrors.ErrNotFound.WithDetail("id", rule.ID)
	}
	r.rules[rule.ID] = *rule
	return nil
}

func (r *memoryRepo) DeleteRoutingRule(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[id]; !ok {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	delete(r.rules, id)
	return nil
}

type capturingProducer struct {
	mu        sync.Mutex
	envelopes []models.Envelope
}

func (p *capturingProducer) Publish(_ context.Context, _ string, env models.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes = append(p.envelopes, env)
	return nil
}

func (p *capturingProducer) Close() error { return nil }

type stubAttempts struct {
	got delivery.AttemptFilter
}

func (s *stubAttempts) Record(context.Context, delivery.Attempt) error { return nil }

func (s *stubAttempts) List(_ context.Context, f delivery.AttemptFilter) ([]delivery.Attempt, error) {
	s.got = f
	return []delivery.Attempt{{JobID: "j1", Status: delivery.AttemptDelivered}}, nil
}

func newTestService() (Service, *memoryRepo, *capturingProducer, *stubAttempts) {
	repo := newMemoryRepo()
	producer := &capturingProducer{}
	attempts := &stubAttempts{}
	svc := NewService(repo,
		WithConfigEvents(NewConfigEventProducer(producer, "config_updates")),
		WithAttemptLog(attempts),
	)
	return svc, repo, producer, attempts
}

func validCreate() CreateRoutingRuleRequest {
	return CreateRoutingRuleRequest{
		Name:            "ops",
		Keywords:        []string{" deploy ", ""},
		DestinationURLs: []string{"https://hooks.example.com/ops"},
	}
}

func TestCreateRoutingRule(t *testing.T) {
	svc, _, producer, _ := newTestService()
	ctx := WithChangedBy(context.Background(), "alice")

	rule, err := svc.CreateRoutingRule(ctx, validCreate())
	require.NoError(t, err)
	assert.NotEmpty(t, rule.ID)
	assert.True(t, rule.Enabled)
	assert.Equal(t, []string{"deploy"}, rule.Keywords)

	require.Len(t, producer.envelopes, 1)
	env := producer.envelopes[0]
	assert.Equal(t, constants.EnvelopeTypeConfigUpdate, env.Type)
	require.NotNil(t, env.ConfigUpdate)
	assert.Equal(t, models.EventTypeRoutingRuleUpdated, env.ConfigUpdate.EventType)
	assert.Equal(t, models.ActionCreate, env.ConfigUpdate.Action)
	assert.Equal(t, rule.ID, env.ConfigUpdate.RuleID)
	assert.Equal(t, "alice", env.ConfigUpdate.ChangedBy)
}

func TestCreateRoutingRule_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateRoutingRuleRequest
	}{
		{name: "blank name", req: CreateRoutingRuleRequest{Name: " ", DestinationURLs: []string{"https://h.example.com"}}},
		{name: "no destinations", req: CreateRoutingRuleRequest{Name: "x"}},
		{name: "bad destination", req: CreateRoutingRuleRequest{Name: "x", DestinationURLs: []string{"ftp://h.example.com"}}},
		{name: "bad regex", req: CreateRoutingRuleRequest{Name: "x", DestinationURLs: []string{"https://h.example.com"}, UseRegex: true, RegexPattern: "("}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, producer, _ := newTestService()
			_, err := svc.CreateRoutingRule(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
			assert.Empty(t, producer.envelopes)
		})
	}
}

func TestCreateRoutingRule_Conflict(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.CreateRoutingRule(context.Background(), validCreate())
	require.NoError(t, err)

	_, err = svc.CreateRoutingRule(context.Background(), validCreate())
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestUpdateRoutingRule(t *testing.T) {
	svc, _, producer, _ := newTestService()
	rule, err := svc.CreateRoutingRule(context.Background(), validCreate())
	require.NoError(t, err)

	disabled := false
	urls := []string{"https://hooks.example.com/a", "https://hooks.example.com/b"}
	updated, err := svc.UpdateRoutingRule(context.Background(), rule.ID, UpdateRoutingRuleRequest{
		Enabled:         &disabled,
		DestinationURLs: &urls,
	})
	require.NoError(t, err)
	assert.False(t, updated.Enabled)
	assert.Equal(t, urls, updated.DestinationURLs)
	assert.Equal(t, "ops", updated.Name)
	assert.Len(t, producer.envelopes, 2)
}

func TestUpdateRoutingRule_RegexCheckedAgainstMergedRule(t *testing.T) {
	svc, _, _, _ := newTestService()
	req := validCreate()
	req.UseRegex = true
	req.RegexPattern = "deploy|release"
	rule, err := svc.CreateRoutingRule(context.Background(), req)
	require.NoError(t, err)

	bad := "(["
	_, err = svc.UpdateRoutingRule(context.Background(), rule.ID, UpdateRoutingRuleRequest{RegexPattern: &bad})
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestGetAndDeleteRoutingRule_NotFound(t *testing.T) {
	svc, _, producer, _ := newTestService()

	_, err := svc.GetRoutingRule(context.Background(), "missing")
	assert.True(t, pkgerrors.IsNotFound(err))

	err = svc.DeleteRoutingRule(context.Background(), "missing")
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.Empty(t, producer.envelopes)
}

func TestListDeliveryAttempts(t *testing.T) {
	svc, _, _, attempts := newTestService()

	got, err := svc.ListDeliveryAttempts(context.Background(), delivery.AttemptFilter{SourceID: "src", Limit: 5})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "src", attempts.got.SourceID)

	bare := NewService(newMemoryRepo())
	_, err = bare.ListDeliveryAttempts(context.Background(), delivery.AttemptFilter{})
	assert.ErrorIs(t, err, pkgerrors.ErrUnavailable)
}

func TestReloadSettings(t *testing.T) {
	svc, _, producer, _ := newTestService()

	require.NoError(t, svc.ReloadSettings(context.Background()))
	require.Len(t, producer.envelopes, 1)
	assert.Equal(t, models.EventTypeSettingsReload, producer.envelopes[0].ConfigUpdate.EventType)
	assert.Equal(t, "system", producer.envelopes[0].ConfigUpdate.ChangedBy)
}
