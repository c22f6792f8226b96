package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/metrics"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// PlanStore keeps staged import plans between preview and finalize.
type PlanStore interface {
	Save(ctx context.Context, plan *models.ImportPlan) error
	// Load returns apperrors.ErrNotFound if the plan does not exist or has expired.
	Load(ctx context.Context, id string) (*models.ImportPlan, error)
	Delete(ctx context.Context, id string) error
}

const planKeyPrefix = "ekaya-catalog:import-plan:"

type redisPlanStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPlanStore stores plans as JSON values that expire after ttl.
func NewRedisPlanStore(client *redis.Client, ttl time.Duration) PlanStore {
	return &redisPlanStore{client: client, ttl: ttl}
}

var _ PlanStore = (*redisPlanStore)(nil)

func (s *redisPlanStore) Save(ctx context.Context, plan *models.ImportPlan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to encode import plan: %w", err)
	}
	if err := s.client.Set(ctx, planKeyPrefix+plan.ID, data, s.ttl).Err(); err != nil {
		metrics.PlanStoreOperations.WithLabelValues("redis", "save", "error").Inc()
		return fmt.Errorf("failed to save import plan: %w", err)
	}
	metrics.PlanStoreOperations.WithLabelValues("redis", "save", "ok").Inc()
	return nil
}

func (s *redisPlanStore) Load(ctx context.Context, id string) (*models.ImportPlan, error) {
	data, err := s.client.Get(ctx, planKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.PlanStoreOperations.WithLabelValues("redis", "load", "miss").Inc()
		return nil, apperrors.NotFound("import preview %s has expired or does not exist", id)
	}
	if err != nil {
		metrics.PlanStoreOperations.WithLabelValues("redis", "load", "error").Inc()
		return nil, fmt.Errorf("failed to load import plan: %w", err)
	}

	var plan models.ImportPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode import plan: %w", err)
	}
	metrics.PlanStoreOperations.WithLabelValues("redis", "load", "ok").Inc()
	return &plan, nil
}

func (s *redisPlanStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, planKeyPrefix+id).Err(); err != nil {
		metrics.PlanStoreOperations.WithLabelValues("redis", "delete", "error").Inc()
		return fmt.Errorf("failed to delete import plan: %w", err)
	}
	metrics.PlanStoreOperations.WithLabelValues("redis", "delete", "ok").Inc()
	return nil
}

type memoryPlanEntry struct {
	data    []byte
	expires time.Time
}

type memoryPlanStore struct {
	mu    sync.Mutex
	plans map[string]memoryPlanEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryPlanStore keeps plans in process memory. Used when Redis is not configured.
// Plans are stored encoded so callers never share a mutable plan.
func NewMemoryPlanStore(ttl time.Duration, now func() time.Time) PlanStore {
	if now == nil {
		now = time.Now
	}
	return &memoryPlanStore{
		plans: make(map[string]memoryPlanEntry),
		ttl:   ttl,
		now:   now,
	}
}

var _ PlanStore = (*memoryPlanStore)(nil)

func (s *memoryPlanStore) Save(_ context.Context, plan *models.ImportPlan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to encode import plan: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.plans {
		if !now.Before(e.expires) {
			delete(s.plans, id)
		}
	}
	s.plans[plan.ID] = memoryPlanEntry{data: data, expires: now.Add(s.ttl)}
	metrics.PlanStoreOperations.WithLabelValues("memory", "save", "ok").Inc()
	return nil
}

func (s *memoryPlanStore) Load(_ context.Context, id string) (*models.ImportPlan, error) {
	s.mu.Lock()
	e, ok := s.plans[id]
	if ok && !s.now().Before(e.expires) {
		delete(s.plans, id)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		metrics.PlanStoreOperations.WithLabelValues("memory", "load", "miss").Inc()
		return nil, apperrors.NotFound("import preview %s has expired or does not exist", id)
	}

	var plan models.ImportPlan
	if err := json.Unmarshal(e.data, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode import plan: %w", err)
	}
	metrics.PlanStoreOperations.WithLabelValues("memory", "load", "ok").Inc()
	return &plan, nil
}

func (s *memoryPlanStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.plans, id)
	s.mu.Unlock()
	metrics.PlanStoreOperations.WithLabelValues("memory", "delete", "ok").Inc()
	return nil
}
