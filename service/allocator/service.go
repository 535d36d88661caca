package allocator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/viant/ruleflow/metrics"
	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/service/dao"
)

var (
	// ErrResourceExhausted is returned when capacity cannot satisfy an allocation.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrInvalidUnits is returned for non positive unit counts.
	ErrInvalidUnits = errors.New("units must be > 0")
)

// ReleaseListener is notified after units were returned to a resource.
// Listeners must not block.
type ReleaseListener func(ctx context.Context, resourceID string, available int)

// Service is the resource ledger.
type Service struct {
	resources dao.ResourceStore
	locks     sync.Map
	listeners []ReleaseListener
	mux       sync.RWMutex
	now       func() time.Time
	logger    hclog.Logger
}

func (s *Service) lock(resourceID string) func() {
	value, _ := s.locks.LoadOrStore(resourceID, &sync.Mutex{})
	mutex := value.(*sync.Mutex)
	mutex.Lock()
	return mutex.Unlock
}

// TryAllocate allocates units when capacity allows and reports whether it did.
func (s *Service) TryAllocate(ctx context.Context, resourceID string, units int) (bool, error) {
	err := s.Allocate(ctx, resourceID, units)
	if errors.Is(err, ErrResourceExhausted) {
		return false, nil
	}
	return err == nil, err
}

// Allocate takes units from the resource or fails with ErrResourceExhausted.
func (s *Service) Allocate(ctx context.Context, resourceID string, units int) error {
	if units <= 0 {
		return ErrInvalidUnits
	}
	unlock := s.lock(resourceID)
	defer unlock()
	_, err := s.resources.Update(ctx, resourceID, func(r *model.Resource) error {
		if r.CurrentUsage+units > r.Capacity {
			return fmt.Errorf("%w: %v (usage %d, capacity %d, requested %d)", ErrResourceExhausted, resourceID, r.CurrentUsage, r.Capacity, units)
		}
		r.CurrentUsage += units
		r.UpdatedAt = s.now()
		return nil
	})
	if errors.Is(err, ErrResourceExhausted) {
		metrics.Add(ctx, metrics.AllocationDenied, "resource", resourceID)
	}
	return err
}

// Release returns units to the resource. Usage is clamped at zero; a release
// beyond current usage is logged as a consistency warning.
func (s *Service) Release(ctx context.Context, resourceID string, units int) error {
	if units <= 0 {
		return ErrInvalidUnits
	}
	unlock := s.lock(resourceID)
	resource, err := s.resources.Update(ctx, resourceID, func(r *model.Resource) error {
		if r.CurrentUsage < units {
			s.logger.Warn("release exceeds current usage", "resource", resourceID, "usage", r.CurrentUsage, "units", units)
			r.CurrentUsage = 0
		} else {
			r.CurrentUsage -= units
		}
		r.UpdatedAt = s.now()
		return nil
	})
	unlock()
	if err != nil {
		return err
	}
	metrics.Add(ctx, metrics.Releases, "resource", resourceID)
	available := resource.Available()
	s.mux.RLock()
	listeners := s.listeners
	s.mux.RUnlock()
	for _, listener := range listeners {
		listener(ctx, resourceID, available)
	}
	return nil
}

// Available returns free units of the resource.
func (s *Service) Available(ctx context.Context, resourceID string) (int, error) {
	resource, err := s.resources.Load(ctx, resourceID)
	if err != nil {
		return 0, err
	}
	return resource.Available(), nil
}

// Resource returns the ledger row.
func (s *Service) Resource(ctx context.Context, resourceID string) (*model.Resource, error) {
	return s.resources.Load(ctx, resourceID)
}

// Resources lists ledger rows.
func (s *Service) Resources(ctx context.Context) ([]*model.Resource, error) {
	return s.resources.List(ctx)
}

// Register creates or replaces a ledger row; usage is preserved for an existing row.
func (s *Service) Register(ctx context.Context, resource *model.Resource) error {
	if resource == nil {
		return dao.ErrNilEntity
	}
	if resource.Capacity < 0 {
		return fmt.Errorf("resource %v: capacity must be >= 0", resource.ID)
	}
	unlock := s.lock(resource.ID)
	defer unlock()
	candidate := resource.Clone()
	if existing, err := s.resources.Load(ctx, resource.ID); err == nil {
		candidate.CurrentUsage = existing.CurrentUsage
	} else if !errors.Is(err, dao.ErrNotFound) {
		return err
	}
	if candidate.CurrentUsage > candidate.Capacity {
		return fmt.Errorf("resource %v: capacity %d below current usage %d", resource.ID, candidate.Capacity, candidate.CurrentUsage)
	}
	candidate.UpdatedAt = s.now()
	return s.resources.Save(ctx, candidate)
}

// OnRelease registers a release listener.
func (s *Service) OnRelease(listener ReleaseListener) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.listeners = append(s.listeners, listener)
}

// New creates a resource ledger.
func New(resources dao.ResourceStore, opts ...Option) *Service {
	ret := &Service{
		resources: resources,
		now:       time.Now,
		logger:    hclog.Default().Named("allocator"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
