package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/service/dao/criteria"
)

// Service implements an in-memory, thread-safe store for processes.  All API
// methods work with copies to eliminate data races between goroutines.
type Service struct {
	processes map[string]*execution.Process
	mux       sync.RWMutex
}

var _ dao.ProcessStore = (*Service)(nil)

func (s *Service) Save(_ context.Context, p *execution.Process) error {
	if p == nil {
		return dao.ErrNilEntity
	}
	if p.ID == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	s.processes[p.ID] = p.Clone()
	return nil
}

func (s *Service) Load(_ context.Context, id string) (*execution.Process, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mux.RLock()
	p, ok := s.processes[id]
	s.mux.RUnlock()
	if !ok {
		return nil, dao.ErrNotFound
	}
	return p.Clone(), nil
}

// Update applies fn to a copy of the process and stores it when fn succeeds.
func (s *Service) Update(_ context.Context, id string, fn func(p *execution.Process) error) (*execution.Process, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	p, ok := s.processes[id]
	if !ok {
		return nil, dao.ErrNotFound
	}
	candidate := p.Clone()
	if err := fn(candidate); err != nil {
		return nil, err
	}
	s.processes[id] = candidate
	return candidate.Clone(), nil
}

func (s *Service) Delete(_ context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.processes[id]; !ok {
		return dao.ErrNotFound
	}
	delete(s.processes, id)
	return nil
}

// List returns matching processes ordered by sequence number.
func (s *Service) List(_ context.Context, parameters ...*dao.Parameter) ([]*execution.Process, error) {
	s.mux.RLock()
	out := make([]*execution.Process, 0, len(s.processes))
	for _, p := range s.processes {
		if !criteria.MatchProcess(p, parameters) {
			continue
		}
		out = append(out, p.Clone())
	}
	s.mux.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func New() *Service {
	return &Service{processes: map[string]*execution.Process{}}
}
