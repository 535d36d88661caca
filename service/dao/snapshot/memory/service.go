package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/service/dao"
)

type key struct {
	processID string
	version   int
}

// Service implements an in-memory, append-only snapshot storage.
type Service struct {
	snapshots map[key]*model.Snapshot
	mux       sync.RWMutex
}

var _ dao.SnapshotStore = (*Service)(nil)

// Append stores a copy of the snapshot.
func (s *Service) Append(_ context.Context, snapshot *model.Snapshot) error {
	if snapshot == nil {
		return dao.ErrNilEntity
	}
	if snapshot.ProcessID == "" {
		return dao.ErrInvalidID
	}
	k := key{processID: snapshot.ProcessID, version: snapshot.Version}
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.snapshots[k]; ok {
		return dao.ErrDuplicate
	}
	s.snapshots[k] = snapshot.Clone()
	return nil
}

// List returns copies of process snapshots ordered by version.
func (s *Service) List(_ context.Context, processID string) ([]*model.Snapshot, error) {
	s.mux.RLock()
	var out []*model.Snapshot
	for k, snapshot := range s.snapshots {
		if k.processID == processID {
			out = append(out, snapshot.Clone())
		}
	}
	s.mux.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func New() *Service {
	return &Service{snapshots: map[key]*model.Snapshot{}}
}
