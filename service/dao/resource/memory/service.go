package memory

import (
	"context"
	"sort"

	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/service/dao/store"
)

// Service keeps resource ledger rows in memory.
type Service struct {
	*store.MemoryStore[string, model.Resource]
}

var _ dao.ResourceStore = (*Service)(nil)

// List returns resources ordered by id.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Resource, error) {
	ret, err := s.MemoryStore.List(ctx, parameters...)
	if err != nil {
		return nil, err
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret, nil
}

// New creates a memory resource store.
func New() *Service {
	return &Service{MemoryStore: store.NewMemoryStore[string, model.Resource](
		func(r *model.Resource) string { return r.ID },
		func(r *model.Resource) *model.Resource { return r.Clone() },
	)}
}
