package memory

import (
	"context"

	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/service/dao/store"
)

// Service keeps service rules in memory.
type Service struct {
	*store.MemoryStore[int64, model.Rule]
}

var _ dao.RuleStore = (*Service)(nil)

// ByService returns rules of a service ordered by (order, id).
func (s *Service) ByService(_ context.Context, serviceID string) ([]*model.Rule, error) {
	rules := model.Rules(s.Filter(func(r *model.Rule) bool { return r.ServiceID == serviceID }))
	rules.Sort()
	return rules, nil
}

// Timers returns all timer rules ordered by (order, id).
func (s *Service) Timers(_ context.Context) ([]*model.Rule, error) {
	rules := model.Rules(s.Filter(func(r *model.Rule) bool { return r.IsTimer() }))
	rules.Sort()
	return rules, nil
}

// New creates a memory rule store.
func New() *Service {
	return &Service{MemoryStore: store.NewMemoryStore[int64, model.Rule](
		func(r *model.Rule) int64 { return r.ID },
		func(r *model.Rule) *model.Rule { return r.Clone() },
	)}
}
