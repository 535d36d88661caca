package memory

import (
	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/service/dao/store"
)

// Service keeps service definitions in memory.
type Service struct {
	*store.MemoryStore[string, model.Service]
}

var _ dao.ServiceStore = (*Service)(nil)

// New creates a memory service definition store.
func New() *Service {
	return &Service{MemoryStore: store.NewMemoryStore[string, model.Service](
		func(s *model.Service) string { return s.ID },
		func(s *model.Service) *model.Service {
			clone := *s
			clone.Config.Fields = model.CloneMap(s.Config.Fields)
			return &clone
		},
	)}
}
