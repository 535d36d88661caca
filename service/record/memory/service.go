package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/ruleflow/internal/idgen"
	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/service/record"
)

// Service keeps business records in memory.
type Service struct {
	records map[model.RecordRef]map[string]interface{}
	mux     sync.RWMutex
}

var _ record.Service = (*Service)(nil)

// Save creates or updates a record.
func (s *Service) Save(_ context.Context, config *model.ServiceConfig, ref *model.RecordRef, fields map[string]interface{}) (*model.RecordRef, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if ref == nil {
		kind := model.RecordKindForm
		if config != nil && config.RecordKind != "" {
			kind = config.RecordKind
		}
		ref = &model.RecordRef{Kind: kind, ID: idgen.New()}
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	values, ok := s.records[*ref]
	if !ok {
		values = map[string]interface{}{}
		if config != nil {
			for k, v := range model.CloneMap(config.Fields) {
				values[k] = v
			}
		}
		s.records[*ref] = values
	}
	for k, v := range model.CloneMap(fields) {
		values[k] = v
	}
	ret := *ref
	return &ret, nil
}

// Fields returns a copy of record fields.
func (s *Service) Fields(_ context.Context, ref *model.RecordRef) (map[string]interface{}, error) {
	if ref == nil {
		return nil, fmt.Errorf("record reference was nil")
	}
	s.mux.RLock()
	defer s.mux.RUnlock()
	values, ok := s.records[*ref]
	if !ok {
		return nil, fmt.Errorf("record %v: %w", ref, dao.ErrNotFound)
	}
	return model.CloneMap(values), nil
}

// New creates a memory record service.
func New() *Service {
	return &Service{records: map[model.RecordRef]map[string]interface{}{}}
}
