package meta

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/service/dao"
)

// Bundle is a set of definitions loaded together.
type Bundle struct {
	Services  []*model.Service  `yaml:"services,omitempty" json:"services,omitempty"`
	Events    []*model.Event    `yaml:"events,omitempty" json:"events,omitempty"`
	Rules     []*model.Rule     `yaml:"rules,omitempty" json:"rules,omitempty"`
	Resources []*model.Resource `yaml:"resources,omitempty" json:"resources,omitempty"`
}

// Compiler checks predicate syntax.
type Compiler interface {
	Compile(expr string) error
}

// Registrar registers ledger resources.
type Registrar interface {
	Register(ctx context.Context, resource *model.Resource) error
}

// Resolve links rules to bundle events and validates the bundle.
func (b *Bundle) Resolve(compiler Compiler) error {
	events := map[string]*model.Event{}
	for _, e := range b.Events {
		if e.ID == "" {
			return fmt.Errorf("event %q: id was empty", e.Name)
		}
		events[e.ID] = e
	}
	services := map[string]bool{}
	for _, s := range b.Services {
		if s.ID == "" {
			return fmt.Errorf("service %q: id was empty", s.Name)
		}
		if s.Config.RecordKind != "" && !s.Config.RecordKind.Valid() {
			return fmt.Errorf("service %v: invalid record kind %q", s.ID, s.Config.RecordKind)
		}
		services[s.ID] = true
	}
	var errs []error
	ids := map[int64]bool{}
	for _, r := range b.Rules {
		if r.Event == nil && r.EventID != "" {
			e, ok := events[r.EventID]
			if !ok {
				errs = append(errs, fmt.Errorf("rule %d: unknown event %v", r.ID, r.EventID))
				continue
			}
			event := *e
			r.Event = &event
		}
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if ids[r.ID] {
			errs = append(errs, fmt.Errorf("rule %d: %w", r.ID, dao.ErrDuplicate))
		}
		ids[r.ID] = true
		if len(services) > 0 && !services[r.ServiceID] {
			errs = append(errs, fmt.Errorf("rule %d: unknown service %v", r.ID, r.ServiceID))
		}
		if compiler != nil {
			if err := compiler.Compile(r.Expression()); err != nil {
				errs = append(errs, fmt.Errorf("rule %d: %w", r.ID, err))
			}
		}
	}
	for _, r := range b.Resources {
		if r.ID == "" || r.Capacity < 0 {
			errs = append(errs, fmt.Errorf("resource %q: invalid id or capacity", r.ID))
		}
	}
	return errors.Join(errs...)
}

// Install saves the bundle definitions.
func (b *Bundle) Install(ctx context.Context, services dao.ServiceStore, rules dao.RuleStore, resources Registrar) error {
	for _, s := range b.Services {
		if err := services.Save(ctx, s); err != nil {
			return fmt.Errorf("failed to save service %v: %w", s.ID, err)
		}
	}
	for _, r := range b.Rules {
		if err := rules.Save(ctx, r); err != nil {
			return fmt.Errorf("failed to save rule %d: %w", r.ID, err)
		}
	}
	for _, r := range b.Resources {
		if err := resources.Register(ctx, r); err != nil {
			return fmt.Errorf("failed to register resource %v: %w", r.ID, err)
		}
	}
	return nil
}
