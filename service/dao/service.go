package dao

import (
	"context"

	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/runtime/execution"
)

type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}

// ProcessStore persists processes. Update performs an atomic
// read-modify-write of one process row.
type ProcessStore interface {
	Service[string, execution.Process]

	Update(ctx context.Context, id string, fn func(p *execution.Process) error) (*execution.Process, error)
}

// RuleStore persists service rules.
type RuleStore interface {
	Service[int64, model.Rule]

	// ByService returns rules attached to the service.
	ByService(ctx context.Context, serviceID string) ([]*model.Rule, error)

	// Timers returns all timer rules.
	Timers(ctx context.Context) ([]*model.Rule, error)
}

// ServiceStore persists service definitions.
type ServiceStore interface {
	Service[string, model.Service]
}

// ResourceStore persists ledger rows. Update performs an atomic
// read-modify-write of one resource row.
type ResourceStore interface {
	Service[string, model.Resource]

	Update(ctx context.Context, id string, fn func(r *model.Resource) error) (*model.Resource, error)
}

// SnapshotStore appends immutable context snapshots.
type SnapshotStore interface {
	// Append stores a snapshot; ErrDuplicate is returned for an existing (process, version).
	Append(ctx context.Context, snapshot *model.Snapshot) error

	// List returns snapshots of a process ordered by version.
	List(ctx context.Context, processID string) ([]*model.Snapshot, error)
}
