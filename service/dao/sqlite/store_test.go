package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/dao"
)

func newTestStores(t *testing.T) *Stores {
	t.Helper()
	stores, err := New(filepath.Join(t.TempDir(), "ruleflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close() })
	return stores
}

func TestMigrate_Idempotent(t *testing.T) {
	stores := newTestStores(t)
	require.NoError(t, Migrate(stores.DB))
	var version int
	require.NoError(t, stores.DB.QueryRow(`SELECT version FROM schema_version`).Scan(&version))
	assert.Equal(t, 1, version)
}

func TestProcessStore(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	root := execution.NewProcess("root", 1, "intake", now)
	root.Business = map[string]interface{}{"region": "east"}
	root.Record = &model.RecordRef{Kind: model.RecordKindForm, ID: "f1"}
	require.NoError(t, stores.Processes.Save(ctx, root))
	child := execution.NewProcess("child", 2, "review", now)
	child.ParentID = "root"
	child.State = execution.StateBlocked
	child.BlockedOn = "room"
	require.NoError(t, stores.Processes.Save(ctx, child))

	loaded, err := stores.Processes.Load(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, "east", loaded.Business["region"])
	assert.Equal(t, "f1", loaded.Record.ID)
	assert.True(t, now.Equal(loaded.CreatedAt))

	blocked, err := stores.Processes.List(ctx, dao.NewParameter(dao.ParamBlockedOn, "room"), dao.NewParameter(dao.ParamState, string(execution.StateBlocked)))
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, "child", blocked[0].ID)

	all, err := stores.Processes.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	updated, err := stores.Processes.Update(ctx, "root", func(p *execution.Process) error {
		p.Priority = 5
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 5, updated.Priority)

	_, err = stores.Processes.Update(ctx, "root", func(p *execution.Process) error {
		p.Priority = 9
		return errors.New("rejected")
	})
	assert.Error(t, err)
	loaded, err = stores.Processes.Load(ctx, "root")
	require.NoError(t, err)
	assert.EqualValues(t, 5, loaded.Priority)

	_, err = stores.Processes.Load(ctx, "missing")
	assert.ErrorIs(t, err, dao.ErrNotFound)
	require.NoError(t, stores.Processes.Delete(ctx, "child"))
	assert.ErrorIs(t, stores.Processes.Delete(ctx, "child"), dao.ErrNotFound)
}

func TestRuleStore(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	for _, rule := range []*model.Rule{
		{ID: 1, ServiceID: "intake", Order: 5, Event: &model.Event{Expression: "true"}},
		{ID: 2, ServiceID: "intake", Order: 1, Event: &model.Event{Expression: "true"}},
		{ID: 3, ServiceID: "intake", Order: 5, Event: &model.Event{Expression: "true"}},
		{ID: 4, ServiceID: "intake", Order: 3, Event: &model.Event{Expression: "tick", IsTimer: true}, ParameterValues: map[string]interface{}{"k": "v"}},
	} {
		require.NoError(t, stores.Rules.Save(ctx, rule))
	}
	rules, err := stores.Rules.ByService(ctx, "intake")
	require.NoError(t, err)
	var orders []int
	for _, r := range rules {
		orders = append(orders, r.Order)
	}
	assert.Equal(t, []int{1, 3, 5, 5}, orders)
	assert.EqualValues(t, 1, rules[2].ID)

	timers, err := stores.Rules.Timers(ctx)
	require.NoError(t, err)
	require.Len(t, timers, 1)
	assert.Equal(t, "v", timers[0].ParameterValues["k"])
}

func TestResourceStore_ConcurrentUpdate(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	require.NoError(t, stores.Resources.Save(ctx, &model.Resource{ID: "room", Name: "Room", Capacity: 1, UpdatedAt: time.Now()}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	success := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := stores.Resources.Update(ctx, "room", func(r *model.Resource) error {
				if r.CurrentUsage+1 > r.Capacity {
					return errors.New("exhausted")
				}
				r.CurrentUsage++
				return nil
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, success)
	r, err := stores.Resources.Load(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, 1, r.CurrentUsage)

	_, err = stores.Resources.Update(ctx, "room", func(r *model.Resource) error {
		r.CurrentUsage = 2
		return nil
	})
	assert.Error(t, err, "check constraint keeps usage within capacity")
}

func TestSnapshotStore(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	snapshot := &model.Snapshot{ProcessID: "p1", Version: 1, Trigger: "created", Context: map[string]interface{}{"a": "b"}, CreatedAt: time.Now()}
	require.NoError(t, stores.Snapshots.Append(ctx, snapshot))
	assert.ErrorIs(t, stores.Snapshots.Append(ctx, snapshot), dao.ErrDuplicate)
	snapshot.Version = 2
	require.NoError(t, stores.Snapshots.Append(ctx, snapshot))
	list, err := stores.Snapshots.List(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[1].Context["a"])
	assert.Equal(t, "created", list[0].Trigger)
}
