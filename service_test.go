package ruleflow_test

import (
	"context"
	"embed"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "github.com/viant/afs/embed"
	"github.com/viant/ruleflow"
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/allocator"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/service/event"
	"github.com/viant/ruleflow/service/scheduler"
	"github.com/viant/ruleflow/service/spawner"
)

//go:embed testdata/*
var embedFS embed.FS

func newService(t *testing.T, options ...ruleflow.Option) *ruleflow.Runtime {
	t.Helper()
	options = append([]ruleflow.Option{
		ruleflow.WithMetaFsOptions(&embedFS),
		ruleflow.WithMetaBaseURL("embed:///testdata"),
	}, options...)
	srv, err := ruleflow.New(options...)
	require.NoError(t, err)
	runtime := srv.Runtime()
	t.Cleanup(func() { _ = runtime.Shutdown(context.Background()) })
	_, err = runtime.LoadDefinitions(context.Background(), "bundle.yaml")
	require.NoError(t, err)
	return runtime
}

func TestService_LoadDefinitions(t *testing.T) {
	runtime := newService(t)
	ctx := context.Background()
	desk, err := runtime.Resource(ctx, "desk")
	require.NoError(t, err)
	assert.Equal(t, 2, desk.Capacity)
	assert.Contains(t, runtime.Instructions(), "process.wait")
	assert.Contains(t, runtime.Instructions(), "log.info")
}

func TestRuntime_Dispatch_SubProcess(t *testing.T) {
	runtime := newService(t)
	ctx := context.Background()

	p, err := runtime.CreateProcess(ctx, &spawner.Request{ServiceID: "intake", Business: map[string]interface{}{"amount": 10}})
	require.NoError(t, err)
	assert.Equal(t, execution.StateNew, p.State)
	require.NotNil(t, p.Record)

	outcome, err := runtime.Dispatch(ctx, p.ID, scheduler.TriggerCreated)
	require.NoError(t, err)
	assert.Equal(t, execution.StateTerminated, outcome.State)
	require.NotNil(t, outcome.Result)
	assert.Len(t, outcome.Result.Fired, 2)

	children, err := runtime.Children(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "review", children[0].ServiceID)
	assert.Equal(t, execution.StateNew, children[0].State)
	assert.Equal(t, 10, children[0].Business["amount"])

	snapshots, err := runtime.Snapshots(ctx, p.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, snapshots)

	again, err := runtime.Dispatch(ctx, p.ID, scheduler.TriggerUpdated)
	require.NoError(t, err)
	assert.Equal(t, execution.StateTerminated, again.State)
	assert.False(t, again.Changed())
}

func TestRuntime_Dispatch_NoMatch(t *testing.T) {
	runtime := newService(t)
	ctx := context.Background()
	p, err := runtime.CreateProcess(ctx, &spawner.Request{ServiceID: "intake", Business: map[string]interface{}{"amount": 1}})
	require.NoError(t, err)
	outcome, err := runtime.Dispatch(ctx, p.ID, scheduler.TriggerCreated)
	require.NoError(t, err)
	assert.Equal(t, execution.StateTerminated, outcome.State)
	children, err := runtime.Children(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestRuntime_Start(t *testing.T) {
	var notifications []event.Notification
	var mux sync.Mutex
	runtime := newService(t, ruleflow.WithNotificationListener(func(e *event.Event[event.Notification]) {
		mux.Lock()
		defer mux.Unlock()
		notifications = append(notifications, e.Data)
	}))
	ctx := context.Background()
	require.NoError(t, runtime.Start(ctx))
	assert.Error(t, runtime.Start(ctx))

	p, err := runtime.CreateProcess(ctx, &spawner.Request{ServiceID: "intake", Business: map[string]interface{}{"amount": 10}})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		children, err := runtime.Children(ctx, p.ID)
		if err != nil || len(children) != 1 {
			return false
		}
		return children[0].State == execution.StateWaiting
	}, 5*time.Second, 10*time.Millisecond)

	parent, err := runtime.Process(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.StateTerminated, parent.State)

	desk, err := runtime.Resource(ctx, "desk")
	require.NoError(t, err)
	assert.Equal(t, 1, desk.CurrentUsage)

	waiting, err := runtime.Processes(ctx, dao.NewParameter(dao.ParamState, string(execution.StateWaiting)))
	require.NoError(t, err)
	assert.Len(t, waiting, 1)

	assert.Eventually(t, func() bool {
		mux.Lock()
		defer mux.Unlock()
		for _, n := range notifications {
			if n.ProcessID == p.ID && n.To == string(execution.StateTerminated) {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRuntime_Resources(t *testing.T) {
	runtime := newService(t)
	ctx := context.Background()
	require.NoError(t, runtime.Allocate(ctx, "desk", 1))
	require.NoError(t, runtime.Allocate(ctx, "desk", 1))
	assert.ErrorIs(t, runtime.Allocate(ctx, "desk", 1), allocator.ErrResourceExhausted)
	require.NoError(t, runtime.Release(ctx, "desk", 2))
	list, err := runtime.Resources(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].CurrentUsage)
}

func TestRuntime_AssignAndPriority(t *testing.T) {
	runtime := newService(t)
	ctx := context.Background()
	p, err := runtime.CreateProcess(ctx, &spawner.Request{ServiceID: "review"})
	require.NoError(t, err)
	assigned, err := runtime.Assign(ctx, p.ID, "op-1")
	require.NoError(t, err)
	assert.Equal(t, "op-1", assigned.OperatorID)
	updated, err := runtime.SetPriority(ctx, p.ID, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 7, updated.Priority)
}

func TestService_Drivers(t *testing.T) {
	var testCases = []struct {
		description string
		store       func(dir string) ruleflow.StoreConfig
	}{
		{
			description: "sqlite",
			store: func(dir string) ruleflow.StoreConfig {
				return ruleflow.StoreConfig{Driver: ruleflow.DriverSQLite, DSN: filepath.Join(dir, "ruleflow.db")}
			},
		},
		{
			description: "fs",
			store: func(dir string) ruleflow.StoreConfig {
				return ruleflow.StoreConfig{Driver: ruleflow.DriverFS, DSN: filepath.Join(dir, "processes")}
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			config := ruleflow.DefaultConfig()
			config.Store = testCase.store(t.TempDir())
			runtime := newService(t, ruleflow.WithConfig(config))
			ctx := context.Background()
			p, err := runtime.CreateProcess(ctx, &spawner.Request{ServiceID: "intake", Business: map[string]interface{}{"amount": 10}})
			require.NoError(t, err)
			outcome, err := runtime.Dispatch(ctx, p.ID, scheduler.TriggerCreated)
			require.NoError(t, err)
			assert.Equal(t, execution.StateTerminated, outcome.State)
			children, err := runtime.Children(ctx, p.ID)
			require.NoError(t, err)
			assert.Len(t, children, 1)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	var testCases = []struct {
		description string
		yaml        string
		expectErr   bool
		verify      func(t *testing.T, config *ruleflow.Config)
	}{
		{
			description: "defaults",
			yaml:        "name: test\n",
			verify: func(t *testing.T, config *ruleflow.Config) {
				assert.Equal(t, "test", config.Name)
				assert.Equal(t, 300*time.Second, config.Scheduler.Timeout)
				assert.Equal(t, 3, config.Scheduler.MaxRetries)
				assert.Equal(t, 4, config.Processor.WorkerCount)
				assert.Equal(t, ruleflow.DriverMemory, config.Store.Driver)
				assert.Equal(t, 30*time.Second, config.Sweeper.SweepInterval)
			},
		},
		{
			description: "overrides",
			yaml:        "scheduler:\n  timeout: 10s\nprocessor:\n  workers: 2\nstore:\n  driver: sqlite\n  dsn: /tmp/x.db\n",
			verify: func(t *testing.T, config *ruleflow.Config) {
				assert.Equal(t, 10*time.Second, config.Scheduler.Timeout)
				assert.Equal(t, 2, config.Processor.WorkerCount)
				assert.Equal(t, ruleflow.DriverSQLite, config.Store.Driver)
			},
		},
		{description: "sqlite without dsn", yaml: "store:\n  driver: sqlite\n", expectErr: true},
		{description: "fs without dsn", yaml: "store:\n  driver: fs\n", expectErr: true},
		{description: "unknown driver", yaml: "store:\n  driver: oracle\n", expectErr: true},
	}
	for _, testCase := range testCases {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(testCase.yaml), 0644))
		config, err := ruleflow.LoadConfig(path)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		testCase.verify(t, config)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	config := ruleflow.DefaultConfig()
	config.Processor.WorkerCount = 0
	_, err := ruleflow.New(ruleflow.WithConfig(config))
	assert.Error(t, err)
}
