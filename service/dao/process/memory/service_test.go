package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/dao"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	srv := New()
	assert.ErrorIs(t, srv.Save(ctx, nil), dao.ErrNilEntity)
	assert.ErrorIs(t, srv.Save(ctx, &execution.Process{}), dao.ErrInvalidID)

	require.NoError(t, srv.Save(ctx, &execution.Process{ID: "b", Seq: 2, ServiceID: "s", State: execution.StateWaiting, ParentID: "a"}))
	require.NoError(t, srv.Save(ctx, &execution.Process{ID: "a", Seq: 1, ServiceID: "s", State: execution.StateRunning}))
	require.NoError(t, srv.Save(ctx, &execution.Process{ID: "c", Seq: 3, ServiceID: "s", State: execution.StateNew, ParentID: "a"}))

	all, err := srv.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "c", all[2].ID)

	children, err := srv.List(ctx, dao.NewParameter(dao.ParamParentID, "a"))
	require.NoError(t, err)
	assert.Len(t, children, 2)

	active, err := srv.List(ctx, dao.NewParameter(dao.ParamState, string(execution.StateRunning), string(execution.StateWaiting)))
	require.NoError(t, err)
	assert.Len(t, active, 2)

	updated, err := srv.Update(ctx, "a", func(p *execution.Process) error {
		p.Priority = 7
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 7, updated.Priority)
	updated.Priority = 1
	loaded, err := srv.Load(ctx, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 7, loaded.Priority)

	_, err = srv.Load(ctx, "missing")
	assert.ErrorIs(t, err, dao.ErrNotFound)
	require.NoError(t, srv.Delete(ctx, "a"))
	assert.ErrorIs(t, srv.Delete(ctx, "a"), dao.ErrNotFound)
}
