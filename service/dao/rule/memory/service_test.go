package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/ruleflow/model"
)

func TestService_ByService(t *testing.T) {
	ctx := context.Background()
	srv := New()
	for _, rule := range []*model.Rule{
		{ID: 4, ServiceID: "intake", Order: 5, Event: &model.Event{Expression: "true"}},
		{ID: 2, ServiceID: "intake", Order: 1, Event: &model.Event{Expression: "true"}},
		{ID: 3, ServiceID: "intake", Order: 5, Event: &model.Event{Expression: "true"}},
		{ID: 1, ServiceID: "intake", Order: 3, Event: &model.Event{Expression: "true", IsTimer: true}},
		{ID: 5, ServiceID: "other", Order: 0, Event: &model.Event{Expression: "true", IsTimer: true}},
	} {
		require.NoError(t, srv.Save(ctx, rule))
	}
	rules, err := srv.ByService(ctx, "intake")
	require.NoError(t, err)
	var ids []int64
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{2, 1, 3, 4}, ids)

	timers, err := srv.Timers(ctx)
	require.NoError(t, err)
	require.Len(t, timers, 2)
	assert.EqualValues(t, 5, timers[0].ID)
}
