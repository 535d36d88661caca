package spawner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/ruleflow/internal/clock"
	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/runtime/execution"
	definitions "github.com/viant/ruleflow/service/dao/definition/memory"
	processes "github.com/viant/ruleflow/service/dao/process/memory"
	records "github.com/viant/ruleflow/service/record/memory"
)

func TestService_Spawn(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	processDao := processes.New()
	serviceDao := definitions.New()
	recordSrv := records.New()
	require.NoError(t, serviceDao.Save(ctx, &model.Service{ID: "review", Config: model.ServiceConfig{RecordKind: model.RecordKindDocument, Fields: map[string]interface{}{"status": "draft"}}}))

	var created []string
	srv := New(processDao, serviceDao, recordSrv, WithNow(clock.Fixed(now)), WithListeners(func(ctx context.Context, p *execution.Process) {
		created = append(created, p.ID)
	}))

	parent := execution.NewProcess("p1", 1, "intake", now)
	parent.EntityID = "e1"
	parent.ContractID = "c1"
	parent.Priority = 7
	parent.OperatorID = "op1"
	parent.Business = map[string]interface{}{"amount": 10}

	child, err := srv.Spawn(ctx, parent, "review", map[string]interface{}{"title": "check"})
	require.NoError(t, err)
	assert.Equal(t, execution.StateNew, child.State)
	assert.Equal(t, "p1", child.ParentID)
	assert.Equal(t, "p1", child.PreviousID)
	assert.Equal(t, "e1", child.EntityID)
	assert.Equal(t, "c1", child.ContractID)
	assert.EqualValues(t, 7, child.Priority)
	assert.Equal(t, "op1", child.CreatorID)
	assert.Equal(t, 10, child.Business["amount"])
	assert.Equal(t, now, child.CreatedAt)
	require.NotNil(t, child.Record)
	assert.Equal(t, model.RecordKindDocument, child.Record.Kind)
	assert.Equal(t, []string{child.ID}, created)

	fields, err := recordSrv.Fields(ctx, child.Record)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"status": "draft", "title": "check"}, fields)

	stored, err := processDao.Load(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, child.ID, stored.ID)

	child.Business["amount"] = 20
	assert.Equal(t, 10, parent.Business["amount"])
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	serviceDao := definitions.New()
	require.NoError(t, serviceDao.Save(ctx, &model.Service{ID: "intake", Config: model.ServiceConfig{Priority: 3}}))
	srv := New(processes.New(), serviceDao, nil)

	var testCases = []struct {
		description string
		request     *Request
		priority    uint8
		expectErr   bool
	}{
		{description: "service default priority", request: &Request{ServiceID: "intake"}, priority: 3},
		{description: "explicit priority", request: &Request{ServiceID: "intake", Priority: 9}, priority: 9},
		{description: "unknown service", request: &Request{ServiceID: "missing"}, expectErr: true},
		{description: "empty service", request: &Request{}, expectErr: true},
	}
	for _, testCase := range testCases {
		p, err := srv.Create(ctx, testCase.request)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.priority, p.Priority, testCase.description)
		assert.Nil(t, p.Record, testCase.description)
	}
}
