package process

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/ruleflow/model/types"
	"github.com/viant/ruleflow/runtime/execution"
)

type spawnerFunc func(ctx context.Context, parent *execution.Process, serviceID string, fields map[string]interface{}) (*execution.Process, error)

func (f spawnerFunc) Spawn(ctx context.Context, parent *execution.Process, serviceID string, fields map[string]interface{}) (*execution.Process, error) {
	return f(ctx, parent, serviceID, fields)
}

func TestService_Methods(t *testing.T) {
	now := time.Now()
	var spawned []string
	srv := New(spawnerFunc(func(ctx context.Context, parent *execution.Process, serviceID string, fields map[string]interface{}) (*execution.Process, error) {
		if serviceID == "broken" {
			return nil, errors.New("boom")
		}
		spawned = append(spawned, serviceID)
		return execution.NewProcess("child-"+serviceID, 2, serviceID, now), nil
	}))
	current := execution.NewProcess("p1", 1, "intake", now)
	current.PreviousID = "p0"

	var testCases = []struct {
		description string
		method      string
		input       *types.Input
		expect      *types.Output
		expectErr   bool
	}{
		{
			description: "start operand",
			method:      "start",
			input:       &types.Input{Process: current, Operand: "review"},
			expect:      &types.Output{Spawned: []string{"child-review"}, Payload: map[string]interface{}{StartedKey: "child-review"}},
		},
		{
			description: "start from context",
			method:      "start",
			input:       &types.Input{Process: current, Context: map[string]interface{}{ServiceKey: "audit"}},
			expect:      &types.Output{Spawned: []string{"child-audit"}, Payload: map[string]interface{}{StartedKey: "child-audit"}},
		},
		{
			description: "start without service",
			method:      "start",
			input:       &types.Input{Process: current},
			expectErr:   true,
		},
		{
			description: "start failure",
			method:      "start",
			input:       &types.Input{Process: current, Operand: "broken"},
			expectErr:   true,
		},
		{
			description: "send back to previous",
			method:      "sendBack",
			input:       &types.Input{Process: current},
			expect:      &types.Output{Cancel: true, FollowUp: []string{"p0"}, Payload: map[string]interface{}{SentBackKey: "p0"}},
		},
		{
			description: "send back without previous",
			method:      "sendBack",
			input:       &types.Input{Process: execution.NewProcess("p2", 3, "intake", now)},
			expectErr:   true,
		},
		{
			description: "wait",
			method:      "wait",
			input:       &types.Input{Process: current, Operand: "approval"},
			expect:      &types.Output{Wait: true, Payload: map[string]interface{}{WaitingKey: "approval"}},
		},
		{
			description: "missing process",
			method:      "wait",
			input:       &types.Input{},
			expectErr:   true,
		},
	}

	for _, testCase := range testCases {
		executable, err := srv.Method(testCase.method)
		require.NoError(t, err, testCase.description)
		output := &types.Output{}
		err = executable(context.Background(), testCase.input, output)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expect, output, testCase.description)
	}
	assert.Equal(t, []string{"review", "audit"}, spawned)

	_, err := srv.Method("unknown")
	assert.Error(t, err)
}
