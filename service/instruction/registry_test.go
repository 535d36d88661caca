package instruction

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/ruleflow/model/types"
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/action/log"
	"github.com/viant/ruleflow/service/action/nop"
	"github.com/viant/ruleflow/service/action/process"
)

func TestSplit(t *testing.T) {
	var testCases = []struct {
		name    string
		service string
		method  string
	}{
		{name: "nop", service: "nop"},
		{name: "process.start", service: "process", method: "start"},
		{name: " log.warn ", service: "log", method: "warn"},
	}
	for _, testCase := range testCases {
		service, method := Split(testCase.name)
		assert.Equal(t, testCase.service, service, testCase.name)
		assert.Equal(t, testCase.method, method, testCase.name)
	}
}

func TestRegistry_Execute(t *testing.T) {
	registry := New(nop.New(), log.New(hclog.NewNullLogger()), process.New(nil))
	input := &types.Input{
		Process: execution.NewProcess("p1", 1, "intake", time.Now()),
		Context: map[string]interface{}{"message": "hello"},
	}

	var testCases = []struct {
		description string
		name        string
		expect      *types.Output
		expectErr   bool
	}{
		{description: "default method", name: "nop", expect: &types.Output{}},
		{description: "qualified method", name: "log.info", expect: &types.Output{}},
		{description: "wait", name: "process.wait", expect: &types.Output{Wait: true}},
		{description: "unknown service", name: "mail.send", expectErr: true},
		{description: "unknown method", name: "log.debug", expectErr: true},
	}
	for _, testCase := range testCases {
		output, err := registry.Execute(context.Background(), testCase.name, input)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expect, output, testCase.description)
	}
	assert.Contains(t, registry.Names(), "process.sendBack")
}
