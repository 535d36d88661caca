package meta

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/runtime/evaluator"
	"github.com/viant/ruleflow/service/allocator"
	definitions "github.com/viant/ruleflow/service/dao/definition/memory"
	resources "github.com/viant/ruleflow/service/dao/resource/memory"
	rules "github.com/viant/ruleflow/service/dao/rule/memory"
)

const bundleYAML = `
services:
  - id: intake
    name: Intake
    config:
      recordKind: form
      priority: 3
  - id: review
    name: Review
events:
  - id: big
    name: big amount
    expression: amount > threshold
rules:
  - id: 1
    serviceId: intake
    eventId: big
    order: 1
    operandService: review
    parameterValues:
      threshold: 5
  - id: 2
    serviceId: review
    order: 1
    systemInstruction: process.wait
    event:
      name: always
      expression: "true"
resources:
  - id: desk
    name: Desk
    capacity: ${env.RULEFLOW_TEST_DESKS}
`

func TestService_Load(t *testing.T) {
	t.Setenv("RULEFLOW_TEST_DESKS", "2")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bundle.yaml"), []byte(bundleYAML), 0644))
	eval, err := evaluator.New(evaluator.DefaultConfig())
	require.NoError(t, err)

	srv := New(afs.New(), "file://"+dir, WithCompiler(eval))
	bundle, err := srv.Load(context.Background(), "bundle")
	require.NoError(t, err)
	require.Len(t, bundle.Services, 2)
	assert.Equal(t, model.RecordKindForm, bundle.Services[0].Config.RecordKind)
	assert.EqualValues(t, 3, bundle.Services[0].Config.Priority)
	require.Len(t, bundle.Rules, 2)
	require.NotNil(t, bundle.Rules[0].Event)
	assert.Equal(t, "amount > threshold", bundle.Rules[0].Expression())
	assert.Equal(t, 5, bundle.Rules[0].ParameterValues["threshold"])
	require.Len(t, bundle.Resources, 1)
	assert.Equal(t, 2, bundle.Resources[0].Capacity)

	ctx := context.Background()
	serviceDao, ruleDao := definitions.New(), rules.New()
	ledger := allocator.New(resources.New())
	require.NoError(t, bundle.Install(ctx, serviceDao, ruleDao, ledger))
	byService, err := ruleDao.ByService(ctx, "intake")
	require.NoError(t, err)
	assert.Len(t, byService, 1)
	available, err := ledger.Available(ctx, "desk")
	require.NoError(t, err)
	assert.Equal(t, 2, available)
}

func TestService_Decode_Invalid(t *testing.T) {
	eval, err := evaluator.New(evaluator.DefaultConfig())
	require.NoError(t, err)
	srv := New(nil, "", WithCompiler(eval))
	var testCases = []struct {
		description string
		yaml        string
	}{
		{description: "unknown event", yaml: "rules:\n  - id: 1\n    serviceId: a\n    eventId: nope\n"},
		{description: "missing expression", yaml: "rules:\n  - id: 1\n    serviceId: a\n    event:\n      name: x\n"},
		{description: "syntax error", yaml: "rules:\n  - id: 1\n    serviceId: a\n    event:\n      expression: \"amount >\"\n"},
		{description: "duplicate rule", yaml: "rules:\n  - {id: 1, serviceId: a, event: {expression: \"true\"}}\n  - {id: 1, serviceId: a, event: {expression: \"true\"}}\n"},
		{description: "unknown service", yaml: "services:\n  - id: b\nrules:\n  - {id: 1, serviceId: a, event: {expression: \"true\"}}\n"},
		{description: "bad record kind", yaml: "services:\n  - id: b\n    config: {recordKind: invoice}\n"},
		{description: "malformed yaml", yaml: "rules: [\n"},
	}
	for _, testCase := range testCases {
		_, err := srv.Decode([]byte(testCase.yaml))
		assert.Error(t, err, testCase.description)
	}
}
