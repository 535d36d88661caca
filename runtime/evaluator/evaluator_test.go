package evaluator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluator_Evaluate(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	variables := map[string]interface{}{
		"approved": true,
		"amount":   1500,
		"ratio":    float32(0.5),
		"priority": uint8(4),
		"status":   "open",
		"now":      now,
		"due":      now.Add(-time.Hour),
		"tags":     []string{"vip", "new"},
		"customer": map[string]interface{}{"tier": "gold", "age": 42},
	}
	testCases := []struct {
		name      string
		expr      string
		expect    bool
		expectErr bool
	}{
		{name: "bool variable", expr: "approved", expect: true},
		{name: "int comparison", expr: "amount > 1000", expect: true},
		{name: "int and double", expr: "amount > 999.5", expect: true},
		{name: "float", expr: "ratio == 0.5", expect: true},
		{name: "unsigned narrowed", expr: "priority >= 3", expect: true},
		{name: "string", expr: `status == "closed"`, expect: false},
		{name: "logical", expr: `approved && status == "open" || amount < 10`, expect: true},
		{name: "time", expr: "due < now", expect: true},
		{name: "list", expr: `"vip" in tags`, expect: true},
		{name: "nested map", expr: `customer.tier == "gold" && customer.age > 40`, expect: true},
		{name: "has macro", expr: `has(customer.score)`, expect: false},
		{name: "undefined variable", expr: "missing > 1", expectErr: true},
		{name: "malformed", expr: "amount >", expectErr: true},
		{name: "non bool", expr: "amount + 1", expectErr: true},
		{name: "empty", expr: "", expectErr: true},
	}
	evaluator, err := New(DefaultConfig())
	require.NoError(t, err)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := evaluator.Evaluate(tc.expr, variables)
			if tc.expectErr {
				assert.True(t, errors.Is(err, ErrConditionEvaluation), "%v", err)
				assert.False(t, actual)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expect, actual)
		})
	}
}

func TestEvaluator_Cache(t *testing.T) {
	evaluator, err := New(Config{CacheSize: 2})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		ok, err := evaluator.Evaluate("x == 1", map[string]interface{}{"x": 1})
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, evaluator.cache.Len())
	assert.Error(t, evaluator.Compile("("))
	assert.Equal(t, 2, evaluator.cache.Len())
}

func TestNormalize_DoesNotMutate(t *testing.T) {
	input := map[string]interface{}{"n": 1, "nested": map[string]interface{}{"m": int32(2)}}
	out := Normalize(input)
	assert.Equal(t, int64(1), out["n"])
	assert.Equal(t, int64(2), out["nested"].(map[string]interface{})["m"])
	assert.Equal(t, 1, input["n"])
	assert.Equal(t, int32(2), input["nested"].(map[string]interface{})["m"])
}
