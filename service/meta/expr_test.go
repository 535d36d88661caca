package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	var testCases = []struct {
		description string
		env         map[string]string
		input       string
		expect      string
	}{
		{description: "plain", input: "capacity: 2", expect: "capacity: 2"},
		{description: "single", env: map[string]string{"DESKS": "4"}, input: "capacity: ${env.DESKS}", expect: "capacity: 4"},
		{description: "multiple", env: map[string]string{"A": "1", "B": "2"}, input: "${env.A}-${env.B}-${env.A}", expect: "1-2-1"},
		{description: "unset", input: "x${env.RULEFLOW_UNSET_VAR}y", expect: "xy"},
		{description: "unclosed", input: "x${env.A", expect: "x${env.A"},
		{description: "invalid key", env: map[string]string{"B": "2"}, input: "${env.a-b}${env.B}", expect: "${env.a-b}2"},
	}
	for _, testCase := range testCases {
		for k, v := range testCase.env {
			t.Setenv(k, v)
		}
		assert.Equal(t, testCase.expect, expandEnv(testCase.input), testCase.description)
	}
}
