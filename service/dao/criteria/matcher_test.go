package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/dao"
)

func TestMatchProcess(t *testing.T) {
	p := &execution.Process{ID: "1", ServiceID: "s", ParentID: "root", State: execution.StateWaiting, BlockedOn: ""}
	testCases := []struct {
		name   string
		params []*dao.Parameter
		expect bool
	}{
		{name: "no params", expect: true},
		{name: "state match", params: []*dao.Parameter{dao.NewParameter(dao.ParamState, "waiting")}, expect: true},
		{name: "state list", params: []*dao.Parameter{dao.NewParameter(dao.ParamState, "running", "waiting")}, expect: true},
		{name: "state typed", params: []*dao.Parameter{{Name: dao.ParamState, Value: []execution.State{execution.StateBlocked}}}, expect: false},
		{name: "parent and state", params: []*dao.Parameter{dao.NewParameter(dao.ParamParentID, "root"), dao.NewParameter(dao.ParamState, "new")}, expect: false},
		{name: "unknown ignored", params: []*dao.Parameter{dao.NewParameter("Color", "red")}, expect: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, MatchProcess(p, tc.params))
		})
	}
}
