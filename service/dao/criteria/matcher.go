package criteria

import (
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/dao"
)

// MatchProcess reports whether p satisfies every parameter. Unknown parameter
// names are ignored.
func MatchProcess(p *execution.Process, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		var actual string
		switch parameter.Name {
		case dao.ParamState:
			actual = string(p.State)
		case dao.ParamParentID:
			actual = p.ParentID
		case dao.ParamBlockedOn:
			actual = p.BlockedOn
		case dao.ParamServiceID:
			actual = p.ServiceID
		default:
			continue
		}
		if !Match(actual, parameter) {
			return false
		}
	}
	return true
}

// Match reports whether value equals the parameter value or one of its values.
func Match(value string, parameter *dao.Parameter) bool {
	switch expected := parameter.Value.(type) {
	case string:
		return value == expected
	case []string:
		for _, candidate := range expected {
			if value == candidate {
				return true
			}
		}
		return false
	case execution.State:
		return value == string(expected)
	case []execution.State:
		for _, candidate := range expected {
			if value == string(candidate) {
				return true
			}
		}
		return false
	}
	return true
}

// StateValues returns the SQL friendly string values of a parameter.
func StateValues(parameter *dao.Parameter) []string {
	switch expected := parameter.Value.(type) {
	case string:
		return []string{expected}
	case []string:
		return expected
	case execution.State:
		return []string{string(expected)}
	case []execution.State:
		ret := make([]string, len(expected))
		for i, s := range expected {
			ret[i] = string(s)
		}
		return ret
	}
	return nil
}
