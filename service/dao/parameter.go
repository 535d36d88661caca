package dao

// Parameter names a list filter.
type Parameter struct {
	Name  string
	Value interface{}
}

// Known filter names.
const (
	ParamState     = "State"
	ParamParentID  = "ParentID"
	ParamBlockedOn = "BlockedOn"
	ParamServiceID = "ServiceID"
)

func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}
