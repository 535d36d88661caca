package model

// CloneMap returns a deep copy of nested map/slice values.
func CloneMap(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	ret := make(map[string]interface{}, len(src))
	for k, v := range src {
		ret[k] = cloneValue(v)
	}
	return ret
}

func cloneValue(v interface{}) interface{} {
	switch actual := v.(type) {
	case map[string]interface{}:
		return CloneMap(actual)
	case []interface{}:
		ret := make([]interface{}, len(actual))
		for i, item := range actual {
			ret[i] = cloneValue(item)
		}
		return ret
	default:
		return v
	}
}
