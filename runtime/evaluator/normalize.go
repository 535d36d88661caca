package evaluator

import "time"

// Normalize converts variables to the value set the sandbox understands:
// signed and unsigned integers become int64, floats become float64, nested
// maps and slices are converted recursively. The input is not modified.
func Normalize(variables map[string]interface{}) map[string]interface{} {
	ret := make(map[string]interface{}, len(variables))
	for k, v := range variables {
		ret[k] = normalizeValue(v)
	}
	return ret
}

func normalizeValue(v interface{}) interface{} {
	switch actual := v.(type) {
	case int:
		return int64(actual)
	case int8:
		return int64(actual)
	case int16:
		return int64(actual)
	case int32:
		return int64(actual)
	case uint:
		return int64(actual)
	case uint8:
		return int64(actual)
	case uint16:
		return int64(actual)
	case uint32:
		return int64(actual)
	case uint64:
		return int64(actual)
	case float32:
		return float64(actual)
	case *time.Time:
		if actual == nil {
			return nil
		}
		return *actual
	case map[string]interface{}:
		return Normalize(actual)
	case map[string]string:
		ret := make(map[string]interface{}, len(actual))
		for k, item := range actual {
			ret[k] = item
		}
		return ret
	case []interface{}:
		ret := make([]interface{}, len(actual))
		for i, item := range actual {
			ret[i] = normalizeValue(item)
		}
		return ret
	case []string:
		ret := make([]interface{}, len(actual))
		for i, item := range actual {
			ret[i] = item
		}
		return ret
	}
	return v
}
