package tools

import "fmt"

// parseViewRange extracts an optional view_range=[start,end] argument.
func parseViewRange(params map[string]any) ([]int, error) {
	raw, ok := params["view_range"]
	if !ok || raw == nil {
		return nil, nil
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("view_range must be a list of integers")
	}
	out := make([]int, len(arr))
	for i, v := range arr {
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("view_range must be a list of integers")
		}
		out[i] = int(f)
	}
	return out, nil
}

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func boolParam(params map[string]any, key string) bool {
	b, _ := params[key].(bool)
	return b
}
