package render

import "math"

// Sanitize replaces NaN and infinities with nil throughout a payload built
// from maps and slices, so it always encodes as valid JSON.
func Sanitize(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case float32:
		return Sanitize(float64(x))
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = Sanitize(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = Sanitize(val)
		}
		return out
	case []float64:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = Sanitize(val)
		}
		return out
	case [][]float64:
		out := make([]any, len(x))
		for i, row := range x {
			out[i] = Sanitize(row)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = Sanitize(val)
		}
		return out
	}
	return v
}
