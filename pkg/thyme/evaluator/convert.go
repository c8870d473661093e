package evaluator

import (
	"fmt"
	"math"
	"time"
)

// FromGo converts a decoded front matter or config value to an Object.
// Whole floats become integers; other floats, dates and unknown scalars are
// carried as strings.
func FromGo(value any) Object {
	switch v := value.(type) {
	case nil:
		return NULL
	case Object:
		return v
	case bool:
		return nativeBoolToBoolean(v)
	case int:
		return &Integer{Value: int64(v)}
	case int8:
		return &Integer{Value: int64(v)}
	case int16:
		return &Integer{Value: int64(v)}
	case int32:
		return &Integer{Value: int64(v)}
	case int64:
		return &Integer{Value: v}
	case uint:
		return &Integer{Value: int64(v)}
	case uint8:
		return &Integer{Value: int64(v)}
	case uint16:
		return &Integer{Value: int64(v)}
	case uint32:
		return &Integer{Value: int64(v)}
	case uint64:
		return &Integer{Value: int64(v)}
	case float32:
		return floatToObject(float64(v))
	case float64:
		return floatToObject(v)
	case string:
		return &String{Value: v}
	case time.Time:
		return &String{Value: formatTime(v)}
	case []any:
		elements := make([]Object, len(v))
		for i, elem := range v {
			elements[i] = FromGo(elem)
		}
		return &Array{Elements: elements}
	case []string:
		elements := make([]Object, len(v))
		for i, elem := range v {
			elements[i] = &String{Value: elem}
		}
		return &Array{Elements: elements}
	case map[string]any:
		pairs := make(map[string]Object, len(v))
		for key, val := range v {
			pairs[key] = FromGo(val)
		}
		return &Map{Pairs: pairs}
	case map[string]string:
		pairs := make(map[string]Object, len(v))
		for key, val := range v {
			pairs[key] = &String{Value: val}
		}
		return &Map{Pairs: pairs}
	case map[any]any:
		pairs := make(map[string]Object, len(v))
		for key, val := range v {
			pairs[fmt.Sprint(key)] = FromGo(val)
		}
		return &Map{Pairs: pairs}
	case fmt.Stringer:
		return &String{Value: v.String()}
	default:
		return &String{Value: fmt.Sprintf("%v", v)}
	}
}

func floatToObject(f float64) Object {
	if f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
		return &Integer{Value: int64(f)}
	}
	return &String{Value: fmt.Sprint(f)}
}

// formatTime renders dates without a time of day as YYYY-MM-DD.
func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}
