package model

import "math"

// IntParam は SetParams に渡された値を int として解釈する
//
// YAML や JSON から読んだ数値は float64 になることがあるため、整数値の float64 も受け付ける。
func IntParam(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	}
	return 0, false
}

// FloatParam は SetParams に渡された値を float64 として解釈する
func FloatParam(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
