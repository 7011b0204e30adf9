package core

import "reflect"

// Strip returns a copy of m without the keys whose value is unset,
// i.e. a nil interface or a typed nil pointer, map, slice, func or chan.
func Strip(m map[string]any) map[string]any {
	res := make(map[string]any, len(m))
	for k, v := range m {
		if isUnset(v) {
			continue
		}
		res[k] = v
	}
	return res
}

func isUnset(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// optional maps the empty string to an unset value.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
