package utils

import "strconv"

func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0)
	for _, v := range slice {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}

// ToString renders a scalar claim value. Arrays yield their first string element.
func ToString(v any) (string, bool) {
	switch value := v.(type) {
	case string:
		return value, true
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(value, 10), true
	case int:
		return strconv.Itoa(value), true
	case bool:
		return strconv.FormatBool(value), true
	case []any:
		if s := ToStringSlice(value); len(s) > 0 {
			return s[0], true
		}
	case []string:
		if len(value) > 0 {
			return value[0], true
		}
	}
	return "", false
}
