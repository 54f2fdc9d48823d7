// SPDX-License-Identifier: MIT

package config

import (
	"reflect"
	"strings"
)

// sensitiveKeywords are field-name substrings that mark a value as secret:
// matching fields are replaced with "***" rather than exposed over the
// config API or written to logs.
var sensitiveKeywords = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"credential",
}

// MaskSecrets recursively masks sensitive fields in data, for safe exposure
// via GET /v1/config and structured logging of a config snapshot.
func MaskSecrets(data any) any {
	if data == nil {
		return nil
	}

	val := reflect.ValueOf(data)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		result := make(map[string]any)
		iter := val.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			if isSensitiveKey(key) {
				result[key] = "***"
			} else {
				result[key] = MaskSecrets(iter.Value().Interface())
			}
		}
		return result

	case reflect.Slice, reflect.Array:
		length := val.Len()
		result := make([]any, length)
		for i := 0; i < length; i++ {
			result[i] = MaskSecrets(val.Index(i).Interface())
		}
		return result

	case reflect.Struct:
		result := make(map[string]any)
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			if isSensitiveKey(field.Name) {
				result[field.Name] = "***"
			} else {
				result[field.Name] = MaskSecrets(val.Field(i).Interface())
			}
		}
		return result

	default:
		return data
	}
}

func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return true
		}
	}
	return false
}
