package metadata

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cast"

	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
)

// GetString returns key as a string. A missing key yields "" and no error.
func (m *Metadata) GetString(key string) (string, error) {
	return As[string](m, key)
}

// GetInt returns key as an int.
func (m *Metadata) GetInt(key string) (int, error) {
	return As[int](m, key)
}

// GetInt64 returns key as an int64.
func (m *Metadata) GetInt64(key string) (int64, error) {
	return As[int64](m, key)
}

// GetFloat returns key as a float64.
func (m *Metadata) GetFloat(key string) (float64, error) {
	return As[float64](m, key)
}

// GetBool returns key as a bool.
func (m *Metadata) GetBool(key string) (bool, error) {
	return As[bool](m, key)
}

// GetTime returns key as a time.Time.
func (m *Metadata) GetTime(key string) (time.Time, error) {
	return As[time.Time](m, key)
}

// GetDuration returns key as a time.Duration.
func (m *Metadata) GetDuration(key string) (time.Duration, error) {
	return As[time.Duration](m, key)
}

// GetStringSlice returns key as a []string.
func (m *Metadata) GetStringSlice(key string) ([]string, error) {
	return As[[]string](m, key)
}

// GetSlice returns key as a []any.
func (m *Metadata) GetSlice(key string) ([]any, error) {
	return As[[]any](m, key)
}

// GetStringMap returns key as a map[string]any.
func (m *Metadata) GetStringMap(key string) (map[string]any, error) {
	return As[map[string]any](m, key)
}

// StringOr returns key as a string, or def when the key is missing or not convertible.
func (m *Metadata) StringOr(key, def string) string {
	if !m.ContainsKey(key) {
		return def
	}
	s, err := m.GetString(key)
	if err != nil {
		return def
	}
	return s
}

// As converts the value stored at key to T. A missing key yields the zero
// value and no error; a value that cannot be converted yields a conversion
// error.
func As[T any](m *Metadata, key string) (T, error) {
	var zero T
	v, ok := m.TryGetValue(key)
	if !ok {
		return zero, nil
	}
	return Convert[T](key, v)
}

// GetList converts key to a []T. A scalar is treated as a single-element list
// and each element of a slice is converted individually.
func GetList[T any](m *Metadata, key string) ([]T, error) {
	v, ok := m.TryGetValue(key)
	if !ok || v == nil {
		return nil, nil
	}
	if list, ok := v.([]T); ok {
		return list, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		single, err := Convert[T](key, v)
		if err != nil {
			return nil, err
		}
		return []T{single}, nil
	}
	out := make([]T, 0, rv.Len())
	for i := range rv.Len() {
		t, err := Convert[T](fmt.Sprintf("%s[%d]", key, i), rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Convert performs a best-effort conversion of v to T.
func Convert[T any](key string, v any) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}
	var zero T
	var (
		out any
		err error
	)
	switch any(zero).(type) {
	case string:
		out, err = cast.ToStringE(v)
	case int:
		out, err = cast.ToIntE(v)
	case int64:
		out, err = cast.ToInt64E(v)
	case float64:
		out, err = cast.ToFloat64E(v)
	case bool:
		out, err = cast.ToBoolE(v)
	case time.Time:
		out, err = cast.ToTimeE(v)
	case time.Duration:
		out, err = cast.ToDurationE(v)
	case []string:
		out, err = cast.ToStringSliceE(v)
	case []any:
		out, err = cast.ToSliceE(v)
	case map[string]any:
		out, err = cast.ToStringMapE(v)
	case map[string]string:
		out, err = cast.ToStringMapStringE(v)
	default:
		err = fmt.Errorf("no conversion to %T", zero)
	}
	if err != nil {
		return zero, conversionError(key, v, zero, err)
	}
	return out.(T), nil
}

func conversionError(key string, v, target any, cause error) error {
	return ferrors.WrapError(cause, ferrors.CategoryConversion, "cannot convert metadata value").
		WithContext(ferrors.ContextKey, key).
		WithContext("from", fmt.Sprintf("%T", v)).
		WithContext("to", fmt.Sprintf("%T", target)).
		Build()
}
