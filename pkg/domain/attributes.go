package domain

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

var (
	errUnknownAttribute = errors.New("unknown attribute")
	errLossyInteger     = errors.New("value is not a whole number in range")
)

// Attributes returns every attribute of r keyed by its json name. Values keep
// their Go types (int, float64, string, bool).
func Attributes(r Record) (map[string]any, error) {
	out := make(map[string]any)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &out,
	})
	if err != nil {
		return nil, fmt.Errorf("attributes decoder: %w", err)
	}
	if err := dec.Decode(r); err != nil {
		return nil, fmt.Errorf("read %s attributes: %w", r.Level(), err)
	}
	return out, nil
}

// AttributeNames lists the attribute names of a level in sorted order.
func AttributeNames(level Level) []string {
	rec, err := NewRecord(level, Scope{}, make(Key, level.Depth()))
	if err != nil {
		return nil
	}
	attrs, err := Attributes(rec)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// IsIdentityAttribute reports whether name is one of the key or scope
// attributes of level, which ApplyAttributes never writes.
func IsIdentityAttribute(level Level, name string) bool {
	return slices.Contains(keyFields(level), name)
}

// ApplyAttributes returns a copy of r with the keys present in attrs written
// onto it. Identity attributes are ignored. Unknown names and values whose
// type does not fit the target field yield a TypeMismatchError and leave r
// unchanged.
func ApplyAttributes(r Record, attrs map[string]any) (Record, error) {
	current, err := Attributes(r)
	if err != nil {
		return nil, err
	}
	identity := keyFields(r.Level())
	writable := make(map[string]any, len(attrs))
	for name, value := range attrs {
		if _, ok := current[name]; !ok {
			return nil, TypeMismatchError{Entity: r.Level().String(), Attribute: name, Err: errUnknownAttribute}
		}
		if slices.Contains(identity, name) {
			continue
		}
		writable[name] = value
	}
	out := r.Clone()
	if len(writable) == 0 {
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      out,
		ErrorUnused: true,
		DecodeHook:  mapstructure.DecodeHookFuncType(exactIntegerHook),
	})
	if err != nil {
		return nil, fmt.Errorf("attributes decoder: %w", err)
	}
	if err := dec.Decode(writable); err != nil {
		return nil, TypeMismatchError{Entity: r.Level().String(), Err: err}
	}
	return out, nil
}

// exactIntegerHook rejects numeric values that would lose information when
// stored in an integer field: fractional floats and out-of-range integers.
func exactIntegerHook(from, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return data, nil
	}
	bits := to.Bits()
	v := reflect.ValueOf(data)
	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		limit := math.Ldexp(1, bits-1)
		if f != math.Trunc(f) || math.IsInf(f, 0) || f < -limit || f >= limit {
			return nil, fmt.Errorf("%w: %v", errLossyInteger, data)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if v.Uint() > uint64(1)<<(bits-1)-1 {
			return nil, fmt.Errorf("%w: %v", errLossyInteger, data)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i := v.Int(); bits < 64 && (i < -(int64(1)<<(bits-1)) || i > int64(1)<<(bits-1)-1) {
			return nil, fmt.Errorf("%w: %v", errLossyInteger, data)
		}
	}
	return data, nil
}
