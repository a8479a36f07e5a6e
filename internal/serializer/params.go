package serializer

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/netkit/internal/neterr"
)

const opParams = "serializer.params"

type pair struct {
	key   string
	value string
	bare  bool
}

// QueryString encodes a parameter graph as a URL query string.
//
// The top level must be a map with string keys (or url.Values). Nested
// maps become "key[sub]", slices become "key[]", nil values encode the
// bare key. Keys are sorted at every level. Functions, channels, complex
// numbers and non-Stringer structs cannot be encoded and yield a
// serialization error.
func QueryString(params any) (string, error) {
	if params == nil {
		return "", nil
	}
	if values, ok := params.(url.Values); ok {
		return values.Encode(), nil
	}

	v := indirect(reflect.ValueOf(params))
	if !v.IsValid() {
		return "", nil
	}
	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return "", neterr.Newf(neterr.KindSerialization, opParams,
			"parameters must be a map with string keys, got %T", params)
	}

	var pairs []pair
	if err := flatten("", v, &pairs); err != nil {
		return "", err
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.bare {
			parts = append(parts, url.QueryEscape(p.key))
			continue
		}
		parts = append(parts, url.QueryEscape(p.key)+"="+url.QueryEscape(p.value))
	}
	return strings.Join(parts, "&"), nil
}

func flatten(prefix string, v reflect.Value, out *[]pair) error {
	v = indirect(v)
	if !v.IsValid() {
		*out = append(*out, pair{key: prefix, bare: true})
		return nil
	}

	if s, ok := stringer(v); ok {
		*out = append(*out, pair{key: prefix, value: s})
		return nil
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return neterr.Newf(neterr.KindSerialization, opParams,
				"parameter %q: map keys must be strings", prefix)
		}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, k := range keys {
			name := k.String()
			if prefix != "" {
				name = prefix + "[" + name + "]"
			}
			if err := flatten(name, v.MapIndex(k), out); err != nil {
				return err
			}
		}
		return nil

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			*out = append(*out, pair{key: prefix, value: string(v.Bytes())})
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := flatten(prefix+"[]", v.Index(i), out); err != nil {
				return err
			}
		}
		return nil
	}

	s, err := scalar(prefix, v)
	if err != nil {
		return err
	}
	*out = append(*out, pair{key: prefix, value: s})
	return nil
}

func scalar(key string, v reflect.Value) (string, error) {
	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'f', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), nil
	}
	return "", neterr.Newf(neterr.KindSerialization, opParams,
		"parameter %q: cannot encode value of type %s", key, v.Type())
}

func stringer(v reflect.Value) (string, bool) {
	if !v.CanInterface() {
		return "", false
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String(), true
	}
	return "", false
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
