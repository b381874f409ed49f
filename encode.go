package jsonmagic

import (
	"encoding"
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// visit identifies a reference on the current encode path.
type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

// encodeState converts a value graph into a tree of JSON-representable values.
type encodeState struct {
	registry *Registry
	typeKey  string
	maxDepth int
	seen     map[visit]struct{}
	path     []string
	objects  int
}

func (e *encodeState) where() string {
	return "$" + strings.Join(e.path, "")
}

func (e *encodeState) fail(sentinel error, t reflect.Type, cause error) error {
	name := ""
	if t != nil {
		name = t.String()
	}
	return newTypeError(sentinel, name, e.where(), cause)
}

// enter marks a reference as being on the path. Revisiting it before leave
// means the graph is cyclic.
func (e *encodeState) enter(v reflect.Value) (func(), error) {
	key := visit{ptr: v.Pointer(), typ: v.Type()}
	if v.Kind() == reflect.Slice {
		key.len = v.Len()
	}
	if _, ok := e.seen[key]; ok {
		return nil, e.fail(ErrCycle, v.Type(), nil)
	}
	e.seen[key] = struct{}{}
	return func() { delete(e.seen, key) }, nil
}

func (e *encodeState) encode(v reflect.Value, depth int) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if depth > e.maxDepth {
		return nil, e.fail(ErrMaxDepth, v.Type(), nil)
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return e.encode(v.Elem(), depth)
	case reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		leave, err := e.enter(v)
		if err != nil {
			return nil, err
		}
		defer leave()
	}

	t := v.Type()
	if ent, ok := e.registry.entryFor(t); ok {
		return e.encodeObject(ent.name, reflect.Indirect(v), ent.fields, depth)
	}
	if implements(t, serializableType) {
		base := t
		if base.Kind() == reflect.Pointer {
			base = base.Elem()
		}
		return e.encodeObject(qualifiedName(base), reflect.Indirect(v), callSerializable, depth)
	}
	if implements(t, jsonMarshalerType) {
		return e.encodeMarshaler(v)
	}
	if implements(t, textMarshalerType) {
		return e.encodeText(v)
	}

	switch v.Kind() {
	case reflect.Pointer:
		return e.encode(v.Elem(), depth)
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u <= math.MaxInt64 {
			return int64(u), nil
		}
		return u, nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, e.fail(ErrUnsupportedValue, t, fmt.Errorf("%v", f))
		}
		if v.Kind() == reflect.Float32 {
			return float32(f), nil
		}
		return f, nil
	case reflect.String:
		return v.String(), nil
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if t.Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(v.Bytes()), nil
		}
		leave, err := e.enter(v)
		if err != nil {
			return nil, err
		}
		defer leave()
		return e.encodeArray(v, depth)
	case reflect.Array:
		return e.encodeArray(v, depth)
	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		leave, err := e.enter(v)
		if err != nil {
			return nil, err
		}
		defer leave()
		return e.encodeMap(v, depth)
	default:
		// Plain structs, channels, funcs and complex numbers have no
		// tagged or native form.
		return nil, e.fail(ErrNotSerializable, t, nil)
	}
}

// encodeObject builds the tagged mapping for a serializable value.
func (e *encodeState) encodeObject(name string, v reflect.Value, fieldsOf func(reflect.Value) (Fields, error), depth int) (any, error) {
	fields, err := fieldsOf(v)
	if err != nil {
		return nil, newTypeError(ErrMarshal, name, e.where(), err)
	}
	if _, ok := fields[e.typeKey]; ok {
		return nil, newTypeError(ErrReservedKey, name, e.where(), fmt.Errorf("key %q", e.typeKey))
	}

	out := make(map[string]any, len(fields)+1)
	out[e.typeKey] = name
	for _, k := range sortedKeys(map[string]any(fields)) {
		e.path = append(e.path, "."+k)
		val, err := e.encode(reflect.ValueOf(fields[k]), depth+1)
		e.path = e.path[:len(e.path)-1]
		if err != nil {
			return nil, err
		}
		out[k] = val
	}
	e.objects++
	return out, nil
}

func (e *encodeState) encodeArray(v reflect.Value, depth int) (any, error) {
	out := make([]any, v.Len())
	for i := range out {
		e.path = append(e.path, "["+strconv.Itoa(i)+"]")
		val, err := e.encode(v.Index(i), depth+1)
		e.path = e.path[:len(e.path)-1]
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

func (e *encodeState) encodeMap(v reflect.Value, depth int) (any, error) {
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k, err := e.mapKey(iter.Key())
		if err != nil {
			return nil, err
		}
		if k == e.typeKey {
			return nil, e.fail(ErrReservedKey, v.Type(), fmt.Errorf("key %q", e.typeKey))
		}
		e.path = append(e.path, "."+k)
		val, err := e.encode(iter.Value(), depth+1)
		e.path = e.path[:len(e.path)-1]
		if err != nil {
			return nil, err
		}
		out[k] = val
	}
	return out, nil
}

// mapKey renders a map key the way encoding/json does: strings as-is,
// TextMarshaler keys by their text, integers in decimal.
func (e *encodeState) mapKey(k reflect.Value) (string, error) {
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
		if k.Kind() == reflect.Pointer && k.IsNil() {
			return "", nil
		}
		b, err := tm.MarshalText()
		if err != nil {
			return "", e.fail(ErrMarshal, k.Type(), err)
		}
		return string(b), nil
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", e.fail(ErrNotSerializable, k.Type(), fmt.Errorf("map key"))
}

// encodeMarshaler runs MarshalJSON and parses the output back into a tree so
// that every codec sees plain values.
func (e *encodeState) encodeMarshaler(v reflect.Value) (any, error) {
	m, ok := v.Interface().(json.Marshaler)
	if !ok {
		m = addressable(v).Addr().Interface().(json.Marshaler)
	}
	raw, err := m.MarshalJSON()
	if err != nil {
		return nil, e.fail(ErrMarshal, v.Type(), err)
	}
	var tree any
	if err := JSON().Unmarshal(raw, &tree); err != nil {
		return nil, e.fail(ErrMarshal, v.Type(), err)
	}
	out, err := normalize(tree)
	if err != nil {
		return nil, e.fail(ErrMarshal, v.Type(), err)
	}
	return out, nil
}

func (e *encodeState) encodeText(v reflect.Value) (any, error) {
	m, ok := v.Interface().(encoding.TextMarshaler)
	if !ok {
		m = addressable(v).Addr().Interface().(encoding.TextMarshaler)
	}
	b, err := m.MarshalText()
	if err != nil {
		return nil, e.fail(ErrMarshal, v.Type(), err)
	}
	return string(b), nil
}
