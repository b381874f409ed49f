package jsonmagic

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-json"
)

// decodeState walks a parsed tree bottom-up and reconstructs tagged objects.
type decodeState struct {
	registry      *Registry
	typeKey       string
	maxDepth      int
	ignoreUnknown bool
	path          []string
	objects       int
}

func (d *decodeState) where() string {
	return "$" + strings.Join(d.path, "")
}

func (d *decodeState) decode(node any, depth int) (any, error) {
	if depth > d.maxDepth {
		return nil, newTypeError(ErrMaxDepth, "", d.where(), nil)
	}

	switch n := node.(type) {
	case map[string]any:
		for _, k := range sortedKeys(n) {
			d.path = append(d.path, "."+k)
			val, err := d.decode(n[k], depth+1)
			d.path = d.path[:len(d.path)-1]
			if err != nil {
				return nil, err
			}
			n[k] = val
		}
		return d.reconstruct(n)
	case map[any]any:
		m := make(map[string]any, len(n))
		for k, v := range n {
			m[fmt.Sprint(k)] = v
		}
		return d.decode(m, depth)
	case []any:
		for i := range n {
			d.path = append(d.path, "["+strconv.Itoa(i)+"]")
			val, err := d.decode(n[i], depth+1)
			d.path = d.path[:len(d.path)-1]
			if err != nil {
				return nil, err
			}
			n[i] = val
		}
		return n, nil
	default:
		val, err := normalize(n)
		if err != nil {
			return nil, newTypeError(ErrUnmarshal, "", d.where(), err)
		}
		return val, nil
	}
}

// reconstruct turns a tagged mapping into a value of its registered type.
// Untagged mappings are returned unchanged.
func (d *decodeState) reconstruct(m map[string]any) (any, error) {
	raw, ok := m[d.typeKey]
	if !ok {
		return m, nil
	}
	name, ok := raw.(string)
	if !ok {
		return nil, newTypeError(ErrInvalidTypeTag, fmt.Sprintf("%T", raw), d.where(), nil)
	}
	ent, ok := d.registry.entryNamed(name)
	if !ok {
		return nil, newTypeError(ErrUnknownType, name, d.where(), nil)
	}
	delete(m, d.typeKey)

	ptr := ent.newValue()
	if ent.custom {
		if err := ptr.Interface().(Deserializable).SetJSONFields(Fields(m)); err != nil {
			return nil, newTypeError(ErrReconstruct, name, d.where(), err)
		}
		d.objects++
		return ptr.Elem().Interface(), nil
	}

	if err := d.populate(ent, ptr.Elem(), m); err != nil {
		return nil, err
	}
	d.objects++
	return ptr.Elem().Interface(), nil
}

// populate assigns each mapping key to the field it names, promoted fields
// included. Keys are visited in sorted order so errors are deterministic.
func (d *decodeState) populate(ent *entry, v reflect.Value, m map[string]any) error {
	for _, k := range sortedKeys(m) {
		i, ok := ent.index.lookup(k)
		if !ok {
			if d.ignoreUnknown {
				continue
			}
			return newTypeError(ErrUnknownField, ent.name, d.where()+"."+k, nil)
		}
		plan := ent.plans[i]
		field, err := settableField(v, plan.index)
		if err != nil {
			return newTypeError(ErrReconstruct, ent.name, d.where()+"."+k, fmt.Errorf("%s: %w", plan.name, err))
		}
		if err := assign(field.Addr().Interface(), m[k], !d.ignoreUnknown); err != nil {
			return newTypeError(ErrReconstruct, ent.name, d.where()+"."+k, fmt.Errorf("%s: %w", plan.name, err))
		}
	}
	return nil
}

// assign writes data into target, a pointer, matching mapping keys to json
// tag names and then to field names case-insensitively.
func assign(target any, data any, strict bool) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.ComposeDecodeHookFunc(unmarshalerHook, bytesHook),
		ErrorUnused: strict,
		ZeroFields:  true,
		TagName:     "json",
		Result:      target,
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}

// unmarshalerHook restores values encoded through MarshalJSON or MarshalText.
func unmarshalerHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if data == nil || from.AssignableTo(to) {
		return data, nil
	}

	ptr := reflect.PointerTo(to)
	if ptr.Implements(jsonUnmarshalerType) {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		out := reflect.New(to)
		if err := out.Interface().(json.Unmarshaler).UnmarshalJSON(raw); err != nil {
			return nil, err
		}
		return out.Elem().Interface(), nil
	}

	s, ok := data.(string)
	if ok && ptr.Implements(textUnmarshalerType) {
		out := reflect.New(to)
		if err := out.Interface().(interface{ UnmarshalText([]byte) error }).UnmarshalText([]byte(s)); err != nil {
			return nil, err
		}
		return out.Elem().Interface(), nil
	}
	return data, nil
}

// bytesHook decodes base64 strings into byte slices.
func bytesHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	s, ok := data.(string)
	if !ok || to.Kind() != reflect.Slice || to.Elem().Kind() != reflect.Uint8 {
		return data, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(b).Convert(to).Interface(), nil
}

// number is satisfied by json.Number from any JSON library.
type number interface {
	String() string
	Int64() (int64, error)
	Float64() (float64, error)
}

// normalize maps scalars from every codec onto one set of types: int64 for
// integers (uint64 above the int64 range), float64 for floats.
func normalize(v any) (any, error) {
	switch n := v.(type) {
	case number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			return u, nil
		}
		return n.Float64()
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint:
		return normalizeUint(uint64(n)), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return normalizeUint(n), nil
	case float32:
		return float64(n), nil
	case map[string]any:
		for k, val := range n {
			out, err := normalize(val)
			if err != nil {
				return nil, err
			}
			n[k] = out
		}
		return n, nil
	case map[any]any:
		m := make(map[string]any, len(n))
		for k, val := range n {
			out, err := normalize(val)
			if err != nil {
				return nil, err
			}
			m[fmt.Sprint(k)] = out
		}
		return m, nil
	case []any:
		for i, val := range n {
			out, err := normalize(val)
			if err != nil {
				return nil, err
			}
			n[i] = out
		}
		return n, nil
	default:
		return v, nil
	}
}

func normalizeUint(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return u
}
