package jsonmagic

import (
	"encoding"
	"reflect"

	"github.com/goccy/go-json"
)

var (
	serializableType    = reflect.TypeFor[Serializable]()
	deserializableType  = reflect.TypeFor[Deserializable]()
	jsonMarshalerType   = reflect.TypeFor[json.Marshaler]()
	jsonUnmarshalerType = reflect.TypeFor[json.Unmarshaler]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// IsSerializable reports whether v implements Serializable on its value or
// pointer receiver. Registered types without the method are still encodable
// by a Processor whose registry knows them.
func IsSerializable(v any) bool {
	if v == nil {
		return false
	}
	return implements(reflect.TypeOf(v), serializableType)
}

// implements reports whether t or *t implements iface.
func implements(t reflect.Type, iface reflect.Type) bool {
	if t.Implements(iface) {
		return true
	}
	return t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(iface)
}

// addressable returns v itself when it can call pointer methods, or an
// addressable copy otherwise.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	cp := reflect.New(v.Type()).Elem()
	cp.Set(v)
	return cp
}

// callSerializable invokes JSONFields on v, going through a pointer when the
// method has a pointer receiver.
func callSerializable(v reflect.Value) (Fields, error) {
	if s, ok := v.Interface().(Serializable); ok {
		return s.JSONFields()
	}
	if v.Kind() != reflect.Pointer {
		if s, ok := addressable(v).Addr().Interface().(Serializable); ok {
			return s.JSONFields()
		}
	}
	return nil, ErrNotSerializable
}
