// Package jsonmagic lets Go values round-trip through JSON as typed values.
//
// A type opts in by implementing Serializable, or by being registered with
// AutoJSON, which derives the mapping from the type's declared struct fields.
// Encoding adds a type tag to every serializable object so that decoding can
// reconstruct the original type instead of a plain map.
//
// # Basic Usage
//
//	type B struct {
//	    X int    `json:"x"`
//	    Y string `json:"y"`
//	}
//
//	type A struct {
//	    A int    `json:"a"`
//	    B string `json:"b"`
//	    C B      `json:"c"`
//	}
//
//	jsonmagic.MustAutoJSON[B]()
//	jsonmagic.MustAutoJSON[A]()
//	_ = jsonmagic.Init()
//
//	data, _ := jsonmagic.Marshal(A{A: 1, B: "test", C: B{X: 42, Y: "hello"}})
//	// {"__type__":"example.com/app.A","a":1,"b":"test","c":{"__type__":"example.com/app.B","x":42,"y":"hello"}}
//
//	v, _ := jsonmagic.Unmarshal(data)
//	a := v.(A)
//
// # Type Tags
//
// Tagged objects carry their registered name under a reserved key, "__type__"
// by default. Names default to the import path and type name; use WithName for
// a stable name that survives package moves.
//
// # Processors
//
// Init installs a process-wide default Processor. Call sites that want their
// own configuration build one with New and pass it explicitly:
//
//	proc, _ := jsonmagic.New(
//	    jsonmagic.WithRegistry(reg),
//	    jsonmagic.WithCodec(yaml.New()),
//	)
//
// # Codec Providers
//
// JSON is built in. Other formats carry the same tagged tree:
//
//   - yaml - YAML encoding (application/yaml)
//   - msgpack - MessagePack encoding (application/msgpack)
//   - cbor - CBOR encoding (application/cbor)
package jsonmagic

// Fields is the mapping representation of a serializable value, keyed by
// field name.
type Fields map[string]any

// Serializable is implemented by types that provide their own mapping.
//
// The returned Fields must be enough to rebuild an equivalent value: each key
// is assigned to the matching struct field on decode, and keys that are
// absent keep the value produced by the type's factory.
//
//	func (c C) JSONFields() (jsonmagic.Fields, error) {
//	    return jsonmagic.Fields{"c": c.C}, nil
//	}
type Serializable interface {
	JSONFields() (Fields, error)
}

// Deserializable bypasses field assignment on decode.
// Implement it on the pointer receiver for types that are not structs, or
// whose mapping keys do not line up with their fields.
type Deserializable interface {
	// SetJSONFields populates the receiver from a decoded mapping. Nested
	// tagged objects in fields are already reconstructed. The receiver holds
	// the factory default when called.
	SetJSONFields(fields Fields) error
}
