package jsonmagic

import (
	"errors"
	"math"
	"os"
	"reflect"
	"testing"
	"time"
)

func TestMarshal_NestedTagged(t *testing.T) {
	proc := newTestProcessor(t)

	data, err := proc.Marshal(recordA{A: 1, B: "test", C: pointB{X: 42, Y: "hello"}})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	want := `{"__type__":"A","a":1,"b":"test","c":{"__type__":"B","x":42,"y":"hello"}}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestMarshal_ExplicitFields(t *testing.T) {
	proc := newTestProcessor(t)

	data, err := proc.Marshal(partialC{C: 5, D: "dropped"})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	want := `{"__type__":"C","c":5}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestMarshal_Natives(t *testing.T) {
	proc := newTestProcessor(t)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, `null`},
		{"bool", true, `true`},
		{"int", -7, `-7`},
		{"uint64 max", uint64(math.MaxUint64), `18446744073709551615`},
		{"float", 1.5, `1.5`},
		{"string", "hi", `"hi"`},
		{"bytes", []byte("hi"), `"aGk="`},
		{"nil slice", []int(nil), `null`},
		{"array", [2]int{1, 2}, `[1,2]`},
		{"int keys", map[int]string{2: "b", 1: "a"}, `{"1":"a","2":"b"}`},
		{"nil pointer", (*pointB)(nil), `null`},
		{"time", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), `"2024-01-02T03:04:05Z"`},
		{"mixed list", []any{1, "two", pointB{X: 3}}, `[1,"two",{"__type__":"B","x":3,"y":""}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := proc.Marshal(tt.in)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestMarshal_NotSerializable(t *testing.T) {
	proc := newTestProcessor(t)

	f, err := os.CreateTemp(t.TempDir(), "jsonmagic")
	if err != nil {
		t.Fatalf("CreateTemp() error: %v", err)
	}
	defer f.Close()

	tests := []struct {
		name string
		in   any
		want error
	}{
		{"channel", make(chan int), ErrNotSerializable},
		{"func", func() {}, ErrNotSerializable},
		{"open file", f, ErrNotSerializable},
		{"unregistered struct", unregistered{V: 1}, ErrNotSerializable},
		{"complex", complex(1, 2), ErrNotSerializable},
		{"channel in map", map[string]any{"c": make(chan int)}, ErrNotSerializable},
		{"struct map key", map[pointB]int{{X: 1}: 1}, ErrNotSerializable},
		{"nan", math.NaN(), ErrUnsupportedValue},
		{"inf in list", []float64{1, math.Inf(1)}, ErrUnsupportedValue},
		{"failing fields", broken{}, ErrMarshal},
		{"reserved key", clashing{}, ErrReservedKey},
		{"reserved key in map", map[string]any{"__type__": "B", "x": 1}, ErrReservedKey},
		{"reserved key in nested map", []any{map[string]int{"__type__": 1}}, ErrReservedKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := proc.Marshal(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("Marshal() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMarshal_ErrorPath(t *testing.T) {
	proc := newTestProcessor(t)

	_, err := proc.Marshal(map[string]any{"items": []any{1, make(chan int)}})

	var typeErr *TypeError
	if !errors.As(err, &typeErr) {
		t.Fatalf("Marshal() error = %T, want *TypeError", err)
	}
	if typeErr.Path != "$.items[1]" {
		t.Errorf("Path = %q, want %q", typeErr.Path, "$.items[1]")
	}
	if typeErr.Type != "chan int" {
		t.Errorf("Type = %q, want %q", typeErr.Type, "chan int")
	}
}

func TestMarshal_Cycle(t *testing.T) {
	proc := newTestProcessor(t)

	n := &node{Name: "loop"}
	n.Next = n

	if _, err := proc.Marshal(n); !errors.Is(err, ErrCycle) {
		t.Errorf("Marshal(self-loop) error = %v, want ErrCycle", err)
	}

	m := map[string]any{}
	m["self"] = m
	if _, err := proc.Marshal(m); !errors.Is(err, ErrCycle) {
		t.Errorf("Marshal(self map) error = %v, want ErrCycle", err)
	}
}

func TestMarshal_SharedReferenceIsNotACycle(t *testing.T) {
	proc := newTestProcessor(t)

	shared := &pointB{X: 1, Y: "s"}
	data, err := proc.Marshal([]any{shared, shared})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	want := `[{"__type__":"B","x":1,"y":"s"},{"__type__":"B","x":1,"y":"s"}]`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestMarshal_MaxDepth(t *testing.T) {
	proc := newTestProcessor(t, WithMaxDepth(3))

	var v any = "leaf"
	for i := 0; i < 5; i++ {
		v = []any{v}
	}

	if _, err := proc.Marshal(v); !errors.Is(err, ErrMaxDepth) {
		t.Errorf("Marshal() error = %v, want ErrMaxDepth", err)
	}

	if _, err := proc.Marshal([]any{[]any{"ok"}}); err != nil {
		t.Errorf("Marshal(shallow) error: %v", err)
	}
}

func TestEncode_Tree(t *testing.T) {
	proc := newTestProcessor(t, WithTypeKey("$t"))

	tree, err := proc.Encode(&node{Name: "a", Next: &node{Name: "b"}})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	want := map[string]any{
		"$t":   "Node",
		"name": "a",
		"next": map[string]any{"$t": "Node", "name": "b", "next": nil},
	}
	if !reflect.DeepEqual(tree, want) {
		t.Errorf("Encode() = %#v, want %#v", tree, want)
	}
}

func TestEncode_UnregisteredSerializable(t *testing.T) {
	proc, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	tree, err := proc.Encode(partialC{C: 1})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	m, ok := tree.(map[string]any)
	if !ok {
		t.Fatalf("Encode() = %T, want map", tree)
	}
	if m[DefaultTypeKey] != "github.com/zoobzio/jsonmagic.partialC" {
		t.Errorf("type tag = %v, want qualified name", m[DefaultTypeKey])
	}
}

func TestEncode_PointerReceiver(t *testing.T) {
	proc, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	tree, err := proc.Encode(ptrFields{N: 2})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if m := tree.(map[string]any); m["n"] != int64(2) {
		t.Errorf("n = %#v, want int64(2)", m["n"])
	}
}

type ptrFields struct{ N int }

func (p *ptrFields) JSONFields() (Fields, error) { return Fields{"n": p.N}, nil }

type opaque struct {
	n int
}

func TestMarshal_NoExportedFields(t *testing.T) {
	reg := NewRegistry()
	if err := AutoJSONIn[opaque](reg, WithName("Opaque")); err != nil {
		t.Fatalf("AutoJSONIn() error: %v", err)
	}
	proc, err := New(WithRegistry(reg))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	data, err := proc.Marshal(opaque{n: 3})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != `{"__type__":"Opaque"}` {
		t.Errorf("Marshal() = %s, want %s", data, `{"__type__":"Opaque"}`)
	}

	v, err := proc.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if v != (opaque{}) {
		t.Errorf("Unmarshal() = %#v, want opaque{}", v)
	}
}

func TestMarshal_ReservedMapKeyPath(t *testing.T) {
	proc := newTestProcessor(t)

	_, err := proc.Marshal(map[string]any{"inner": map[string]any{"__type__": "B", "x": 1}})
	var typeErr *TypeError
	if !errors.As(err, &typeErr) {
		t.Fatalf("Marshal() error = %v, want *TypeError", err)
	}
	if !errors.Is(err, ErrReservedKey) {
		t.Errorf("Marshal() error = %v, want ErrReservedKey", err)
	}
	if typeErr.Path != "$.inner" {
		t.Errorf("Path = %q, want %q", typeErr.Path, "$.inner")
	}
}

func TestMarshal_MapKeyFreeUnderOtherTypeKey(t *testing.T) {
	proc := newTestProcessor(t, WithTypeKey("$t"))

	in := map[string]any{"__type__": "B", "x": int64(1)}
	data, err := proc.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	out, err := proc.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Errorf("round trip = %#v, want %#v", out, in)
	}
}

func TestMarshal_FieldsErrorKeepsCause(t *testing.T) {
	proc := newTestProcessor(t)

	_, err := proc.Marshal(broken{})
	if !errors.Is(err, ErrMarshal) {
		t.Errorf("Marshal() error = %v, want ErrMarshal", err)
	}
	if !errors.Is(err, errCannotDescribe) {
		t.Errorf("Marshal() error = %v, want errCannotDescribe", err)
	}
}
