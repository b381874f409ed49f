package jsonmagic

import (
	"errors"
	"testing"
	"time"
)

type pointB struct {
	X int    `json:"x"`
	Y string `json:"y"`
}

type recordA struct {
	A int    `json:"a"`
	B string `json:"b"`
	C pointB `json:"c"`
}

func newRecordA() recordA {
	return recordA{A: 1, B: "test", C: pointB{X: 42, Y: "hello"}}
}

// partialC writes only c; d falls back to the factory default on decode.
type partialC struct {
	C int    `json:"c"`
	D string `json:"d"`
}

func (p partialC) JSONFields() (Fields, error) {
	return Fields{"c": p.C}, nil
}

type node struct {
	Name string `json:"name"`
	Next *node  `json:"next"`
}

type event struct {
	Name    string    `json:"name"`
	At      time.Time `json:"at"`
	Payload []byte    `json:"payload"`
	Labels  []string  `json:"labels"`
	Score   float64   `json:"score"`
	Count   uint32    `json:"count"`
	skipped string
	Ignored string `json:"-"`
}

// celsius is not a struct, so it rebuilds itself.
type celsius float64

func (c celsius) JSONFields() (Fields, error) {
	return Fields{"degrees": float64(c)}, nil
}

func (c *celsius) SetJSONFields(fields Fields) error {
	deg, err := As[float64](fields["degrees"])
	if err != nil {
		return err
	}
	*c = celsius(deg)
	return nil
}

var errCannotDescribe = errors.New("cannot describe")

type broken struct{}

func (broken) JSONFields() (Fields, error) {
	return nil, errCannotDescribe
}

type clashing struct{}

func (clashing) JSONFields() (Fields, error) {
	return Fields{DefaultTypeKey: "spoofed"}, nil
}

type unregistered struct {
	V int
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	steps := []struct {
		name string
		fn   func() error
	}{
		{"B", func() error { return AutoJSONIn[pointB](reg, WithName("B")) }},
		{"A", func() error { return AutoJSONIn[recordA](reg, WithName("A"), WithFactory(newRecordA)) }},
		{"C", func() error {
			return RegisterIn[partialC](reg, WithName("C"), WithFactory(func() partialC { return partialC{D: "test"} }))
		}},
		{"Node", func() error { return AutoJSONIn[node](reg, WithName("Node")) }},
		{"Event", func() error { return AutoJSONIn[event](reg, WithName("Event")) }},
		{"Celsius", func() error { return RegisterIn[celsius](reg, WithName("Celsius")) }},
		{"Broken", func() error { return RegisterIn[broken](reg, WithName("Broken")) }},
		{"Clashing", func() error { return RegisterIn[clashing](reg, WithName("Clashing")) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			t.Fatalf("register %s: %v", s.name, err)
		}
	}
	return reg
}

func newTestProcessor(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	proc, err := New(append([]Option{WithRegistry(newTestRegistry(t))}, opts...)...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return proc
}
