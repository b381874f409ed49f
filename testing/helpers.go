// Package testing provides fixtures and helpers for jsonmagic tests.
package testing

import (
	"fmt"
	"testing"
	"time"

	"github.com/zoobzio/jsonmagic"
)

// Point is a derived fixture with scalar fields.
type Point struct {
	X int    `json:"x"`
	Y string `json:"y"`
}

// Record nests a Point and carries factory defaults.
type Record struct {
	A int    `json:"a"`
	B string `json:"b"`
	C Point  `json:"c"`
}

// NewRecord returns the Record factory default.
func NewRecord() Record {
	return Record{A: 1, B: "test", C: Point{X: 42, Y: "hello"}}
}

// Partial writes only C. D falls back to its factory default on decode.
type Partial struct {
	C int    `json:"c"`
	D string `json:"d"`
}

// JSONFields implements jsonmagic.Serializable.
func (p Partial) JSONFields() (jsonmagic.Fields, error) {
	return jsonmagic.Fields{"c": p.C}, nil
}

// Money is a non-struct value that rebuilds itself from minor units.
type Money int64

// JSONFields implements jsonmagic.Serializable.
func (m Money) JSONFields() (jsonmagic.Fields, error) {
	return jsonmagic.Fields{"minor": int64(m)}, nil
}

// SetJSONFields implements jsonmagic.Deserializable.
func (m *Money) SetJSONFields(fields jsonmagic.Fields) error {
	minor, err := jsonmagic.As[int64](fields["minor"])
	if err != nil {
		return fmt.Errorf("minor: %w", err)
	}
	*m = Money(minor)
	return nil
}

// LineItem is an order line.
type LineItem struct {
	SKU      string `json:"sku"`
	Quantity uint16 `json:"quantity"`
	Price    Money  `json:"price"`
}

// Order exercises nested slices, maps, pointers and time values.
type Order struct {
	ID       string            `json:"id"`
	Placed   time.Time         `json:"placed"`
	Items    []LineItem        `json:"items"`
	Shipping *Point            `json:"shipping"`
	Meta     map[string]string `json:"meta"`
	Notes    []byte            `json:"notes"`
	Weight   float64           `json:"weight"`
}

// SampleOrder returns a fully populated Order.
func SampleOrder() Order {
	return Order{
		ID:     "ord-1",
		Placed: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Items: []LineItem{
			{SKU: "A-1", Quantity: 2, Price: 1999},
			{SKU: "B-2", Quantity: 1, Price: 500},
		},
		Shipping: &Point{X: 7, Y: "dock"},
		Meta:     map[string]string{"channel": "web"},
		Notes:    []byte("leave at door"),
		Weight:   2.75,
	}
}

// Register adds every fixture to r under short stable names.
func Register(r *jsonmagic.Registry) error {
	steps := []func() error{
		func() error { return jsonmagic.AutoJSONIn[Point](r, jsonmagic.WithName("Point")) },
		func() error {
			return jsonmagic.AutoJSONIn[Record](r, jsonmagic.WithName("Record"), jsonmagic.WithFactory(NewRecord))
		},
		func() error {
			return jsonmagic.RegisterIn[Partial](r, jsonmagic.WithName("Partial"),
				jsonmagic.WithFactory(func() Partial { return Partial{D: "test"} }))
		},
		func() error { return jsonmagic.RegisterIn[Money](r, jsonmagic.WithName("Money")) },
		func() error { return jsonmagic.AutoJSONIn[LineItem](r, jsonmagic.WithName("LineItem")) },
		func() error { return jsonmagic.AutoJSONIn[Order](r, jsonmagic.WithName("Order")) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// NewProcessor returns a processor over a fresh registry holding every fixture.
func NewProcessor(tb testing.TB, opts ...jsonmagic.Option) *jsonmagic.Processor {
	tb.Helper()
	reg := jsonmagic.NewRegistry()
	if err := Register(reg); err != nil {
		tb.Fatalf("Register() error: %v", err)
	}
	proc, err := jsonmagic.New(append([]jsonmagic.Option{jsonmagic.WithRegistry(reg)}, opts...)...)
	if err != nil {
		tb.Fatalf("New() error: %v", err)
	}
	return proc
}
