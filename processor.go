package jsonmagic

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"time"

	"go.uber.org/zap"
)

// Processor encodes and decodes tagged values with a fixed configuration.
// Call sites pass a Processor explicitly instead of relying on global state;
// Init installs one as the process-wide default.
//
// Processors are safe for concurrent use. Registrations made on the
// processor's registry after construction are visible immediately.
type Processor struct {
	codec         Codec
	registry      *Registry
	typeKey       string
	maxDepth      int
	maxSize       int
	ignoreUnknown bool
	logger        *zap.Logger
}

// New creates a Processor. Without WithRegistry it uses a new empty registry.
func New(opts ...Option) (*Processor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = NewRegistry()
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	p := &Processor{
		codec:         o.codec,
		registry:      o.registry,
		typeKey:       o.typeKey,
		maxDepth:      o.maxDepth,
		maxSize:       o.maxSize,
		ignoreUnknown: o.ignoreUnknown,
		logger:        o.logger,
	}

	p.logger.Debug("processor created",
		zap.String("content_type", p.codec.ContentType()),
		zap.String("type_key", p.typeKey),
		zap.Int("max_depth", p.maxDepth),
		zap.Int("max_size", p.maxSize),
	)
	return p, nil
}

// ContentType returns the MIME type of the processor's codec.
func (p *Processor) ContentType() string {
	return p.codec.ContentType()
}

// Registry returns the registry the processor tags and reconstructs with.
func (p *Processor) Registry() *Registry {
	return p.registry
}

// Encode converts v into a tree of maps, slices and scalars, tagging every
// serializable value.
func (p *Processor) Encode(v any) (any, error) {
	tree, _, err := p.encode(v)
	return tree, err
}

func (p *Processor) encode(v any) (any, int, error) {
	e := &encodeState{
		registry: p.registry,
		typeKey:  p.typeKey,
		maxDepth: p.maxDepth,
		seen:     make(map[visit]struct{}),
	}
	tree, err := e.encode(reflect.ValueOf(v), 0)
	return tree, e.objects, err
}

// Decode reconstructs tagged objects in a parsed tree. Untagged objects stay
// map[string]any. The tree's maps and slices are reused.
func (p *Processor) Decode(tree any) (any, error) {
	out, _, err := p.decode(tree)
	return out, err
}

func (p *Processor) decode(tree any) (any, int, error) {
	d := &decodeState{
		registry:      p.registry,
		typeKey:       p.typeKey,
		maxDepth:      p.maxDepth,
		ignoreUnknown: p.ignoreUnknown,
	}
	out, err := d.decode(tree, 0)
	return out, d.objects, err
}

// Marshal encodes v with the processor's codec.
func (p *Processor) Marshal(v any) ([]byte, error) {
	start := time.Now()
	var retErr error
	var retData []byte
	var objects int
	defer func() {
		emitMarshalComplete(context.Background(), p.codec.ContentType(),
			len(retData), time.Since(start), objects, retErr)
	}()

	var tree any
	tree, objects, retErr = p.encode(v)
	if retErr != nil {
		return nil, retErr
	}

	data, err := p.codec.Marshal(tree)
	if err != nil {
		retErr = newCodecError(ErrMarshal, err)
		return nil, retErr
	}
	retData = data
	return retData, nil
}

// Unmarshal decodes data and reconstructs every tagged object in it.
func (p *Processor) Unmarshal(data []byte) (any, error) {
	start := time.Now()
	var retErr error
	var objects int
	defer func() {
		emitUnmarshalComplete(context.Background(), p.codec.ContentType(),
			len(data), time.Since(start), objects, retErr)
	}()

	if p.maxSize > 0 && len(data) > p.maxSize {
		retErr = newCodecError(ErrTooLarge, fmt.Errorf("%d > %d", len(data), p.maxSize))
		return nil, retErr
	}

	var tree any
	if err := p.codec.Unmarshal(data, &tree); err != nil {
		retErr = newCodecError(ErrUnmarshal, err)
		return nil, retErr
	}

	var out any
	out, objects, retErr = p.decode(tree)
	if retErr != nil {
		return nil, retErr
	}
	return out, nil
}

// Dump writes the encoding of v to w.
func (p *Processor) Dump(w io.Writer, v any) error {
	data, err := p.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Load reads r to the end and decodes it.
func (p *Processor) Load(r io.Reader) (any, error) {
	if p.maxSize > 0 {
		r = io.LimitReader(r, int64(p.maxSize)+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return p.Unmarshal(data)
}

// UnmarshalAs decodes data with p and converts the result to T.
func UnmarshalAs[T any](p *Processor, data []byte) (T, error) {
	v, err := p.Unmarshal(data)
	if err != nil {
		var zero T
		return zero, err
	}
	return As[T](v)
}

// LoadAs reads r with p and converts the result to T.
func LoadAs[T any](p *Processor, r io.Reader) (T, error) {
	v, err := p.Load(r)
	if err != nil {
		var zero T
		return zero, err
	}
	return As[T](v)
}

// As converts a decoded value to T. A value of type X converts to *X and
// back. Containers such as []any holding T values convert to []T.
func As[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}

	target := reflect.TypeFor[T]()
	rv := reflect.ValueOf(v)
	if target.Kind() == reflect.Pointer && rv.Type() == target.Elem() {
		ptr := reflect.New(target.Elem())
		ptr.Elem().Set(rv)
		return ptr.Interface().(T), nil
	}
	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Type() == target {
		return rv.Elem().Interface().(T), nil
	}

	var out T
	if err := assign(&out, v, true); err != nil {
		return zero, newTypeError(ErrReconstruct, target.String(), "$", err)
	}
	return out, nil
}
