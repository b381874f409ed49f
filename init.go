package jsonmagic

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
)

var (
	defaultRegistry  = NewRegistry()
	defaultProcessor atomic.Pointer[Processor]
	initMu           sync.Mutex
)

// Init installs the process-wide default Processor, bound to the default
// registry. It is idempotent and safe for concurrent use: the first
// successful call wins and later calls return nil without applying their
// options. If the options are invalid nothing is installed.
func Init(opts ...Option) error {
	if defaultProcessor.Load() != nil {
		return nil
	}

	initMu.Lock()
	defer initMu.Unlock()

	// Double-check pattern
	if defaultProcessor.Load() != nil {
		return nil
	}

	p, err := New(append([]Option{WithRegistry(defaultRegistry)}, opts...)...)
	if err != nil {
		return err
	}
	defaultProcessor.Store(p)

	p.logger.Debug("jsonmagic initialized")
	emitInitialized(context.Background(), p.ContentType())
	return nil
}

// Initialized reports whether Init has installed the default Processor.
func Initialized() bool {
	return defaultProcessor.Load() != nil
}

// Default returns the Processor installed by Init.
func Default() (*Processor, error) {
	p := defaultProcessor.Load()
	if p == nil {
		return nil, ErrNotInitialized
	}
	return p, nil
}

// DefaultRegistry returns the registry used by Register, AutoJSON and Init.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Reset drops the default Processor and every default registration.
// This is primarily useful for test isolation.
func Reset() {
	initMu.Lock()
	defer initMu.Unlock()
	defaultProcessor.Store(nil)
	defaultRegistry.reset()
}

// Register registers T in the default registry. See RegisterIn.
func Register[T any](opts ...TypeOption) error {
	return RegisterIn[T](defaultRegistry, opts...)
}

// AutoJSON registers struct type T in the default registry with a mapping
// derived from its declared fields. See AutoJSONIn.
func AutoJSON[T any](opts ...TypeOption) error {
	return AutoJSONIn[T](defaultRegistry, opts...)
}

// MustAutoJSON is like AutoJSON but panics on error.
// Handy for package-level registration:
//
//	var _ = jsonmagic.MustAutoJSON[User]()
func MustAutoJSON[T any](opts ...TypeOption) struct{} {
	if err := AutoJSON[T](opts...); err != nil {
		panic(err)
	}
	return struct{}{}
}

// Marshal encodes v with the default Processor.
func Marshal(v any) ([]byte, error) {
	p, err := Default()
	if err != nil {
		return nil, err
	}
	return p.Marshal(v)
}

// Unmarshal decodes data with the default Processor.
func Unmarshal(data []byte) (any, error) {
	p, err := Default()
	if err != nil {
		return nil, err
	}
	return p.Unmarshal(data)
}

// Dump writes the encoding of v to w with the default Processor.
func Dump(w io.Writer, v any) error {
	p, err := Default()
	if err != nil {
		return err
	}
	return p.Dump(w, v)
}

// Load decodes r with the default Processor.
func Load(r io.Reader) (any, error) {
	p, err := Default()
	if err != nil {
		return nil, err
	}
	return p.Load(r)
}
