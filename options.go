package jsonmagic

import (
	"reflect"

	"go.uber.org/zap"
)

const (
	// DefaultTypeKey is the reserved key that carries the type tag.
	DefaultTypeKey = "__type__"

	// DefaultMaxDepth bounds nesting on encode and decode.
	DefaultMaxDepth = 1000
)

// Option configures a Processor.
type Option func(*options)

type options struct {
	codec         Codec
	registry      *Registry
	typeKey       string
	maxDepth      int
	maxSize       int
	ignoreUnknown bool
	logger        *zap.Logger
}

func defaultOptions() options {
	return options{
		codec:    JSON(),
		typeKey:  DefaultTypeKey,
		maxDepth: DefaultMaxDepth,
		logger:   zap.NewNop(),
	}
}

// validate rejects option values a Processor cannot run with.
func (o *options) validate() error {
	switch {
	case o.codec == nil:
		return newConfigError(ErrInvalidOption, "", "codec")
	case o.registry == nil:
		return newConfigError(ErrInvalidOption, "", "registry")
	case o.typeKey == "":
		return newConfigError(ErrInvalidOption, "", "type_key")
	case o.maxDepth <= 0:
		return newConfigError(ErrInvalidOption, "", "max_depth")
	case o.maxSize < 0:
		return newConfigError(ErrInvalidOption, "", "max_size")
	case o.logger == nil:
		return newConfigError(ErrInvalidOption, "", "logger")
	}
	return nil
}

// WithCodec sets the wire format. Defaults to JSON().
func WithCodec(c Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithRegistry sets the registry used to tag and reconstruct types.
// New uses a fresh empty registry when none is given; Init uses the default
// registry.
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithTypeKey overrides the reserved type tag key.
func WithTypeKey(key string) Option {
	return func(o *options) { o.typeKey = key }
}

// WithMaxDepth bounds nesting depth on encode and decode.
func WithMaxDepth(depth int) Option {
	return func(o *options) { o.maxDepth = depth }
}

// WithMaxSize rejects payloads larger than n bytes on decode.
// Zero disables the limit.
func WithMaxSize(n int) Option {
	return func(o *options) { o.maxSize = n }
}

// WithIgnoreUnknownFields drops mapping keys that match no field instead of
// failing with ErrUnknownField.
func WithIgnoreUnknownFields() Option {
	return func(o *options) { o.ignoreUnknown = true }
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// TypeOption configures a single registration.
type TypeOption func(*typeConfig)

type typeConfig struct {
	name        string
	factory     func() any
	factoryType reflect.Type
}

// WithName sets the type tag name written on encode and matched on decode.
func WithName(name string) TypeOption {
	return func(c *typeConfig) { c.name = name }
}

// WithFactory supplies the value decode starts from. Keys absent from a
// mapping keep the factory's values, the way unset attributes fall back to
// declared defaults.
func WithFactory[T any](fn func() T) TypeOption {
	return func(c *typeConfig) {
		c.factory = func() any { return fn() }
		c.factoryType = reflect.TypeFor[T]()
	}
}
