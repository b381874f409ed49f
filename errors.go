package jsonmagic

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrNotSerializable indicates a value has no JSON form: it is not
	// registered, does not implement Serializable and is not natively encodable.
	ErrNotSerializable = errors.New("not serializable")

	// ErrUnsupportedValue indicates a value of an encodable kind that JSON
	// cannot represent, such as NaN or an infinite float.
	ErrUnsupportedValue = errors.New("unsupported value")

	// ErrUnknownType indicates a type tag that names no registered type.
	ErrUnknownType = errors.New("unknown type")

	// ErrInvalidTypeTag indicates a type tag that is not a string.
	ErrInvalidTypeTag = errors.New("invalid type tag")

	// ErrUnknownField indicates a mapping key that matches no field of the target type.
	ErrUnknownField = errors.New("unknown field")

	// ErrReconstruct indicates a mapping could not be assigned to the target type.
	ErrReconstruct = errors.New("reconstruct failed")

	// ErrReservedKey indicates a Fields mapping that uses the type tag key.
	ErrReservedKey = errors.New("reserved key")

	// ErrCycle indicates an object graph that refers back to itself.
	ErrCycle = errors.New("cycle detected")

	// ErrMaxDepth indicates nesting deeper than the configured limit.
	ErrMaxDepth = errors.New("max depth exceeded")

	// ErrTooLarge indicates a payload above the configured size limit.
	ErrTooLarge = errors.New("payload too large")

	// ErrMarshal indicates the codec failed to marshal output data.
	ErrMarshal = errors.New("marshal failed")

	// ErrUnmarshal indicates the codec failed to unmarshal input data.
	ErrUnmarshal = errors.New("unmarshal failed")

	// ErrNotInitialized indicates use of the package-level API before Init.
	ErrNotInitialized = errors.New("not initialized")

	// ErrTypeConflict indicates a registration that clashes with an existing
	// name or type.
	ErrTypeConflict = errors.New("type conflict")

	// ErrUnsupportedType indicates a type that cannot be registered.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidOption indicates an option with an invalid value.
	ErrInvalidOption = errors.New("invalid option")
)

// TypeError represents an encode or decode failure at a location in the value graph.
type TypeError struct {
	Err   error  // Underlying sentinel error (ErrNotSerializable, ErrUnknownField, etc.)
	Type  string // Go type or type tag involved
	Path  string // Location in the tree, e.g. $.c.items[2]
	Cause error  // Original error, if any
}

func (e *TypeError) Error() string {
	msg := e.Err.Error()
	if e.Type != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Type)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s at %s", msg, e.Path)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes both the sentinel and the cause to errors.Is and errors.As.
func (e *TypeError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// ConfigError represents a registration or option error.
type ConfigError struct {
	Err  error  // Underlying sentinel error (ErrTypeConflict, etc.)
	Type string // Go type being registered
	Name string // Type tag name or option name
}

func (e *ConfigError) Error() string {
	if e.Type != "" && e.Name != "" {
		return fmt.Sprintf("%s for type %s (name %q)", e.Err.Error(), e.Type, e.Name)
	}
	if e.Type != "" {
		return fmt.Sprintf("%s for type %s", e.Err.Error(), e.Type)
	}
	if e.Name != "" {
		return fmt.Sprintf("%s (name %q)", e.Err.Error(), e.Name)
	}
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// CodecError represents a marshal/unmarshal error.
type CodecError struct {
	Err   error // Underlying sentinel error (ErrMarshal, ErrUnmarshal)
	Cause error // Original error from the codec
}

func (e *CodecError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Err.Error(), e.Cause)
	}
	return e.Err.Error()
}

func (e *CodecError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// newTypeError creates a TypeError for failures inside the value graph.
func newTypeError(sentinel error, typ, path string, cause error) error {
	return &TypeError{
		Err:   sentinel,
		Type:  typ,
		Path:  path,
		Cause: cause,
	}
}

// newConfigError creates a ConfigError for registration failures.
func newConfigError(sentinel error, typ, name string) error {
	return &ConfigError{
		Err:  sentinel,
		Type: typ,
		Name: name,
	}
}

// newCodecError creates a CodecError for marshal/unmarshal failures.
func newCodecError(sentinel error, cause error) error {
	return &CodecError{
		Err:   sentinel,
		Cause: cause,
	}
}
