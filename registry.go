package jsonmagic

import (
	"context"
	"reflect"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// entry is the codec derived for one registered type.
type entry struct {
	name     string
	typ      reflect.Type // never a pointer
	explicit bool         // T or *T implements Serializable
	custom   bool         // *T implements Deserializable
	factory  func() any
	plans    []fieldPlan
	index    fieldIndex
}

// fields produces the mapping for v, a value of the entry's type.
func (e *entry) fields(v reflect.Value) (Fields, error) {
	if e.explicit {
		return callSerializable(v)
	}
	return derivedFields(v, e.plans), nil
}

// newValue returns a pointer to a fresh value seeded by the factory.
func (e *entry) newValue() reflect.Value {
	ptr := reflect.New(e.typ)
	if e.factory != nil {
		ptr.Elem().Set(reflect.ValueOf(e.factory()))
	}
	return ptr
}

// Registry maps type tags to Go types and their derived codecs.
// Registries are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*entry
	byName map[string]*entry
	logger *zap.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*entry),
		byName: make(map[string]*entry),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the registry's logger.
// Returns the registry for chaining. Safe for concurrent use.
func (r *Registry) SetLogger(l *zap.Logger) *Registry {
	if l == nil {
		l = zap.NewNop()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = l
	return r
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (reflect.Type, bool) {
	e, ok := r.entryNamed(name)
	if !ok {
		return nil, false
	}
	return e.typ, true
}

// NameOf returns the type tag registered for t. Pointer types resolve to
// their element type.
func (r *Registry) NameOf(t reflect.Type) (string, bool) {
	e, ok := r.entryFor(t)
	if !ok {
		return "", false
	}
	return e.name, true
}

// Names returns every registered type tag in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byType)
}

func (r *Registry) log() *zap.Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.logger
}

func (r *Registry) entryFor(t reflect.Type) (*entry, bool) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byType[t]
	return e, ok
}

func (r *Registry) entryNamed(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[name]
	return e, ok
}

// add stores e. Registering the same type under the same name again is a
// no-op; the first registration is kept. Logging and signals run after the
// lock is released.
func (r *Registry) add(e *entry) error {
	logger, err := r.store(e)
	if err != nil || logger == nil {
		return err
	}

	logger.Debug("type registered",
		zap.String("name", e.name),
		zap.Stringer("type", e.typ),
		zap.Bool("explicit", e.explicit),
		zap.Int("fields", len(e.plans)),
	)
	emitTypeRegistered(context.Background(), e.name)
	return nil
}

// store inserts e under the write lock. It returns the logger to report the
// registration with, or nil when e was already registered.
func (r *Registry) store(e *entry) (*zap.Logger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byType[e.typ]; ok {
		if existing.name == e.name {
			return nil, nil
		}
		return nil, newConfigError(ErrTypeConflict, e.typ.String(), existing.name)
	}
	if existing, ok := r.byName[e.name]; ok {
		return nil, newConfigError(ErrTypeConflict, existing.typ.String(), e.name)
	}

	r.byType[e.typ] = e
	r.byName[e.name] = e
	return r.logger, nil
}

// reset drops every registration.
func (r *Registry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType = make(map[reflect.Type]*entry)
	r.byName = make(map[string]*entry)
}

// RegisterIn registers T in r. T or *T must implement Serializable. To be
// decodable T must be a struct or *T must implement Deserializable.
func RegisterIn[T any](r *Registry, opts ...TypeOption) error {
	return register[T](r, false, opts)
}

// AutoJSONIn registers struct type T in r with a mapping derived from its
// declared fields. When T already implements Serializable, its own method
// takes precedence and nothing is derived.
func AutoJSONIn[T any](r *Registry, opts ...TypeOption) error {
	return register[T](r, true, opts)
}

func register[T any](r *Registry, derive bool, opts []TypeOption) error {
	typ := reflect.TypeFor[T]()
	if typ.Kind() == reflect.Pointer || typ.Kind() == reflect.Interface {
		return newConfigError(ErrUnsupportedType, typ.String(), "")
	}

	cfg := typeConfig{name: qualifiedName(typ)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.name == "" {
		return newConfigError(ErrInvalidOption, typ.String(), "name")
	}
	if cfg.factoryType != nil && cfg.factoryType != typ {
		return newConfigError(ErrInvalidOption, typ.String(), "factory")
	}

	isStruct := typ.Kind() == reflect.Struct
	e := &entry{
		name:     cfg.name,
		typ:      typ,
		explicit: implements(typ, serializableType),
		custom:   reflect.PointerTo(typ).Implements(deserializableType),
		factory:  cfg.factory,
	}

	switch {
	case !e.explicit && !derive:
		return newConfigError(ErrUnsupportedType, typ.String(), cfg.name)
	case !e.explicit && !isStruct:
		return newConfigError(ErrUnsupportedType, typ.String(), cfg.name)
	case !e.custom && !isStruct:
		return newConfigError(ErrUnsupportedType, typ.String(), cfg.name)
	}

	if isStruct {
		e.plans = derivePlan[T]()
		e.index = newFieldIndex(e.plans)
	}

	if derive && e.explicit {
		r.log().Debug("explicit JSONFields takes precedence over derived fields",
			zap.Stringer("type", typ),
		)
	}
	return r.add(e)
}

// qualifiedName returns the default type tag for t: its import path and name.
func qualifiedName(t reflect.Type) string {
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
