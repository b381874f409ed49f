package jsonmagic

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for jsonmagic events.
var (
	SignalTypeRegistered    = capitan.NewSignal("jsonmagic.type.registered", "Type added to a registry")
	SignalInitialized       = capitan.NewSignal("jsonmagic.initialized", "Default processor installed")
	SignalMarshalComplete   = capitan.NewSignal("jsonmagic.marshal.complete", "Marshal operation finished")
	SignalUnmarshalComplete = capitan.NewSignal("jsonmagic.unmarshal.complete", "Unmarshal operation finished")
)

// Keys for typed event data.
var (
	KeyContentType = capitan.NewStringKey("content_type")
	KeyTypeName    = capitan.NewStringKey("type_name")
	KeySize        = capitan.NewIntKey("size")
	KeyDuration    = capitan.NewDurationKey("duration")
	KeyObjectCount = capitan.NewIntKey("object_count")
	KeyError       = capitan.NewErrorKey("error")
)

// emitTypeRegistered emits an event when a type is registered.
func emitTypeRegistered(ctx context.Context, typeName string) {
	capitan.Emit(ctx, SignalTypeRegistered,
		KeyTypeName.Field(typeName),
	)
}

// emitInitialized emits an event when Init installs the default processor.
func emitInitialized(ctx context.Context, contentType string) {
	capitan.Emit(ctx, SignalInitialized,
		KeyContentType.Field(contentType),
	)
}

// emitMarshalComplete emits an event when marshal finishes.
func emitMarshalComplete(ctx context.Context, contentType string, size int, duration time.Duration, objects int, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeySize.Field(size),
		KeyDuration.Field(duration),
		KeyObjectCount.Field(objects),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalMarshalComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalMarshalComplete, fields...)
	}
}

// emitUnmarshalComplete emits an event when unmarshal finishes.
func emitUnmarshalComplete(ctx context.Context, contentType string, size int, duration time.Duration, objects int, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeySize.Field(size),
		KeyDuration.Field(duration),
		KeyObjectCount.Field(objects),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalUnmarshalComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalUnmarshalComplete, fields...)
	}
}
