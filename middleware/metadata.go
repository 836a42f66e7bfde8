package middleware

import (
	"context"
	"maps"
)

// Metadata is the key-value context attached to an item as it moves
// through a stage, surfaced as structured fields on log lines and
// metrics. The pipeline recipes attach the fop's identity here so every
// logged outcome names the argument it belongs to.
type Metadata map[string]any

// MetadataFromContext returns the Metadata attached by a MetadataProvider
// upstream, or nil if none is present.
func MetadataFromContext(ctx context.Context) Metadata {
	if ctx == nil {
		return nil
	}
	if metadata, ok := ctx.Value(metadataKey).(Metadata); ok {
		return metadata
	}
	return nil
}

// Args flattens the metadata into the alternating key-value slice the
// Logger interface takes.
func (m Metadata) Args() []any {
	args := make([]any, 0, len(m)*2)
	for k, v := range m {
		args = append(args, k, v)
	}
	return args
}

type metadataKeyType struct{}

var metadataKey = metadataKeyType{}

// MetadataProvider derives Metadata from each item and attaches it to the
// context before calling the wrapped transform. Keys from provider are
// merged over any metadata already present.
func MetadataProvider[In, Out any](provider func(in In) Metadata) Middleware[In, Out] {
	return func(next ProcessFunc[In, Out]) ProcessFunc[In, Out] {
		return func(ctx context.Context, in In) ([]Out, error) {
			metadata := MetadataFromContext(ctx)
			if metadata == nil {
				metadata = provider(in)
			} else {
				maps.Copy(metadata, provider(in))
			}
			ctx = context.WithValue(ctx, metadataKey, metadata)
			return next(ctx, in)
		}
	}
}
