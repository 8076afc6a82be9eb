package engine

import (
	"context"
	"maps"

	"github.com/moamenhredeen/restbind/internal/models"
)

type metadataKey struct{}

// Metadata holds the request-metadata values attached to an outgoing request.
type Metadata map[string]any

func withMetadata(ctx context.Context, entries []models.MetadataEntry) context.Context {
	if len(entries) == 0 {
		return ctx
	}
	md := make(Metadata, len(entries))
	maps.Copy(md, MetadataFromContext(ctx))
	for _, e := range entries {
		md[e.Key] = e.Value
	}
	return context.WithValue(ctx, metadataKey{}, md)
}

// MetadataFromContext returns the request metadata stored on ctx. Transports
// read it from the request context.
func MetadataFromContext(ctx context.Context) Metadata {
	md, _ := ctx.Value(metadataKey{}).(Metadata)
	return md
}
