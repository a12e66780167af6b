package graph

import (
	"go.opentelemetry.io/otel/trace"
)

// Resolver is the dependency root for the query and mutation resolvers in schema.resolvers.go.
// Object types are read straight from the models; fields.go holds the few that need a lookup.
type Resolver struct {
	Tracer trace.Tracer
}
