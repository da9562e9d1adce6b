// Package graph exposes the client and user services as a GraphQL schema.
package graph

import (
	"context"
	_ "embed"

	"github.com/graph-gophers/graphql-go"
	"github.com/rs/zerolog/log"
)

//go:embed schema.graphql
var schemaSDL string

const maxQueryDepth = 12

// NewSchema parses the embedded SDL and binds it to r.
func NewSchema(r *Resolver) (*graphql.Schema, error) {
	return graphql.ParseSchema(schemaSDL, r,
		graphql.MaxDepth(maxQueryDepth),
		graphql.Logger(panicLogger{}),
	)
}

// panicLogger routes resolver panics to zerolog.
type panicLogger struct{}

func (panicLogger) LogPanic(_ context.Context, value interface{}) {
	log.Error().Interface("panic", value).Msg("GraphQL resolver panicked")
}
