// Package postgres provides a PostgreSQL adapter for leapseries.
//
// This file registers the PostgreSQL adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/leapseries/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/leapseries/pkg/adapter"
)

func init() {
	adapter.Register("postgres", "postgres", func(l *slog.Logger) adapter.Adapter { return New(l) })
}
