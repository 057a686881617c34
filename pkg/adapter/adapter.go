// Package adapter runs rendered fragments against a live database.
//
// This package contains the contract database adapters implement.
// Concrete adapters are in pkg/adapters/ subdirectories and register
// themselves from init().
package adapter

import (
	"context"

	"github.com/leapstack-labs/leapseries/pkg/core"
	"github.com/leapstack-labs/leapseries/pkg/dialect"
)

type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// QueryColumn returns the first column of every row as text.
	QueryColumn(ctx context.Context, sql string) ([]Value, error)

	// Dialect returns the dialect fragments must be rendered in for this
	// adapter.
	Dialect() *dialect.Dialect
}
