// Package core defines the shared language of leapseries.
//
// This package contains:
//   - Dialect kinds and static dialect configuration (DialectConfig)
//   - The error taxonomy shared by every component
//   - Service interfaces (Adapter) and connection settings (AdapterConfig)
//
// The Golden Rule: pkg/core imports ONLY the standard library.
// All other packages depend on core, not the reverse.
package core
