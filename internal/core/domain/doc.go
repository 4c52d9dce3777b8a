// Package domain defines the core business entities for Harvest.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawRecord: A verbatim payload fetched from a tracker
//   - ChangeRecord: One field transition recovered from a change history
//   - Identity: A normalised contributor (username, name, email)
//   - Cursor: The incremental-sync watermark for a source
//   - Source: A configured tracker source
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
