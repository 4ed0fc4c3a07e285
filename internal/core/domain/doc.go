// Package domain defines the core business entities for Docent.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A normalised document with structural metadata
//   - Chunk: An overlapping token window of a document, the unit of retrieval
//   - RawDocument: Opaque bytes from a document source
//   - Source: The citation-facing projection of a retrieved chunk
//   - Answer: The final result of one query pipeline run
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
