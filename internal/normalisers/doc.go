// Package normalisers turns raw source bytes into normalised documents.
// Each normaliser handles a set of MIME types and extracts the text
// content plus structural metadata (sections, links, images) that the
// chunker attaches to retrieval units.
//
// Normalisers are registered with the Registry at startup; the registry
// dispatches by MIME type, preferring the highest-priority claimant.
package normalisers
