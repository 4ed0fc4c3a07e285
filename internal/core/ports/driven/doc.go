// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - EmbeddingService: Generates vector embeddings for queries and chunks
//   - VectorStore: Stores embeddings and performs similarity search
//   - LLMService: Generates grounded answers from retrieved context
//   - DocumentStore: Document and chunk persistence
//   - Normaliser: Transforms raw documents into indexed form
//   - NormaliserRegistry: Selects appropriate normaliser
//   - ConfigStore: Application configuration
//   - DocumentSource: Fetches raw documents for ingestion
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Reranker: Cross-encoder reranking. Without it, answers are grounded
//     on retrieval order alone and responses are marked degraded.
//   - EmbeddingCache: Caches query embeddings. Without it, every query
//     pays the embedding round trip.
//   - PromptStore: Custom prompt templates. Without it, built-in defaults apply.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, source, or normaliser package
package driven
