// Package services implements the driving port interfaces.
// Services hold the question-answering and ingestion logic and
// orchestrate calls to driven ports: embedding providers, the
// vector store, the document store, the reranker and the LLM.
//
// Services are pure Go with no external dependencies.
package services
