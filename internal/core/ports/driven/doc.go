// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - StructuredParser: converts a verified PDF into Markdown plus extracted tables
//   - PostProcessor / PostProcessorPipeline: chunking and metadata enrichment
//   - EmbeddingService: generates dense vectors for chunk content
//   - VectorStore: persists and queries dense embeddings under metadata filters
//   - SparseIndex: BM25 keyword retrieval
//   - ProductStore, DocumentStore, RateTableStore: relational metadata
//   - ConfigStore: application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
