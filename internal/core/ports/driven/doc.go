// Package driven defines the interfaces that core calls OUT to
// infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and adapters implement them.
//
// # Required interfaces
//
//   - EmbeddingService: turns text into vectors
//   - VectorStore: owns ID allocation, similarity search and persistence
//   - FileStore / ChunkStore: metadata persistence
//   - RemovalQueue: durable outbox for deferred vector cleanup
//
// # Optional interfaces
//
//   - BlobStore: original-bytes storage. When nil, uploads are kept on
//     the local staging path only.
//   - AnswerService: streaming answer generation. When nil, retrieval
//     still works; the chat surface is disabled.
//
// # Import rules
//
//   - Can import: domain package only
//   - Cannot import: any adapter package
package driven
