// Package qdrant implements driven.VectorStore against a Qdrant collection
// over gRPC, using github.com/qdrant/go-client. It is the alternate Vector
// Store backend; sibling package vectorstore/redis backs the primary,
// RediSearch-based option.
//
// Each chunk becomes one Qdrant point: the dense embedding as its vector,
// and every other PolicyChunk field flattened into the point's payload so
// domain.Filters predicates can be pushed down as Qdrant filter conditions
// instead of requiring a post-filter pass.
package qdrant
