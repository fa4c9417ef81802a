// Package redis implements driven.VectorStore on top of Redis 8's
// RediSearch module (FT.CREATE / FT.SEARCH), using
// github.com/redis/rueidis as the client. It is the primary Vector Store
// backend; sibling package vectorstore/qdrant backs the alternate,
// gRPC-based option.
//
// Chunks are stored as Redis hashes, one per chunk, keyed
// "<prefix><id>". A single RediSearch index carries a VECTOR field for the
// dense embedding plus TAG/NUMERIC fields for every domain.Filters
// predicate, so filtered KNN search is a single FT.SEARCH call rather than
// a scan-then-filter.
package redis
