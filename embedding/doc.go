// Package embedding turns text into vectors through an ai.Embedder.
//
// BatchEmbedder is the only way the rest of docrag calls the embedding
// provider. It splits input into batches of at most BatchSize texts, runs the
// batches on an ants worker pool, and writes every vector back at its input
// index so the output order never depends on completion order. Each provider
// call is throttled by a token bucket, bounded by a timeout and retried with
// exponential backoff when the failure is transient.
//
// A failed batch does not discard the others. Embed returns the partial
// results together with an *Error naming the indices that have no vector.
package embedding
