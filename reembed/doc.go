// Package reembed recomputes the vectors of every record in a collection,
// typically after the embedding model changed.
//
// Records are read in batches from a source collection, embedded again with
// the configured embedder and written to a target collection. Source and
// target may be the same collection when the vector dimension is unchanged.
// Registry entries are copied along with the records so the target can be
// re-ingested incrementally afterwards.
package reembed
