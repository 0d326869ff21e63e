// Package ingestion turns raw documents into indexed records.
//
// The Pipeline runs every document through the same linear flow:
//   - Split the text into overlapping chunks
//   - Embed every chunk through the batch embedder
//   - Upsert one record per chunk, keyed by source and chunk index
//   - Delete chunks left over from a previous, longer version of the source
//   - Record the source in the document registry
//
// Failures are isolated per document and per chunk. A Report lists what was
// stored and what was not; only invalid chunking overrides fail a whole call.
//
// The Loader reads text files into Documents and extracts document metadata.
package ingestion
