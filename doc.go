// Package docrag ingests financial documents into an embedded vector store
// and answers questions about them.
//
// Open builds a Service from a config.Config: the badger-backed collection,
// the embedding and language model providers, the ingestion pipeline and the
// query service. Reembed rebuilds a collection after an embedding model change.
package docrag
