// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the storage abstraction layer for docrag.
//
// This package defines the interfaces that decouple the vector store
// implementation from ingestion and query logic:
//
//   - VectorStore: Upsert, nearest-neighbor Search, Get, Delete, ForEach, Stats, Reset
//   - DocumentRegistry: One entry per ingested source
//   - Collection: A named VectorStore plus its DocumentRegistry and Schema
//
// It also holds the pieces every backend shares: the Distance functions
// (cosine, l2, ip; lower is closer), metadata Filter matching, and the mus-go
// serializers used to persist records, registry entries and schemas.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	collection, err := badger.OpenCollection(backend, "documents", 768, storage.Cosine)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	matches, err := collection.Search(ctx, queryVector, 5, nil)
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines.
//
// # Context Support
//
// All methods accept context.Context for cancellation. Pass
// context.Background() for operations without specific timeout requirements.
package storage
