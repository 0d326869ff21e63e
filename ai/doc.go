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


// Package ai provides abstractions for the AI services used by docrag.
//
// This package defines capability interfaces for text embeddings and answer
// synthesis. Ingestion and query code depend on these abstractions rather
// than on a concrete provider.
//
// # Interfaces
//
//   - Embedder: Generates vector embeddings from text, tagged with a Role
//   - Completer: Generates an answer for a prompt
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: OpenAI and OpenAI-compatible APIs
//   - ai/ollama: The native Ollama API
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// The embedding and language model providers are chosen independently by
// Config.EmbeddingProvider and Config.LLMProvider; Compose joins them into a
// single AIProvider. Setting LLMProvider to "none" leaves Completer nil, which
// turns answer synthesis off.
//
// Public constructors (openai.NewEmbedder, ollama.NewCompleter, etc.) return
// INTERFACE types. Mock constructors return CONCRETE types so tests can inject
// behavior and assert on call counts.
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	embedder, err := openai.NewEmbedder(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	completer, err := openai.NewCompleter(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	provider := ai.Compose(embedder, completer)
//	defer provider.Close()
//
//	vectors, err := provider.Embedder().EmbedTexts(ctx, []string{"Hello world"}, ai.RoleDocument)
package ai
