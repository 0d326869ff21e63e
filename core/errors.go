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


package core

import "errors"

// Error taxonomy shared by every package. Callers classify failures with errors.Is.
var (
	// ErrInvalidConfiguration indicates bad chunk/overlap sizes or missing required settings.
	// Fatal at startup.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmbeddingProvider indicates the embedding provider failed after retries,
	// rejected the credentials, or ran out of quota.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrStoreWrite indicates the vector store could not persist records.
	ErrStoreWrite = errors.New("store write error")

	// ErrStoreRead indicates the vector store could not answer a read.
	ErrStoreRead = errors.New("store read error")

	// ErrLLMSynthesis indicates answer synthesis failed. Queries degrade instead of failing.
	ErrLLMSynthesis = errors.New("llm synthesis error")

	// ErrInvalidInput indicates a malformed request.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates the requested record or document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmptyContent indicates a document has no text.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptySource indicates a document has no source identifier.
	ErrEmptySource = errors.New("source cannot be empty")
)

// Error kinds reported to API clients.
const (
	KindInvalidConfiguration = "invalid_configuration"
	KindEmbeddingProvider    = "embedding_provider_error"
	KindStoreWrite           = "store_write_error"
	KindStoreRead            = "store_read_error"
	KindLLMSynthesis         = "llm_synthesis_error"
	KindInvalidInput         = "invalid_input"
	KindNotFound             = "not_found"
	KindInternal             = "internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidConfiguration, KindInvalidConfiguration},
	{ErrInvalidInput, KindInvalidInput},
	{ErrNotFound, KindNotFound},
	{ErrEmbeddingProvider, KindEmbeddingProvider},
	{ErrLLMSynthesis, KindLLMSynthesis},
	{ErrStoreWrite, KindStoreWrite},
	{ErrStoreRead, KindStoreRead},
}

// KindOf maps an error onto the taxonomy kind used in structured responses.
// Unclassified errors report KindInternal.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
