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


package storage

import (
	"errors"
	"fmt"

	"github.com/poiesic/docrag/core"
)

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = fmt.Errorf("record %w", core.ErrNotFound)

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// collection's dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrSchemaMismatch indicates a collection was reopened with a different
	// dimension or distance function than it was created with.
	ErrSchemaMismatch = fmt.Errorf("%w: collection schema mismatch", core.ErrInvalidConfiguration)

	// ErrUnknownDistance indicates an unsupported distance function name.
	ErrUnknownDistance = fmt.Errorf("%w: unknown distance function", core.ErrInvalidConfiguration)

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")
)
