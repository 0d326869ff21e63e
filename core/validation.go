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

import (
	"fmt"
	"strings"
)

// ValidateDocument validates a Document before ingestion.
//
// Validation rules:
//   - Source must not be blank
//   - Text must not be blank
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidInput)
	}

	if strings.TrimSpace(doc.Source) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptySource)
	}

	if strings.TrimSpace(doc.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyContent)
	}

	return nil
}

// ValidateRecord validates a Record against the dimension of its collection.
//
// NOT validated:
//   - Text (records may carry empty text for vector-only entries)
//   - Metadata
func ValidateRecord(record *Record, dimension int) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidInput)
	}

	if record.Id == "" {
		return fmt.Errorf("%w: record id is empty", ErrInvalidInput)
	}

	if len(record.Vector) != dimension {
		return fmt.Errorf("%w: record %s has dimension %d, collection expects %d",
			ErrInvalidInput, record.Id, len(record.Vector), dimension)
	}

	return nil
}
