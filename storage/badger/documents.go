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


package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

// PutDocument persists the registry entry for a source.
// Sets IngestedAt if not already set.
func (c *Collection) PutDocument(ctx context.Context, info *core.DocumentInfo) error {
	if info == nil || info.Source == "" {
		return fmt.Errorf("%w: %w", core.ErrStoreWrite, core.ErrEmptySource)
	}
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		if info.IngestedAt.IsZero() {
			info.IngestedAt = time.Now().UTC()
		}
		key := makeDocumentKey(c.schema.Name, info.Source)
		value := storage.MarshalDocumentInfo(info)
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrStoreWrite, err)
	}
	return nil
}

// GetDocument retrieves the registry entry for a source.
func (c *Collection) GetDocument(ctx context.Context, source string) (*core.DocumentInfo, error) {
	var info *core.DocumentInfo
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocumentKey(c.schema.Name, source))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			info, unmarshalErr = storage.UnmarshalDocumentInfo(val)
			return unmarshalErr
		})
	}, false)

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: document %s", storage.ErrNotFound, source)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStoreRead, err)
	}
	return info, nil
}

// ListDocuments returns every registry entry ordered by source.
func (c *Collection) ListDocuments(ctx context.Context) ([]*core.DocumentInfo, error) {
	var docs []*core.DocumentInfo
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeDocumentPrefix(c.schema.Name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				info, err := storage.UnmarshalDocumentInfo(val)
				if err != nil {
					return err
				}
				docs = append(docs, info)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStoreRead, err)
	}
	return docs, nil
}
