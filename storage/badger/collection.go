package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

// Collection implements storage.Collection for BadgerDB.
type Collection struct {
	backend *Backend
	schema  storage.Schema
	logger  *slog.Logger
}

var _ storage.Collection = (*Collection)(nil)

// OpenCollection opens the named collection, creating it on first use.
// An existing collection must have been created with the same dimension and
// distance, otherwise storage.ErrSchemaMismatch is returned.
func OpenCollection(backend *Backend, name string, dimension int, distance storage.Distance) (*Collection, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	if name == "" || strings.Contains(name, ":") {
		return nil, fmt.Errorf("%w: invalid collection name %q", core.ErrInvalidConfiguration, name)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: collection dimension must be positive, got %d", core.ErrInvalidConfiguration, dimension)
	}
	if _, err := storage.ParseDistance(string(distance)); err != nil {
		return nil, err
	}

	want := storage.Schema{
		Name:      name,
		Dimension: dimension,
		Distance:  distance,
		CreatedAt: time.Now().UTC(),
	}

	var schema *storage.Schema
	err := backend.WithTx(func(tx *badger.Txn) error {
		key := makeSchemaKey(name)
		item, err := tx.Get(key)
		if err == nil {
			return item.Value(func(val []byte) error {
				var unmarshalErr error
				schema, unmarshalErr = storage.UnmarshalSchema(val)
				return unmarshalErr
			})
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		schema = &want
		if err := tx.Set(key, storage.MarshalSchema(schema)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, fmt.Errorf("%w: opening collection %s: %w", core.ErrStoreRead, name, err)
	}

	if schema.Dimension != dimension || schema.Distance != distance {
		return nil, fmt.Errorf("%w: collection %s was created with dimension %d and distance %s, requested %d and %s",
			storage.ErrSchemaMismatch, name, schema.Dimension, schema.Distance, dimension, distance)
	}

	return &Collection{
		backend: backend,
		schema:  *schema,
		logger:  slog.Default().With("component", "collection", "collection", name),
	}, nil
}

// ReadSchema returns the persisted schema of the named collection without
// opening it. Returns storage.ErrNotFound if the collection was never created.
func ReadSchema(backend *Backend, name string) (*storage.Schema, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}

	var schema *storage.Schema
	err := backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSchemaKey(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			schema, unmarshalErr = storage.UnmarshalSchema(val)
			return unmarshalErr
		})
	}, false)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: collection %s", storage.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading schema of %s: %w", core.ErrStoreRead, name, err)
	}
	return schema, nil
}

// Schema returns the collection's persisted schema.
func (c *Collection) Schema() storage.Schema {
	return c.schema
}

// Upsert inserts or replaces records by ID.
// Sets UpdatedAt on every record.
func (c *Collection) Upsert(ctx context.Context, records ...*core.Record) error {
	if len(records) == 0 {
		return nil
	}

	for _, record := range records {
		if err := core.ValidateRecord(record, c.schema.Dimension); err != nil {
			if record != nil && len(record.Vector) != c.schema.Dimension {
				err = fmt.Errorf("%w: %w", storage.ErrDimensionMismatch, err)
			}
			return fmt.Errorf("%w: collection %s: %w", core.ErrStoreWrite, c.schema.Name, err)
		}
	}

	now := time.Now().UTC()
	err := c.backend.Batch(len(records), func(tx *badger.Txn, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		record := records[i]
		record.UpdatedAt = now
		return tx.Set(makeRecordKey(c.schema.Name, record.Id), storage.MarshalRecord(record))
	})
	if err != nil {
		c.logger.Error("upsert failed", "records", len(records), "err", err)
		return fmt.Errorf("%w: %w", core.ErrStoreWrite, err)
	}

	c.logger.Debug("upserted records", "records", len(records))
	return nil
}

// Search performs a full scan computing the distance from vector to every
// matching record and returns the k closest. Ties are returned in no
// particular order.
func (c *Collection) Search(ctx context.Context, vector []float32, k int, filter storage.Filter) ([]core.Match, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: %w: k must be positive, got %d", core.ErrInvalidInput, storage.ErrInvalidQuery, k)
	}
	if len(vector) != c.schema.Dimension {
		return nil, fmt.Errorf("%w: %w: query has dimension %d, collection %s expects %d",
			core.ErrStoreRead, storage.ErrDimensionMismatch, len(vector), c.schema.Name, c.schema.Dimension)
	}

	var results []core.Match
	err := c.scan(ctx, func(record *core.Record) error {
		if !filter.Matches(record.Metadata) {
			return nil
		}
		// Skip records written with another dimension
		if len(record.Vector) != len(vector) {
			return nil
		}
		results = append(results, core.Match{
			Record:   record,
			Distance: c.schema.Distance.Compute(vector, record.Vector),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStoreRead, err)
	}

	// Sort by distance ascending
	slices.SortFunc(results, func(a, b core.Match) int {
		if a.Distance < b.Distance {
			return -1
		}
		if a.Distance > b.Distance {
			return 1
		}
		return 0
	})

	// Limit to k
	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// Get retrieves a single record by ID.
func (c *Collection) Get(ctx context.Context, id core.ID) (*core.Record, error) {
	var record *core.Record
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRecordKey(c.schema.Name, id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			record, unmarshalErr = storage.UnmarshalRecord(val)
			return unmarshalErr
		})
	}, false)

	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStoreRead, err)
	}
	return record, nil
}

// Delete removes records by ID. Missing IDs are ignored.
func (c *Collection) Delete(ctx context.Context, ids ...core.ID) error {
	if len(ids) == 0 {
		return nil
	}
	err := c.backend.Batch(len(ids), func(tx *badger.Txn, i int) error {
		return tx.Delete(makeRecordKey(c.schema.Name, ids[i]))
	})
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrStoreWrite, err)
	}
	c.logger.Debug("deleted records", "records", len(ids))
	return nil
}

// ForEach calls fn with successive batches of records in ID order.
func (c *Collection) ForEach(ctx context.Context, batchSize int, fn func(records []*core.Record) error) error {
	if batchSize < 1 {
		return fmt.Errorf("%w: batch size must be positive, got %d", storage.ErrInvalidQuery, batchSize)
	}

	batch := make([]*core.Record, 0, batchSize)
	err := c.scan(ctx, func(record *core.Record) error {
		batch = append(batch, record)
		if len(batch) < batchSize {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		batch = make([]*core.Record, 0, batchSize)
		return nil
	})
	if err != nil {
		return err
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

// Stats returns the record count and schema of the collection.
func (c *Collection) Stats(ctx context.Context) (*storage.Stats, error) {
	count := 0
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeRecordPrefix(c.schema.Name)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStoreRead, err)
	}

	return &storage.Stats{
		Collection: c.schema.Name,
		Count:      count,
		Dimension:  c.schema.Dimension,
		Distance:   c.schema.Distance,
	}, nil
}

// Reset deletes every record and registry entry of the collection.
func (c *Collection) Reset(ctx context.Context) error {
	c.logger.Warn("resetting collection")
	err := c.backend.DropPrefix(makeRecordPrefix(c.schema.Name), makeDocumentPrefix(c.schema.Name))
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrStoreWrite, err)
	}
	return nil
}

// scan visits every record of the collection in key order.
func (c *Collection) scan(ctx context.Context, visit func(record *core.Record) error) error {
	return c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeRecordPrefix(c.schema.Name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var record *core.Record
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalRecord(val)
				return err
			})
			if err != nil {
				return err
			}

			if err := visit(record); err != nil {
				return err
			}
		}
		return nil
	}, false)
}
