package badger

import "github.com/poiesic/docrag/core"

// Key layout, scoped per collection:
//
//	col:<name>:meta           schema
//	col:<name>:rec:<id>       record
//	col:<name>:doc:<source>   registry entry
const (
	collectionPrefix = "col"
	schemaSuffix     = "meta"
	recordSegment    = "rec"
	documentSegment  = "doc"
)

func makeCollectionPrefix(name string) string {
	return collectionPrefix + ":" + name + ":"
}

// makeSchemaKey generates the key holding a collection's schema.
func makeSchemaKey(name string) []byte {
	return []byte(makeCollectionPrefix(name) + schemaSuffix)
}

// makeRecordPrefix generates the prefix shared by all records of a collection.
func makeRecordPrefix(name string) []byte {
	return []byte(makeCollectionPrefix(name) + recordSegment + ":")
}

// makeRecordKey generates a key for a record by ID.
func makeRecordKey(name string, id core.ID) []byte {
	return append(makeRecordPrefix(name), id...)
}

// makeDocumentPrefix generates the prefix shared by all registry entries of a collection.
func makeDocumentPrefix(name string) []byte {
	return []byte(makeCollectionPrefix(name) + documentSegment + ":")
}

// makeDocumentKey generates a key for a registry entry by source.
func makeDocumentKey(name, source string) []byte {
	return append(makeDocumentPrefix(name), source...)
}
