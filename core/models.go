package core

import (
	"encoding/hex"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is the unique identifier of an indexed record within a collection.
type ID string

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	return ID(hex.EncodeToString(h.Sum(nil)))
}

// ChunkID derives the record ID of a chunk from its document source and
// sequence index. Re-ingesting the same source yields the same IDs.
func ChunkID(source string, index int) ID {
	return IDFromContent(source + "_" + strconv.Itoa(index))
}

// Metadata keys written by the ingestion pipeline.
const (
	MetaSource     = "source"
	MetaFilename   = "filename"
	MetaFileSize   = "file_size"
	MetaDocType    = "doc_type"
	MetaUploadedAt = "uploaded_at"
	MetaChunkIndex = "chunk_index"
	MetaChunkStart = "chunk_start"
	MetaChunkEnd   = "chunk_end"
	MetaChunkSize  = "chunk_size"
	MetaChunkID    = "chunk_id"
)

// Document is raw text plus its source identifier and document-level metadata.
type Document struct {
	Source   string
	Text     string
	Metadata map[string]string
}

// Chunk is a contiguous span of a Document's text.
// Start and End are character (rune) offsets into the parent text.
type Chunk struct {
	Index    int
	Start    int
	End      int
	Text     string
	Metadata map[string]string
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Record is the persisted unit of the vector store.
type Record struct {
	Id        ID
	Vector    []float32
	Text      string
	Metadata  map[string]string
	UpdatedAt time.Time // Set by the store on every upsert
}

// Match is a record returned by a similarity search along with its distance
// to the query vector. Lower distances are closer.
type Match struct {
	Record   *Record
	Distance float32
}

// DocumentInfo is the registry entry kept for every ingested source.
type DocumentInfo struct {
	Source     string
	Size       int
	ChunkCount int
	Metadata   map[string]string
	IngestedAt time.Time
}

// CloneMetadata returns a shallow copy of m that is safe to modify.
func CloneMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
