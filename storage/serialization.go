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
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docrag/core"
)

// MUS serializers for persisted values. Each follows the mus-go contract:
// Size, Marshal into a presized buffer, and Unmarshal returning bytes read.
var (
	RecordMUS       = recordMUS{}
	DocumentInfoMUS = documentInfoMUS{}
	SchemaMUS       = schemaMUS{}
)

// MarshalRecord serializes a Record to bytes.
func MarshalRecord(record *core.Record) []byte {
	buf := make([]byte, RecordMUS.Size(*record))
	RecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalRecord deserializes a Record from bytes.
func UnmarshalRecord(data []byte) (*core.Record, error) {
	record, _, err := RecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: record: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

// MarshalDocumentInfo serializes a DocumentInfo to bytes.
func MarshalDocumentInfo(info *core.DocumentInfo) []byte {
	buf := make([]byte, DocumentInfoMUS.Size(*info))
	DocumentInfoMUS.Marshal(*info, buf)
	return buf
}

// UnmarshalDocumentInfo deserializes a DocumentInfo from bytes.
func UnmarshalDocumentInfo(data []byte) (*core.DocumentInfo, error) {
	info, _, err := DocumentInfoMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: document info: %w", ErrSerializationFailed, err)
	}
	return &info, nil
}

// MarshalSchema serializes a Schema to bytes.
func MarshalSchema(schema *Schema) []byte {
	buf := make([]byte, SchemaMUS.Size(*schema))
	SchemaMUS.Marshal(*schema, buf)
	return buf
}

// UnmarshalSchema deserializes a Schema from bytes.
func UnmarshalSchema(data []byte) (*Schema, error) {
	schema, _, err := SchemaMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: schema: %w", ErrSerializationFailed, err)
	}
	return &schema, nil
}

// record

type recordMUS struct{}

func (recordMUS) Marshal(v core.Record, bs []byte) (n int) {
	n = ord.String.Marshal(string(v.Id), bs)
	n += vectorMUS.Marshal(v.Vector, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += metadataMUS.Marshal(v.Metadata, bs[n:])
	return n + timeMUS.Marshal(v.UpdatedAt, bs[n:])
}

func (recordMUS) Unmarshal(bs []byte) (v core.Record, n int, err error) {
	id, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Id = core.ID(id)
	var n1 int
	v.Vector, n1, err = vectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Metadata, n1, err = metadataMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (recordMUS) Size(v core.Record) (size int) {
	size = ord.String.Size(string(v.Id))
	size += vectorMUS.Size(v.Vector)
	size += ord.String.Size(v.Text)
	size += metadataMUS.Size(v.Metadata)
	return size + timeMUS.Size(v.UpdatedAt)
}

// document info

type documentInfoMUS struct{}

func (documentInfoMUS) Marshal(v core.DocumentInfo, bs []byte) (n int) {
	n = ord.String.Marshal(v.Source, bs)
	n += varint.Int.Marshal(v.Size, bs[n:])
	n += varint.Int.Marshal(v.ChunkCount, bs[n:])
	n += metadataMUS.Marshal(v.Metadata, bs[n:])
	return n + timeMUS.Marshal(v.IngestedAt, bs[n:])
}

func (documentInfoMUS) Unmarshal(bs []byte) (v core.DocumentInfo, n int, err error) {
	v.Source, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Size, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ChunkCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Metadata, n1, err = metadataMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.IngestedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (documentInfoMUS) Size(v core.DocumentInfo) (size int) {
	size = ord.String.Size(v.Source)
	size += varint.Int.Size(v.Size)
	size += varint.Int.Size(v.ChunkCount)
	size += metadataMUS.Size(v.Metadata)
	return size + timeMUS.Size(v.IngestedAt)
}

// schema

type schemaMUS struct{}

func (schemaMUS) Marshal(v Schema, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += varint.Int.Marshal(v.Dimension, bs[n:])
	n += ord.String.Marshal(string(v.Distance), bs[n:])
	return n + timeMUS.Marshal(v.CreatedAt, bs[n:])
}

func (schemaMUS) Unmarshal(bs []byte) (v Schema, n int, err error) {
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Dimension, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	distance, n1, err := ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Distance = Distance(distance)
	v.CreatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (schemaMUS) Size(v Schema) (size int) {
	size = ord.String.Size(v.Name)
	size += varint.Int.Size(v.Dimension)
	size += ord.String.Size(string(v.Distance))
	return size + timeMUS.Size(v.CreatedAt)
}

// vector: varint length, then IEEE-754 bits of each element as varint uint32.

var vectorMUS = float32SliceMUS{}

type float32SliceMUS struct{}

func (float32SliceMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += varint.Uint32.Marshal(math.Float32bits(f), bs[n:])
	}
	return n
}

func (float32SliceMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length > len(bs)-n {
		err = ErrTruncatedData
		return
	}
	if length == 0 {
		return
	}
	v = make([]float32, length)
	var (
		bits uint32
		n1   int
	)
	for i := range v {
		bits, n1, err = varint.Uint32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v[i] = math.Float32frombits(bits)
	}
	return
}

func (float32SliceMUS) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += varint.Uint32.Size(math.Float32bits(f))
	}
	return size
}

// metadata: varint pair count, then key/value strings in key order.

var metadataMUS = stringMapMUS{}

type stringMapMUS struct{}

func (stringMapMUS) Marshal(v map[string]string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, k := range slices.Sorted(maps.Keys(v)) {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(v[k], bs[n:])
	}
	return n
}

func (stringMapMUS) Unmarshal(bs []byte) (v map[string]string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length > len(bs)-n {
		err = ErrTruncatedData
		return
	}
	v = make(map[string]string, length)
	var (
		key, val string
		n1       int
	)
	for range length {
		key, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		val, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v[key] = val
	}
	return
}

func (stringMapMUS) Size(v map[string]string) (size int) {
	size = varint.Int.Size(len(v))
	for k, val := range v {
		size += ord.String.Size(k) + ord.String.Size(val)
	}
	return size
}

// time: Unix microseconds, UTC.

var timeMUS = unixMicroMUS{}

type unixMicroMUS struct{}

func (unixMicroMUS) Marshal(v time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(v.UnixMicro(), bs)
}

func (unixMicroMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	v = time.UnixMicro(micros).UTC()
	return
}

func (unixMicroMUS) Size(v time.Time) int {
	return varint.Int64.Size(v.UnixMicro())
}
