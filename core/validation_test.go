package core

import (
	"errors"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "valid document",
			doc:     &Document{Source: "hb2.txt", Text: "Section 1. Appropriations."},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidInput,
		},
		{
			name:    "blank source",
			doc:     &Document{Source: "  ", Text: "text"},
			wantErr: ErrEmptySource,
		},
		{
			name:    "empty text",
			doc:     &Document{Source: "a.txt", Text: ""},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "whitespace text",
			doc:     &Document{Source: "a.txt", Text: "\n\t "},
			wantErr: ErrEmptyContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ValidateDocument() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name      string
		record    *Record
		dimension int
		wantErr   bool
	}{
		{
			name:      "valid record",
			record:    &Record{Id: "abc", Vector: []float32{0.1, 0.2, 0.3}},
			dimension: 3,
		},
		{
			name:      "valid record with empty text",
			record:    &Record{Id: "abc", Vector: []float32{1}, Text: ""},
			dimension: 1,
		},
		{
			name:      "nil record",
			record:    nil,
			dimension: 3,
			wantErr:   true,
		},
		{
			name:      "empty id",
			record:    &Record{Vector: []float32{0.1}},
			dimension: 1,
			wantErr:   true,
		},
		{
			name:      "dimension mismatch",
			record:    &Record{Id: "abc", Vector: []float32{0.1, 0.2}},
			dimension: 3,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.record, tt.dimension)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ValidateRecord() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}
