package ingestion

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/docrag/core"
)

// DefaultFileTypes lists the extensions accepted when none are configured.
var DefaultFileTypes = []string{".txt", ".md", ".csv"}

// Loader reads text files into Documents.
type Loader struct {
	docType   string
	fileTypes map[string]bool
}

// NewLoader creates a Loader for docType accepting the given extensions.
// Extensions are matched case-insensitively; a missing leading dot is added.
// An empty list falls back to DefaultFileTypes.
func NewLoader(docType string, fileTypes []string) *Loader {
	if len(fileTypes) == 0 {
		fileTypes = DefaultFileTypes
	}
	if docType == "" {
		docType = DocTypeFinancial
	}
	types := make(map[string]bool, len(fileTypes))
	for _, ext := range fileTypes {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		types[ext] = true
	}
	return &Loader{docType: docType, fileTypes: types}
}

// DocType returns the document type used for metadata extraction.
func (l *Loader) DocType() string {
	return l.docType
}

// Supports reports whether name has an accepted extension.
func (l *Loader) Supports(name string) bool {
	return l.fileTypes[strings.ToLower(filepath.Ext(name))]
}

// LoadFile reads the file at path. The source of the Document is the path.
func (l *Loader) LoadFile(path string) (*core.Document, error) {
	if !l.Supports(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()
	return l.load(path, filepath.Base(path), f)
}

// LoadReader reads a named upload. The source of the Document is name.
func (l *Loader) LoadReader(name string, r io.Reader) (*core.Document, error) {
	if !l.Supports(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, filepath.Ext(name))
	}
	return l.load(name, filepath.Base(name), r)
}

func (l *Loader) load(source, filename string, r io.Reader) (*core.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}

	// Invalid UTF-8 is dropped rather than rejected
	text := strings.ToValidUTF8(string(data), "")

	metadata := ExtractMetadata(l.docType, text)
	metadata[core.MetaSource] = source
	metadata[core.MetaFilename] = filename
	metadata[core.MetaFileSize] = strconv.Itoa(len(data))
	metadata[core.MetaDocType] = l.docType
	metadata[core.MetaUploadedAt] = time.Now().UTC().Format(time.RFC3339)

	return &core.Document{
		Source:   source,
		Text:     text,
		Metadata: metadata,
	}, nil
}
