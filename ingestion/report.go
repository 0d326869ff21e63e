package ingestion

import "fmt"

// DocumentReport describes the outcome of ingesting one document.
type DocumentReport struct {
	Source        string            `json:"source"`
	Filename      string            `json:"filename,omitempty"`
	Size          int               `json:"size"`
	ChunksCreated int               `json:"chunks_created"`
	ChunksFailed  int               `json:"chunks_failed"`
	FailedChunks  []int             `json:"failed_chunks,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Error         string            `json:"error,omitempty"`

	err error
}

// Err returns the error that stopped the document, if any.
func (d *DocumentReport) Err() error {
	return d.err
}

// Failed reports whether nothing of the document was stored.
func (d *DocumentReport) Failed() bool {
	return d.err != nil
}

func (d *DocumentReport) fail(err error) {
	d.err = err
	d.Error = err.Error()
}

// Report summarizes an ingestion call.
type Report struct {
	Documents          []*DocumentReport `json:"documents"`
	DocumentsProcessed int               `json:"documents_processed"`
	DocumentsFailed    int               `json:"documents_failed"`
	ChunksCreated      int               `json:"chunks_created"`
	ChunksFailed       int               `json:"chunks_failed"`
}

// Success reports whether at least one chunk was stored and no document failed outright.
func (r *Report) Success() bool {
	return r.DocumentsFailed == 0 && r.ChunksCreated > 0
}

// Message returns a one-line human readable summary.
func (r *Report) Message() string {
	msg := fmt.Sprintf("Processed %d documents with %d chunks", r.DocumentsProcessed, r.ChunksCreated)
	if r.DocumentsFailed > 0 || r.ChunksFailed > 0 {
		msg += fmt.Sprintf(" (%d documents failed, %d chunks failed)", r.DocumentsFailed, r.ChunksFailed)
	}
	return msg
}

// Errors returns the per-document errors in report order.
func (r *Report) Errors() []error {
	var errs []error
	for _, d := range r.Documents {
		if d.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Source, d.err))
		}
	}
	return errs
}

func (r *Report) add(d *DocumentReport) {
	r.Documents = append(r.Documents, d)
	if d.Failed() {
		r.DocumentsFailed++
	} else {
		r.DocumentsProcessed++
	}
	r.ChunksCreated += d.ChunksCreated
	r.ChunksFailed += d.ChunksFailed
}
