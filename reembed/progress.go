package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// progress counts reembedded records and prints a status line every
// interval records. It is safe for concurrent use.
type progress struct {
	mu       sync.Mutex
	out      io.Writer
	total    int
	interval int
	done     int
	failed   int
	next     int
	began    time.Time
	now      func() time.Time
}

func newProgress(out io.Writer, total, interval int) *progress {
	if out == nil {
		out = io.Discard
	}
	interval = max(interval, 1)
	return &progress{
		out:      out,
		total:    total,
		interval: interval,
		next:     interval,
		now:      time.Now,
	}
}

func (p *progress) begin() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.began = p.now()
}

// batch records a finished batch of n records, lost of which were skipped.
func (p *progress) batch(n, lost int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = min(p.done+n, p.total)
	p.failed += lost
	if p.done >= p.next || p.done == p.total {
		p.line()
		for p.next <= p.done {
			p.next += p.interval
		}
	}
}

// line must be called with mu held.
func (p *progress) line() {
	elapsed := p.now().Sub(p.began)
	pct := 100.0
	if p.total > 0 {
		pct = float64(p.done) * 100 / float64(p.total)
	}
	fmt.Fprintf(p.out, "  %d/%d records (%.1f%%)", p.done, p.total, pct)
	if p.failed > 0 {
		fmt.Fprintf(p.out, ", %d failed", p.failed)
	}
	if p.done > 0 && p.done < p.total && elapsed > 0 {
		per := elapsed / time.Duration(p.done)
		fmt.Fprintf(p.out, ", about %s left", (per * time.Duration(p.total-p.done)).Round(time.Second))
	}
	fmt.Fprintln(p.out)
}

// summary fills in the counters of result.
func (p *progress) summary(result *Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	result.Records = p.done
	result.Failed = p.failed
	result.Elapsed = p.now().Sub(p.began)
}
