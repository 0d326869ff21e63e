package query

import "github.com/poiesic/docrag/core"

// Monitor provides hooks to observe the query process.
// Implement this interface to track intermediate steps and results.
type Monitor interface {
	Start(req Request)
	AfterEmbedding(vector []float32)
	AfterSearch(matches []core.Match)
	AfterSynthesis(answer string, err error)
	Finish(resp *Response)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Request)                  {}
func (n *noopMonitor) AfterEmbedding(_ []float32)       {}
func (n *noopMonitor) AfterSearch(_ []core.Match)       {}
func (n *noopMonitor) AfterSynthesis(_ string, _ error) {}
func (n *noopMonitor) Finish(_ *Response)               {}
