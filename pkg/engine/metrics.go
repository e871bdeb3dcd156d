package engine

// Metrics receives the counters of an engine
type Metrics interface {
	Tick()
	ProbeFailed()
	ParseError(peer string)
	CacheEntries(n int)
	ClusterVersion(version int)
}

type nopMetrics struct{}

func (nopMetrics) Tick()              {}
func (nopMetrics) ProbeFailed()       {}
func (nopMetrics) ParseError(string)  {}
func (nopMetrics) CacheEntries(int)   {}
func (nopMetrics) ClusterVersion(int) {}
