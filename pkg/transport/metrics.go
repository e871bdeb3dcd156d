package transport

// Metrics receives the counters of a transport
type Metrics interface {
	ConnectedPeers(n int)
	FrameReceived(peer string)
	FrameSent(peer string)
	DialFailed(peer string)
	ConnectionRejected()
}

type nopMetrics struct{}

func (nopMetrics) ConnectedPeers(int)   {}
func (nopMetrics) FrameReceived(string) {}
func (nopMetrics) FrameSent(string)     {}
func (nopMetrics) DialFailed(string)    {}
func (nopMetrics) ConnectionRejected()  {}
