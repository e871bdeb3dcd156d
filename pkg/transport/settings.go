package transport

import "time"

// Settings contains the adjustable settings of the transport
type Settings struct {
	PollInterval    time.Duration // how often the reactor wakes up when nothing happens
	ReconnectJitter time.Duration // upper bound of the random delay between dials to one peer
	ConnectTimeout  time.Duration // how long to try to connect to a peer
	WriteTimeout    time.Duration // how long a single write may block
	MaxFrameSize    int           // largest partial frame we buffer before dropping the connection
	QueueSize       int           // messages queued per peer before new ones are dropped
}

// DefaultSettings returns the settings used when none are given
func DefaultSettings() Settings {
	return Settings{
		PollInterval:    500 * time.Millisecond,
		ReconnectJitter: 20 * time.Second,
		ConnectTimeout:  5 * time.Second,
		WriteTimeout:    5 * time.Second,
		MaxFrameSize:    1 << 20,
		QueueSize:       64,
	}
}

// withDefaults fills in every zero value
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.PollInterval <= 0 {
		s.PollInterval = d.PollInterval
	}
	if s.ReconnectJitter < 0 {
		s.ReconnectJitter = 0
	}
	if s.ReconnectJitter == 0 {
		s.ReconnectJitter = d.ReconnectJitter
	}
	if s.ConnectTimeout <= 0 {
		s.ConnectTimeout = d.ConnectTimeout
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = d.WriteTimeout
	}
	if s.MaxFrameSize <= 0 {
		s.MaxFrameSize = d.MaxFrameSize
	}
	if s.QueueSize <= 0 {
		s.QueueSize = d.QueueSize
	}
	return s
}
