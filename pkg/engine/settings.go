package engine

import "time"

// Settings contains the timing of the engine
type Settings struct {
	TickInterval time.Duration // how often we probe, publish and merge
	CacheTTL     time.Duration // snapshots older than this are forgotten
}

// DefaultSettings returns the settings used when none are given
func DefaultSettings() Settings {
	return Settings{
		TickInterval: 5 * time.Second,
		CacheTTL:     8 * time.Second,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.TickInterval <= 0 {
		s.TickInterval = d.TickInterval
	}
	if s.CacheTTL <= 0 {
		s.CacheTTL = d.CacheTTL
	}
	return s
}
