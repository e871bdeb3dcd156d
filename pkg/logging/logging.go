package logging

import "strings"

// SimpleLogger is the logger handed to the cluster components. Every call
// takes a message followed by key/value pairs:
//
//  log.Debugf("connecting to peer", "handler", name, "peer", peer)
type SimpleLogger interface {
	Println(v ...interface{})
	Debugf(v ...interface{})
	Infof(v ...interface{})
	Warnf(v ...interface{})
	Errorf(v ...interface{})
}

// Level is the minimum level a Wrapper lets through
type Level int

// Levels, lowest first
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel converts a level name to a Level, unknown names become InfoLevel
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug", "trace":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error", "fatal", "panic":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Discard drops everything
type Discard struct{}

func (Discard) Println(v ...interface{}) {}
func (Discard) Debugf(v ...interface{})  {}
func (Discard) Infof(v ...interface{})   {}
func (Discard) Warnf(v ...interface{})   {}
func (Discard) Errorf(v ...interface{})  {}

// message splits the first element off as the log message, the remainder is
// returned as key/value pairs
func message(v []interface{}) (string, []interface{}) {
	if len(v) == 0 {
		return "", nil
	}
	switch m := v[0].(type) {
	case string:
		return m, v[1:]
	case error:
		return m.Error(), v[1:]
	default:
		return "", v
	}
}
