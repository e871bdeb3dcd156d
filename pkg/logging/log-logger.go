package logging

import (
	stdlog "log"
	"strings"
)

// StandardLogWrite forwards stdlib log output to logrus
type StandardLogWrite struct {
	name string
}

func (s StandardLogWrite) Write(p []byte) (n int, err error) {
	For(s.name).Warn(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// StandardLog returns a stdlib logger for libraries that want one
func StandardLog(name string) *stdlog.Logger {
	w := StandardLogWrite{name: name}
	return stdlog.New(w, "", stdlog.Lshortfile)
}
