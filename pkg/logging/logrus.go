package logging

import (
	"fmt"
	"io/ioutil"
	"log/syslog"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	lSyslog "github.com/sirupsen/logrus/hooks/syslog"
)

const (
	outputSyslog = "syslog"
)

var log = logrus.New()
var lock = new(sync.Mutex)

// Configure sets up logging
func Configure(output string, l string) error {
	lock.Lock()
	defer lock.Unlock()
	log = logrus.New()

	switch output {
	case "", "stdout":
		log.Out = os.Stdout
		log.Formatter = &logrus.TextFormatter{DisableColors: false, DisableTimestamp: false, QuoteEmptyFields: true}

	case "stderr":
		log.Out = os.Stderr
		log.Formatter = &logrus.TextFormatter{DisableColors: false, DisableTimestamp: false, QuoteEmptyFields: true}

	case outputSyslog:
		log.Formatter = &logrus.TextFormatter{DisableColors: true, DisableTimestamp: true, QuoteEmptyFields: true}
		hook, err := lSyslog.NewSyslogHook("", "", syslog.LOG_LOCAL5, "clumond")
		if err != nil {
			return fmt.Errorf("syslog hook: %w", err)
		}
		log.Hooks.Add(hook)
		log.Out = ioutil.Discard

	default:
		log.Formatter = &logrus.TextFormatter{DisableColors: true, DisableTimestamp: false, QuoteEmptyFields: true}
		f, err := os.OpenFile(output, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", output, err)
		}
		log.Out = f
	}

	if l == "" {
		return nil
	}

	level, err := logrus.ParseLevel(l)
	if err != nil {
		return fmt.Errorf("unknown loglevel %s", l)
	}
	log.Level = level
	return nil
}

// For sets up logging defaults
func For(name string) *logrus.Entry {
	lock.Lock()
	defer lock.Unlock()
	tag := strings.Split(name, "/")
	return log.WithField("tag", name).WithField("func", tag[0])
}

// Logrus adapts a logrus entry to SimpleLogger, key/value pairs become fields
type Logrus struct {
	Logger *logrus.Entry
}

// NewLogrus returns a SimpleLogger writing to the configured logrus logger
func NewLogrus(name string) SimpleLogger {
	return &Logrus{Logger: For(name)}
}

func (f *Logrus) entry(v []interface{}) (*logrus.Entry, string) {
	msg, kv := message(v)
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	if len(kv)%2 == 1 {
		fields["extra"] = kv[len(kv)-1]
	}
	return f.Logger.WithFields(fields), msg
}

func (f *Logrus) Println(v ...interface{}) {
	e, msg := f.entry(v)
	e.Info(msg)
}

func (f *Logrus) Debugf(v ...interface{}) {
	e, msg := f.entry(v)
	e.Debug(msg)
}

func (f *Logrus) Infof(v ...interface{}) {
	e, msg := f.entry(v)
	e.Info(msg)
}

func (f *Logrus) Warnf(v ...interface{}) {
	e, msg := f.entry(v)
	e.Warn(msg)
}

func (f *Logrus) Errorf(v ...interface{}) {
	e, msg := f.entry(v)
	e.Error(msg)
}
