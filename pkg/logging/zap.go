package logging

import (
	"go.uber.org/zap"
)

// ZapSugar adapts a zap sugared logger to SimpleLogger
type ZapSugar struct {
	Logger *zap.SugaredLogger
	sync   func() error
}

func (f *ZapSugar) Println(v ...interface{}) {
	msg, kv := message(v)
	f.Logger.Infow(msg, kv...)
}

func (f *ZapSugar) Debugf(v ...interface{}) {
	msg, kv := message(v)
	f.Logger.Debugw(msg, kv...)
}

func (f *ZapSugar) Infof(v ...interface{}) {
	msg, kv := message(v)
	f.Logger.Infow(msg, kv...)
}

func (f *ZapSugar) Warnf(v ...interface{}) {
	msg, kv := message(v)
	f.Logger.Warnw(msg, kv...)
}

func (f *ZapSugar) Errorf(v ...interface{}) {
	msg, kv := message(v)
	f.Logger.Errorw(msg, kv...)
}

// Sync flushes buffered log entries
func (f *ZapSugar) Sync() error {
	if f.sync == nil {
		return nil
	}
	return f.sync()
}

// NewZap creates a json logger writing to dst (stdout when empty)
func NewZap(level string, dst ...string) (*ZapSugar, error) {
	config := zap.NewProductionConfig()
	if len(dst) == 0 {
		config.OutputPaths = []string{"stdout"}
	} else {
		config.OutputPaths = dst
	}
	config.DisableCaller = true
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.MessageKey = "message"
	switch ParseLevel(level) {
	case DebugLevel:
		config.Level.SetLevel(zap.DebugLevel)
	case WarnLevel:
		config.Level.SetLevel(zap.WarnLevel)
	case ErrorLevel:
		config.Level.SetLevel(zap.ErrorLevel)
	default:
		config.Level.SetLevel(zap.InfoLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return &ZapSugar{
		Logger: logger.Sugar(),
		sync:   logger.Sync,
	}, nil
}
