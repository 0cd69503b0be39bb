// Package pionlogger bridges the pion logging interfaces to the project
// logger so the WebRTC stack shares the same output and level config.
package pionlogger

import (
	"fmt"

	"github.com/mesh-rooms/mesh-rooms/server/logger"
	"github.com/pion/logging"
)

type Factory struct {
	log logger.Logger
}

var _ logging.LoggerFactory = &Factory{}

func NewFactory(log logger.Logger) *Factory {
	return &Factory{
		log: log.WithNamespaceAppended("pion"),
	}
}

func (f *Factory) NewLogger(subsystem string) logging.LeveledLogger {
	return &leveledLogger{
		log: f.log.WithNamespaceAppended(subsystem),
	}
}

type leveledLogger struct {
	log logger.Logger
}

func (l *leveledLogger) Trace(msg string) {
	l.log.Trace(msg, nil)
}

func (l *leveledLogger) Tracef(format string, args ...interface{}) {
	if l.log.IsLevelEnabled(logger.LevelTrace) {
		l.log.Trace(fmt.Sprintf(format, args...), nil)
	}
}

func (l *leveledLogger) Debug(msg string) {
	l.log.Debug(msg, nil)
}

func (l *leveledLogger) Debugf(format string, args ...interface{}) {
	if l.log.IsLevelEnabled(logger.LevelDebug) {
		l.log.Debug(fmt.Sprintf(format, args...), nil)
	}
}

func (l *leveledLogger) Info(msg string) {
	l.log.Info(msg, nil)
}

func (l *leveledLogger) Infof(format string, args ...interface{}) {
	if l.log.IsLevelEnabled(logger.LevelInfo) {
		l.log.Info(fmt.Sprintf(format, args...), nil)
	}
}

func (l *leveledLogger) Warn(msg string) {
	l.log.Warn(msg, nil)
}

func (l *leveledLogger) Warnf(format string, args ...interface{}) {
	if l.log.IsLevelEnabled(logger.LevelWarn) {
		l.log.Warn(fmt.Sprintf(format, args...), nil)
	}
}

func (l *leveledLogger) Error(msg string) {
	l.log.Error(msg, nil, nil)
}

func (l *leveledLogger) Errorf(format string, args ...interface{}) {
	if l.log.IsLevelEnabled(logger.LevelError) {
		l.log.Error(fmt.Sprintf(format, args...), nil, nil)
	}
}
