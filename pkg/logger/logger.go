package logger

import (
	"fmt"
	"log"
)

const (
	DEBUG int = iota
	INFO
	WARNING
	ERROR
	SILENCE
)

type Logger interface {
	Debugf(msg string, a ...any)
	Infof(msg string, a ...any)
	Warnf(msg string, a ...any)
	Errorf(msg string, a ...any)
}

type stdLogger struct {
	level int
}

// NewLogger returns a logger writing to the standard log output. Records below
// the given level are dropped.
func NewLogger(level int) *stdLogger {
	return &stdLogger{level: level}
}

func (l *stdLogger) Debugf(msg string, a ...any) { l.logf(DEBUG, "DEBUG", msg, a...) }
func (l *stdLogger) Infof(msg string, a ...any)  { l.logf(INFO, "INFO", msg, a...) }
func (l *stdLogger) Warnf(msg string, a ...any)  { l.logf(WARNING, "WARN", msg, a...) }
func (l *stdLogger) Errorf(msg string, a ...any) { l.logf(ERROR, "ERROR", msg, a...) }

func (l *stdLogger) logf(level int, tag, msg string, a ...any) {
	if l.level > level {
		return
	}

	log.Printf("[%s] %s", tag, fmt.Sprintf(msg, a...))
}
