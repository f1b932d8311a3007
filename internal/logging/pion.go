package logging

import (
	"fmt"

	pionlog "github.com/pion/logging"
)

// pionLeveledLogger adapts a *Logger, scoped with a tag, to pion's
// logging.LeveledLogger interface, so that pion/ice, pion/dtls, and
// pion/sctp all log through the same sink and the same LOGLEVEL
// directives (see config.go) as the rest of this module.
type pionLeveledLogger struct {
	log *Logger
}

func (p pionLeveledLogger) Trace(msg string)                          { p.log.Log(MaxLevel, 1, msg) }
func (p pionLeveledLogger) Tracef(format string, args ...interface{}) { p.log.Log(MaxLevel, 1, format, args...) }
func (p pionLeveledLogger) Debug(msg string)                          { p.log.Log(Debug, 1, msg) }
func (p pionLeveledLogger) Debugf(format string, args ...interface{}) { p.log.Log(Debug, 1, format, args...) }
func (p pionLeveledLogger) Info(msg string)                           { p.log.Log(Info, 1, msg) }
func (p pionLeveledLogger) Infof(format string, args ...interface{})  { p.log.Log(Info, 1, format, args...) }
func (p pionLeveledLogger) Warn(msg string)                           { p.log.Log(Warn, 1, msg) }
func (p pionLeveledLogger) Warnf(format string, args ...interface{})  { p.log.Log(Warn, 1, format, args...) }
func (p pionLeveledLogger) Error(msg string)                          { p.log.Log(Error, 1, msg) }
func (p pionLeveledLogger) Errorf(format string, args ...interface{}) { p.log.Log(Error, 1, format, args...) }

// LoggerFactory returns a pion logging.LoggerFactory backed by log. Pass
// the result to ice.AgentConfig.LoggerFactory, dtls.Config.LoggerFactory,
// and sctp.Association's logger option so every collaborator library
// shares this module's leveled logger and scoping-by-tag behavior.
func (log *Logger) LoggerFactory() pionlog.LoggerFactory {
	return &pionLoggerFactory{log}
}

type pionLoggerFactory struct {
	log *Logger
}

func (f *pionLoggerFactory) NewLogger(scope string) pionlog.LeveledLogger {
	return pionLeveledLogger{f.log.WithTag(fmt.Sprintf("%s/%s", f.log.Tag, scope))}
}
