//go:build tinygo

package device

import (
	"strconv"
	"time"

	"github.com/calvinmclean/coilwinder/log"
)

// Level filters PrintLogger output
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// PrintLogger writes log lines with println. Lines start with "LOG" so the host can tell
// them apart from protocol responses.
type PrintLogger struct {
	level Level
}

func NewPrintLogger(level Level) *PrintLogger {
	return &PrintLogger{level: level}
}

func (l *PrintLogger) Debug(msg string, fields ...log.Field) { l.print(LevelDebug, "DBG", msg, fields) }
func (l *PrintLogger) Info(msg string, fields ...log.Field)  { l.print(LevelInfo, "INF", msg, fields) }
func (l *PrintLogger) Warn(msg string, fields ...log.Field)  { l.print(LevelWarn, "WRN", msg, fields) }
func (l *PrintLogger) Error(msg string, fields ...log.Field) { l.print(LevelError, "ERR", msg, fields) }

func (l *PrintLogger) print(level Level, tag, msg string, fields []log.Field) {
	if level < l.level {
		return
	}
	line := "LOG " + tag + " " + msg
	for _, f := range fields {
		line += " " + f.Key + "=" + valueStr(f.Value)
	}
	println(line)
}

func valueStr(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Duration:
		return v.String()
	case error:
		return v.Error()
	default:
		return "?"
	}
}
