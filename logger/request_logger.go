package logger

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"
)

// Logger stores the needed functionality to print a log.
type Logger struct {
	trace    string
	started  time.Time
	severity zapcore.Level
	labels   map[string]string
}

func newDefaultLogger() *Logger {
	now := time.Now()
	id, _ := uuid.NewRandom()

	return &Logger{
		started:  now,
		trace:    getTrace(now, id.String()),
		severity: zapcore.DebugLevel,
		labels:   make(map[string]string),
	}
}

// Trace returns the trace stored in logger.
func (l *Logger) Trace() string {
	return l.trace
}

// SetLabel allows to optionally specify key/value labels for log entry.
func (l *Logger) SetLabel(key, value string) {
	l.labels[key] = value
}

// SetLabels allows to optionally add additional labels for log entry.
func (l *Logger) SetLabels(labels map[string]string) {
	for key, value := range labels {
		l.SetLabel(key, value)
	}
}

// End emits the summarized request entry at the highest severity seen.
func (l *Logger) End(ctx *gin.Context) {
	if base == nil || ctx.Request == nil {
		return
	}

	fields := l.fields()
	fields = append(fields,
		"status", ctx.Writer.Status(),
		"latency", time.Since(l.started).String(),
		"method", ctx.Request.Method,
		"path", ctx.Request.URL.Path,
	)

	base.Infow("request completed", fields...)
}

func (l *Logger) fields() []interface{} {
	fields := make([]interface{}, 0, 2*(len(l.labels)+1))
	fields = append(fields, "trace", l.trace)

	for k, v := range l.labels {
		fields = append(fields, k, v)
	}

	return fields
}

func logReqEntry(s zapcore.Level, l *Logger, msg string) {
	if s > l.severity {
		l.severity = s
	}

	if base != nil {
		base.Logw(s, msg, l.fields()...)
		return
	}

	if gin.Mode() != gin.ReleaseMode {
		log.Printf("[%s] %s\n", strings.ToLower(s.String()), msg)
	}
}

func logReq(s zapcore.Level, l *Logger, v ...interface{}) {
	logReqEntry(s, l, fmt.Sprint(v...))
}

func (l *Logger) Debug(v ...interface{}) {
	logReq(zapcore.DebugLevel, l, v...)
}

func (l *Logger) Info(v ...interface{}) {
	logReq(zapcore.InfoLevel, l, v...)
}

func (l *Logger) Print(v ...interface{}) {
	logReq(zapcore.InfoLevel, l, v...)
}

func (l *Logger) Warning(v ...interface{}) {
	logReq(zapcore.WarnLevel, l, v...)
}

func (l *Logger) Error(v ...interface{}) {
	logReq(zapcore.ErrorLevel, l, v...)
}

func (l *Logger) Fatal(v ...interface{}) {
	logReq(zapcore.ErrorLevel, l, v...)
	panic(fmt.Sprint(v...))
}

func logReqf(s zapcore.Level, l *Logger, format string, v ...interface{}) {
	logReqEntry(s, l, fmt.Sprintf(format, v...))
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	logReqf(zapcore.DebugLevel, l, format, v...)
}

func (l *Logger) Infof(format string, v ...interface{}) {
	logReqf(zapcore.InfoLevel, l, format, v...)
}

func (l *Logger) Printf(format string, v ...interface{}) {
	logReqf(zapcore.InfoLevel, l, format, v...)
}

func (l *Logger) Warningf(format string, v ...interface{}) {
	logReqf(zapcore.WarnLevel, l, format, v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	logReqf(zapcore.ErrorLevel, l, format, v...)
}

func (l *Logger) Fatalf(format string, v ...interface{}) {
	logReqf(zapcore.ErrorLevel, l, format, v...)
	panic(fmt.Sprintf(format, v...))
}

func logReqln(s zapcore.Level, l *Logger, v ...interface{}) {
	logReqEntry(s, l, strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l *Logger) Debugln(v ...interface{}) {
	logReqln(zapcore.DebugLevel, l, v...)
}

func (l *Logger) Infoln(v ...interface{}) {
	logReqln(zapcore.InfoLevel, l, v...)
}

func (l *Logger) Println(v ...interface{}) {
	logReqln(zapcore.InfoLevel, l, v...)
}

func (l *Logger) Warningln(v ...interface{}) {
	logReqln(zapcore.WarnLevel, l, v...)
}

func (l *Logger) Errorln(v ...interface{}) {
	logReqln(zapcore.ErrorLevel, l, v...)
}

func (l *Logger) Fatalln(v ...interface{}) {
	logReqln(zapcore.ErrorLevel, l, v...)
	panic(fmt.Sprintln(v...))
}
