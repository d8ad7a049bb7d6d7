package logger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/orgfoundry/account-controller/common"
)

const (
	// CtxLoggerKey is how request values are stored/retrieved.
	CtxLoggerKey = "app-logger"

	logLevelEnv = "LOG_LEVEL"
)

// Well known label keys set by handlers.
const (
	LabelAccountID = "accountId"
	LabelEmail     = "email"
	LabelOwnerGUID = "ownerGuid"
	LabelTrigger   = "trigger"
)

var base *zap.SugaredLogger

type Provider func(ctx context.Context) ILogger

type Logging struct {
}

// NewLogging initializes the process-wide zap logger the request loggers
// write through.
func NewLogging(ctx context.Context) (*Logging, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(common.GetEnv(logLevelEnv, "info"))); err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)

	if common.IsLocalhost {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	l, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}

	base = l.Sugar()

	return &Logging{}, nil
}

// Logger returns the logger that was stored inside the context.
func (l *Logging) Logger(ctx context.Context) ILogger {
	return FromContext(ctx)
}

// NewLogger sets gin.Context with a new logger carrying a fresh trace id.
func NewLogger(ctx *gin.Context) (*Logger, error) {
	l := newDefaultLogger()

	var h string
	if ctx.Request != nil {
		h = ctx.Request.Header.Get("X-Amzn-Trace-Id")
	}

	if h != "" {
		l.trace = h
	}

	ctx.Set(CtxLoggerKey, l)

	return l, nil
}

// FromContext returns the logger that was stored in context.
// If there isn't logger stored, returns a new logger.
func FromContext(ctx context.Context) ILogger {
	if l, ok := ctx.Value(CtxLoggerKey).(*Logger); ok {
		return l
	}

	return newDefaultLogger()
}

func getTrace(started time.Time, id string) string {
	return fmt.Sprintf("%d-%s", started.UnixNano(), id)
}
