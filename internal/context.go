// Package internal carries per-request state between the middleware
// layers and the response writers.
package internal

import (
	"time"

	"github.com/gin-gonic/gin"
)

// CtxDataKey is the gin context key the request state lives under.
const CtxDataKey = "app-context"

// Data is the state tracked for one request: the trace id stamped on
// log lines and error reports, the status code the responder recorded,
// and when handling started.
type Data struct {
	TraceID    string
	StatusCode int
	Now        time.Time
}

// ContextWithData attaches request state to the gin context.
func ContextWithData(ctx *gin.Context, data *Data) {
	ctx.Set(CtxDataKey, data)
}

// DataFromContext retrieves the request state, if any was attached.
func DataFromContext(ctx *gin.Context) (*Data, bool) {
	v, ok := ctx.Value(CtxDataKey).(*Data)
	return v, ok
}
