package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orgfoundry/account-controller/framework/web"
	"github.com/orgfoundry/account-controller/logger"
	"github.com/orgfoundry/account-controller/orchestrator"
)

type Events interface {
	ProcessEvent(ctx *gin.Context) error
}

type events struct {
	loggerProvider logger.Provider
	dispatcher     *orchestrator.Dispatcher
}

func NewEvents(log logger.Provider, dispatcher *orchestrator.Dispatcher) Events {
	return &events{
		loggerProvider: log,
		dispatcher:     dispatcher,
	}
}

// ProcessEvent feeds the raw body to the dispatcher. The body shape is
// deliberately opaque here; classification lives in the dispatcher.
func (h *events) ProcessEvent(ctx *gin.Context) error {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		return web.NewRequestError(web.ErrBadRequest, http.StatusBadRequest)
	}

	result, err := h.dispatcher.Dispatch(ctx, body)
	if err != nil {
		return err
	}

	return web.Respond(ctx, result, http.StatusOK)
}
