// Package handler exposes the chat pipeline over HTTP.
package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shopchat_backend/internal/chat/agent"
	"shopchat_backend/internal/chat/transport"
	"shopchat_backend/platform/apperr"
	"shopchat_backend/platform/httpkit"
	"shopchat_backend/platform/validator"
)

// Handler serves the chat endpoint.
type Handler struct {
	dispatcher *agent.Dispatcher
	validator  *validator.Validator
}

// New creates the chat handler.
func New(dispatcher *agent.Dispatcher, val *validator.Validator) *Handler {
	return &Handler{dispatcher: dispatcher, validator: val}
}

// RegisterRoutes mounts the chat routes on the given group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/chat", h.Chat)
}

// Chat handles one conversational turn.
func (h *Handler) Chat(c *gin.Context) {
	var req transport.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(validator.Describe(err)))
		return
	}

	reply, err := h.dispatcher.Handle(c.Request.Context(), req.ChatID, transport.ToTurns(req.Messages))
	if err != nil {
		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			appErr = apperr.Wrap(apperr.KindInternal, "chat processing failed", err)
		}
		httpkit.HandleError(c, appErr)
		return
	}

	httpkit.OK(c, transport.FromReply(reply))
}
