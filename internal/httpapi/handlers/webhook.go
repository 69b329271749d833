package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/standup-agent/internal/a2a"
	"github.com/suPer8Hu/standup-agent/internal/httpapi/middleware"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Webhook accepts both the JSON-RPC envelope and the flat
// {message, session_id} shape and answers in kind.
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		middleware.MarkRPC(c, nil)
		c.JSON(http.StatusOK, a2a.BuildErrorResponse(nil, a2a.CodeInvalidParams, "Invalid request body"))
		return
	}

	env, err := a2a.Decode(body)
	if err != nil {
		h.Log.Warn("undecodable webhook body", zap.Error(err), zap.String("request_id", middleware.RequestIDFrom(c)))
		if errors.Is(err, a2a.ErrInvalidSimple) {
			c.JSON(http.StatusBadRequest, a2a.SimpleError{Error: "invalid request body"})
			return
		}
		id := a2a.PartialID(body)
		middleware.MarkRPC(c, id)
		c.JSON(http.StatusOK, a2a.BuildErrorResponse(id, a2a.CodeInvalidParams, "Invalid JSON-RPC request"))
		return
	}

	if env.IsRPC() {
		h.rpc(c, env.RPC)
		return
	}
	h.simple(c, env.Simple)
}

func (h *Handler) rpc(c *gin.Context, req *a2a.RPCRequest) {
	in := h.Parser.ParseInboundRequest(req)
	middleware.MarkRPC(c, in.RequestID)

	if !a2a.SupportedMethod(in.Method) {
		c.JSON(http.StatusOK, a2a.BuildErrorResponse(in.RequestID, a2a.CodeMethodNotFound, "Method not found: "+in.Method))
		return
	}
	if strings.TrimSpace(in.MessageText) == "" {
		c.JSON(http.StatusOK, a2a.BuildErrorResponse(in.RequestID, a2a.CodeInvalidParams, "Message text is required"))
		return
	}

	reply, err := h.Agent.Handle(c.Request.Context(), in.SessionKey, in.MessageText)
	if err != nil {
		h.Log.Error("agent failed",
			zap.Error(err),
			zap.String("session", in.SessionKey),
			zap.String("request_id", middleware.RequestIDFrom(c)),
		)
		c.JSON(http.StatusOK, a2a.BuildErrorResponse(in.RequestID, a2a.CodeInternalError, "Internal error"))
		return
	}

	c.JSON(http.StatusOK, h.Builder.BuildSuccessResponse(in.RequestID, in.ContextID, reply, in.MessageText, in.MessageID))
}

func (h *Handler) simple(c *gin.Context, req *a2a.SimpleRequest) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		c.JSON(http.StatusBadRequest, a2a.SimpleError{Error: "message is required"})
		return
	}
	session := h.Parser.SimpleSessionKey(req)

	reply, err := h.Agent.Handle(c.Request.Context(), session, text)
	if err != nil {
		h.Log.Error("agent failed",
			zap.Error(err),
			zap.String("session", session),
			zap.String("request_id", middleware.RequestIDFrom(c)),
		)
		c.JSON(http.StatusInternalServerError, a2a.SimpleError{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, a2a.SimpleResponse{Response: reply, SessionID: session})
}
