package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/standup-agent/internal/a2a"
	"go.uber.org/zap"
)

const rpcIDKey = "rpc_id"

// MarkRPC records that the current request speaks JSON-RPC so a later panic
// is answered in the same format.
func MarkRPC(c *gin.Context, id any) {
	c.Set(rpcIDKey, rpcMark{id: id})
}

type rpcMark struct{ id any }

// Recovery turns a panic into -32603 (HTTP 200) for JSON-RPC requests and a
// flat 500 otherwise.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			log.Error("panic recovered",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", RequestIDFrom(c)),
				zap.String("panic", fmt.Sprint(rec)),
				zap.Stack("stack"),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			if v, ok := c.Get(rpcIDKey); ok {
				mark, _ := v.(rpcMark)
				c.AbortWithStatusJSON(http.StatusOK, a2a.BuildErrorResponse(mark.id, a2a.CodeInternalError, "Internal error"))
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, a2a.SimpleError{Error: "internal server error"})
		}()
		c.Next()
	}
}
