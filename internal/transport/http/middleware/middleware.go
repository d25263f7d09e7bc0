package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/KotFed0t/quote_server/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()

		rqID := uuid.NewString()
		c.Set(utils.RqIDKey, rqID)
		c.Header("X-Request-Id", rqID)

		slog.Info(
			"start request",
			slog.String("rqID", rqID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
		)

		defer func() {
			slog.Info(
				"request finished",
				slog.String("rqID", rqID),
				slog.Int("status", c.Writer.Status()),
				slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
			)
		}()

		c.Next()
	}
}

// Recover answers 500 instead of dropping the connection when a handler panics.
func Recover() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, r any) {
		slog.Error("Panic recovered in handler", slog.String("rqID", c.GetString(utils.RqIDKey)), slog.Any("panic", r))
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}
