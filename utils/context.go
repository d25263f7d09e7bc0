package utils

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type rqIDKey struct{}

const RqIDKey = "rqID"

func GetRequestIDFromCtx(ctx context.Context) string {
	rqID, ok := ctx.Value(rqIDKey{}).(string)
	if !ok {
		return ""
	}
	return rqID
}

func WithRequestID(ctx context.Context, rqID string) context.Context {
	return context.WithValue(ctx, rqIDKey{}, rqID)
}

// CreateCtxWithRqID derives the request context from gin, reusing the id the
// middleware stored or generating a new one.
func CreateCtxWithRqID(c *gin.Context) context.Context {
	rqID := c.GetString(RqIDKey)
	if rqID == "" {
		rqID = uuid.NewString()
	}
	return WithRequestID(c.Request.Context(), rqID)
}

// NewJobCtx tags a background job run with its own request id.
func NewJobCtx(ctx context.Context) context.Context {
	return WithRequestID(ctx, uuid.NewString())
}
