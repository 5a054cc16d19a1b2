package handlers

import (
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"

	"github.com/nawar-b-tek/booking-app/pkg/apperr"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/guard"
)

func writeError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	status := apperr.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		log.Printf("[http] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	body := gin.H{"error": apperr.Message(err)}
	switch code {
	case codes.Unauthenticated:
		body["redirect"] = guard.LoginPath
	case codes.PermissionDenied:
		body["redirect"] = guard.NotAuthorizedPath
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// stream writes every value of ch as a server-sent event until ch closes or the client leaves.
func stream[T any](c *gin.Context, event string, ch <-chan T) {
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case v, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(event, v)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
