package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/walletd/internal/common"
	"github.com/dmitrijs2005/walletd/internal/server/auth"
)

const (
	ctxUserIDKey   = "userID"
	ctxUserTypeKey = "userType"
)

// requestLogger tags every request with a random id and logs the outcome.
// Only method, route, status, and timing are logged; request bodies carry
// secret material and never reach the log.
func (s *Server) requestLogger(c *gin.Context) {
	id, err := common.MakeRandHexString(8)
	if err != nil {
		id = "unknown"
	}

	start := time.Now()
	c.Next()

	s.logger.Info(c.Request.Context(), "request handled",
		"request_id", id,
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"duration", time.Since(start).String(),
	)
}

// requireToken verifies the bearer token and stashes the subject and
// user_type claims in the request context.
func (s *Server) requireToken(c *gin.Context) {
	header := c.GetHeader(common.AuthorizationHeaderName)

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	userID, userType, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		status, msg := statusFromError(err)
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return
	}

	c.Set(ctxUserIDKey, userID)
	c.Set(ctxUserTypeKey, userType)
	c.Next()
}

func currentUserID(c *gin.Context) string {
	return c.GetString(ctxUserIDKey)
}
