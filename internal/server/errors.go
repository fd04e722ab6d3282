package server

import (
	"errors"
	"net/http"

	"github.com/dqtoy/crazy-eights/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidJSON     = errors.New("invalid json")
	ErrInvalidRules    = errors.New("invalid house rules")
	ErrMissingToken    = errors.New("missing token")
	ErrSeatMismatch    = errors.New("token is for another session")
	ErrUnavailable     = errors.New("backing store not configured")
)

func writeAPIError(c *gin.Context, log logrus.FieldLogger, err error) {
	switch {
	case err == nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	case errors.Is(err, ErrSessionNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, ErrInvalidJSON):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
	case errors.Is(err, ErrInvalidRules):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrMissingToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
	case errors.Is(err, auth.ErrInvalidToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	case errors.Is(err, ErrSeatMismatch):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, ErrUnavailable):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		// Unknown/internal errors: log details, return generic message.
		log.WithError(err).WithField("path", c.FullPath()).Error("internal error")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
