package api

import (
	"net/http"                   // HTTP status codes
	"strconv"                    // Path parameter parsing
	"ticketflow/internal/domain" // Error kinds

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

var statusByKind = map[string]int{
	"not_found":          http.StatusNotFound,
	"validation":         http.StatusBadRequest,
	"unauthorized":       http.StatusForbidden,
	"conflict":           http.StatusConflict,
	"insufficient_funds": http.StatusPaymentRequired,
	"expired":            http.StatusGone,
}

// StatusOf maps a core error to its HTTP status
func StatusOf(err error) int {
	if status, ok := statusByKind[domain.Kind(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError writes err with its status. Internal errors are logged and hidden from the client.
func respondError(c *gin.Context, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(), // Route
			"error": err.Error(),  // Error message
		}).Error("Request failed")
		c.JSON(status, gin.H{"error": "Internal server error", "kind": "internal"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": domain.Kind(err)})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}
