package api

import (
	"net/http"                       // HTTP status codes
	"ticketflow/internal/domain"     // Importing domain models
	"ticketflow/internal/middleware" // Caller identity
	"ticketflow/internal/order"      // Reservation and settlement engine

	"github.com/gin-gonic/gin" // Gin web framework
)

// ReserveRequest represents a reservation request
type ReserveRequest struct {
	Items []order.Item `json:"items" binding:"required"` // Lines to reserve
}

// ReserveHandler creates a pending order for the caller
func ReserveHandler(engine *order.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReserveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": "validation"})
			return
		}
		o, err := engine.Reserve(c.Request.Context(), middleware.UserID(c), req.Items)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"order": o})
	}
}

// PayHandler settles the order from the caller's wallet
func PayHandler(engine *order.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := engine.Settle(c.Request.Context(), c.Param("id"), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": o})
	}
}

// GetOrderHandler returns one of the caller's orders with its tickets
func GetOrderHandler(engine *order.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := engine.Get(c.Request.Context(), c.Param("id"), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": o})
	}
}

// OrderStatusHandler returns the short status view, served from cache when possible
func OrderStatusHandler(engine *order.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := engine.Summary(c.Request.Context(), c.Param("id"), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// ListOrdersHandler returns the caller's orders, optionally filtered by ?status=
func ListOrdersHandler(engine *order.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := engine.List(c.Request.Context(), middleware.UserID(c), domain.OrderStatus(c.Query("status")))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}
