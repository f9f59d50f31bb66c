package api

import (
	"net/http"                      // HTTP status codes
	"ticketflow/internal/inventory" // Stock ledger
	"ticketflow/internal/order"     // Check-in

	"github.com/gin-gonic/gin" // Gin web framework
)

// CheckInRequest represents a ticket scanned at the venue
type CheckInRequest struct {
	Code string `json:"code" binding:"required"` // Final ticket code
}

// CreateEventHandler publishes a new event
func CreateEventHandler(stock *inventory.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req inventory.NewEvent
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": "validation"})
			return
		}
		ev, err := stock.CreateEvent(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"event": ev})
	}
}

// CancelEventHandler stops sales of an event
func CancelEventHandler(stock *inventory.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := stock.CancelEvent(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Event cancelled"})
	}
}

// AddTicketTypeHandler adds a stock row to an event
func AddTicketTypeHandler(stock *inventory.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req inventory.NewTicketType
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": "validation"})
			return
		}
		tt, err := stock.AddTicketType(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ticket_type": tt})
	}
}

// UpdateTicketTypeHandler edits name, price or capacity. Units already sold stay sold.
func UpdateTicketTypeHandler(stock *inventory.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req inventory.TicketTypeUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": "validation"})
			return
		}
		tt, err := stock.UpdateTicketType(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ticket_type": tt})
	}
}

// GetTicketTypeHandler returns a stock row with its current availability
func GetTicketTypeHandler(stock *inventory.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tt, err := stock.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ticket_type": tt})
	}
}

// CheckInHandler redeems a ticket at the venue
func CheckInHandler(engine *order.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckInRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": "validation"})
			return
		}
		ticket, err := engine.CheckIn(c.Request.Context(), req.Code)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ticket": ticket})
	}
}
