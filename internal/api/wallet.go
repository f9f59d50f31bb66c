package api

import (
	"encoding/json"                  // Gateway notification decoding
	"net/http"                       // HTTP status codes
	"ticketflow/internal/domain"     // Importing domain models
	"ticketflow/internal/middleware" // Caller identity
	"ticketflow/internal/utils"      // Signature verification
	"ticketflow/internal/wallet"     // Wallet ledger

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Money
)

// DepositRequest represents a top-up the caller is about to pay at the gateway
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"` // Deposit amount
}

// ConfirmDepositRequest carries an admin's verdict on a pending top-up
type ConfirmDepositRequest struct {
	Approved *bool `json:"approved" binding:"required"` // Gateway result
}

// GatewayNotification is the payment gateway's signed result for a top-up
type GatewayNotification struct {
	ReferenceID string `json:"reference_id"` // Reference issued by RequestDeposit
	Approved    bool   `json:"approved"`     // Whether the payment went through
}

// SignatureHeader carries the gateway's HMAC of the notification body
const SignatureHeader = "X-Signature"

// RefundRequest represents an admin refund to a user's wallet
type RefundRequest struct {
	UserID      uint            `json:"user_id" binding:"required"`      // Credited user
	Amount      decimal.Decimal `json:"amount"`                          // Refund amount
	ReferenceID string          `json:"reference_id" binding:"required"` // Refunded order code or ticket
	Description string          `json:"description"`                     // Reason
}

// GetWalletHandler returns the caller's wallet. A user who never transacted sees a zero balance.
func GetWalletHandler(wallets *wallet.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		w, err := wallets.Wallet(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"wallet": w})
	}
}

// DepositHandler records a pending top-up for the caller. The wallet is credited only when the
// gateway or an admin confirms the returned reference.
func DepositHandler(wallets *wallet.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DepositRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": "validation"})
			return
		}
		entry, err := wallets.RequestDeposit(c.Request.Context(), middleware.UserID(c), req.Amount)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"transaction": entry})
	}
}

// ConfirmDepositHandler lets an admin settle a pending top-up by reference
func ConfirmDepositHandler(wallets *wallet.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConfirmDepositRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": "validation"})
			return
		}
		entry, err := wallets.ConfirmDeposit(c.Request.Context(), c.Param("reference"), *req.Approved)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transaction": entry})
	}
}

// DepositWebhookHandler settles a top-up from a gateway notification signed with secret
func DepositWebhookHandler(wallets *wallet.Ledger, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil || !utils.VerifySignature(body, c.GetHeader(SignatureHeader), secret) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}
		var note GatewayNotification
		if err := json.Unmarshal(body, &note); err != nil || note.ReferenceID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification", "kind": "validation"})
			return
		}
		entry, err := wallets.ConfirmDeposit(c.Request.Context(), note.ReferenceID, note.Approved)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transaction": entry})
	}
}

// RefundHandler credits a user's wallet on behalf of an admin
func RefundHandler(wallets *wallet.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefundRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": "validation"})
			return
		}
		entry, err := wallets.ApplyTransaction(c.Request.Context(), req.UserID, wallet.Entry{
			Amount:      req.Amount,
			Type:        domain.TxRefund,
			ReferenceID: req.ReferenceID,
			Description: req.Description,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transaction": entry})
	}
}

// GetTransactionHistoryHandler returns the caller's ledger entries, paginated by page and page_size
func GetTransactionHistoryHandler(wallets *wallet.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := wallets.History(c.Request.Context(), middleware.UserID(c), queryInt(c, "page", 1), queryInt(c, "page_size", 20))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}
