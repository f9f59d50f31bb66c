package utils

import (
	"strings" // Upper casing

	"github.com/google/uuid" // Random identifiers
)

// shortCode returns n upper-case hex characters from a random UUID
func shortCode(n int) string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:n])
}

// OrderCode returns a human readable order code
func OrderCode() string {
	return shortCode(8)
}

// ProvisionalTicketCode is stored on tickets of unpaid orders. It can never pass check-in.
func ProvisionalTicketCode() string {
	return "PENDING-" + uuid.NewString()
}

// TicketCode returns a final redemption code carrying all 128 bits of a random UUID, so codes
// cannot be guessed at the door
func TicketCode() string {
	return "EVT-" + shortCode(32)
}

// DepositReference returns the reference a top-up is paid under at the gateway
func DepositReference() string {
	return "DEP-" + shortCode(32)
}

// IsProvisional reports whether code was issued before payment
func IsProvisional(code string) bool {
	return strings.HasPrefix(code, "PENDING-")
}
