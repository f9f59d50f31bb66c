package utils

import (
	"crypto/hmac"   // Keyed hashing
	"crypto/sha512" // Digest used by the payment gateway
	"encoding/hex"  // Signature encoding
)

// SignPayload returns the hex HMAC-SHA512 of body, as the payment gateway signs its notifications
func SignPayload(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches body. An empty secret never verifies.
func VerifySignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	want, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}
