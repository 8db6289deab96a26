package cryptopay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// SignatureHeader carries the webhook body signature.
const SignatureHeader = "crypto-pay-api-signature"

// UpdateTypeInvoicePaid is the only update type the API currently sends.
const UpdateTypeInvoicePaid = "invoice_paid"

// Update is a webhook notification.
type Update struct {
	UpdateID    int64      `json:"update_id"`
	UpdateType  string     `json:"update_type"`
	RequestDate *time.Time `json:"request_date,omitempty"`
	Payload     Invoice    `json:"payload"`
}

// DecodeUpdate parses a webhook body.
func DecodeUpdate(body []byte) (*Update, error) {
	var u Update
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("malformed update: %w", err)
	}
	return &u, nil
}

// Sign returns the hex signature the API attaches to body.
// The HMAC key is the SHA-256 of the API token.
func Sign(token string, body []byte) string {
	secret := sha256.Sum256([]byte(token))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature in constant time.
func VerifySignature(token string, body []byte, signature string) bool {
	if token == "" || signature == "" {
		return false
	}
	want, err := hex.DecodeString(Sign(token, body))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}
