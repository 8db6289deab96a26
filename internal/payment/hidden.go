package payment

import (
	"strconv"
	"strings"

	"dice-casino-bot/internal/model"
)

const (
	keyUserID = "user_id:"
	keyTxID   = "txid:"
)

// Metadata is the content of an invoice hidden message,
// formatted as "user_id:<int>,txid:<token>". Both fields are optional.
type Metadata struct {
	UserID        model.UserID
	HasUserID     bool
	TransactionID string
}

// ParseHiddenMessage extracts Metadata. Unknown parts are ignored and a
// user_id that is not an integer counts as absent.
func ParseHiddenMessage(text string) Metadata {
	var md Metadata
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, keyUserID):
			raw := strings.TrimSpace(strings.TrimPrefix(part, keyUserID))
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			md.UserID = model.UserID(id)
			md.HasUserID = true
		case strings.HasPrefix(part, keyTxID):
			md.TransactionID = strings.TrimSpace(strings.TrimPrefix(part, keyTxID))
		}
	}
	return md
}

// FormatHiddenMessage renders md in the form ParseHiddenMessage reads.
func FormatHiddenMessage(md Metadata) string {
	parts := make([]string, 0, 2)
	if md.HasUserID {
		parts = append(parts, keyUserID+strconv.FormatInt(int64(md.UserID), 10))
	}
	if md.TransactionID != "" {
		parts = append(parts, keyTxID+md.TransactionID)
	}
	return strings.Join(parts, ",")
}
