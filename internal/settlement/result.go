package settlement

import (
	"github.com/shopspring/decimal"

	"dice-casino-bot/internal/model"
)

// Kind classifies a failed or refused operation.
type Kind string

// Failure kinds. KindNone marks a successful result.
const (
	KindNone              Kind = ""
	KindConfiguration     Kind = "configuration_error"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindProvider          Kind = "provider_error"
	KindUnresolvedPayment Kind = "unresolved_payment"
	KindInvalidRequest    Kind = "invalid_request"
)

// PaymentStatus is the outcome of a payment notification.
type PaymentStatus string

// Payment statuses.
const (
	PaymentSettled       PaymentStatus = "settled"
	PaymentNotApplicable PaymentStatus = "not_applicable"
	PaymentRejected      PaymentStatus = "rejected"
)

// PaymentResult describes what a payment notification did. For settled
// payments GameType and BetChoice carry the intent parsed from the comment.
type PaymentResult struct {
	Status        PaymentStatus
	Success       bool
	Kind          Kind
	Message       string
	UserID        model.UserID
	Amount        decimal.Decimal
	Asset         string
	InvoiceID     int64
	TransactionID string
	GameType      model.GameType
	BetChoice     model.BetChoice
	Balance       decimal.Decimal
}

// WithdrawalStatus is the outcome of a withdrawal request.
type WithdrawalStatus string

// Withdrawal statuses.
const (
	WithdrawalCompleted         WithdrawalStatus = "completed"
	WithdrawalFailed            WithdrawalStatus = "failed"
	WithdrawalInsufficientFunds WithdrawalStatus = "insufficient_funds"
	WithdrawalRejected          WithdrawalStatus = "rejected"
)

// WithdrawalResult describes a withdrawal attempt. Balance is the balance
// after the attempt (after compensation on failure).
type WithdrawalResult struct {
	Status        WithdrawalStatus
	Success       bool
	Kind          Kind
	Message       string
	TransactionID string
	TransferID    int64
	Amount        decimal.Decimal
	NetAmount     decimal.Decimal
	Fee           decimal.Decimal
	Destination   string
	Balance       decimal.Decimal
}

// DepositResult carries the link a user pays to top up.
type DepositResult struct {
	Success       bool
	Kind          Kind
	Message       string
	TransactionID string
	InvoiceID     int64
	PayURL        string
	// Fallback is set when PayURL is the static invoice link rather than
	// an invoice created for this deposit.
	Fallback bool
}

// InvoiceStatus is the provider-side state of an invoice.
type InvoiceStatus struct {
	Success   bool
	Kind      Kind
	Message   string
	InvoiceID int64
	Status    string
	Paid      bool
	Amount    decimal.Decimal
	Asset     string
}

// ConnectionResult is the outcome of the connectivity self-test.
type ConnectionResult struct {
	Success     bool
	Kind        Kind
	Message     string
	AppID       int64
	AppName     string
	BotUsername string
}
