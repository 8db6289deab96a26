// Package settlement reconciles payment provider events and withdrawal
// requests with the user ledger.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"dice-casino-bot/internal/cryptopay"
	"dice-casino-bot/internal/model"
	"dice-casino-bot/internal/payment"
	"dice-casino-bot/internal/pkg/lock"
)

// Accounts is the part of the ledger the engine needs.
type Accounts interface {
	Balance(id model.UserID) decimal.Decimal
	AdjustBalance(ctx context.Context, id model.UserID, delta decimal.Decimal) decimal.Decimal
}

// Provider is the payment provider API.
type Provider interface {
	Configured() bool
	GetMe(ctx context.Context) (*cryptopay.App, error)
	CreateInvoice(ctx context.Context, req cryptopay.CreateInvoiceRequest) (*cryptopay.Invoice, error)
	GetInvoices(ctx context.Context, ids ...int64) ([]cryptopay.Invoice, error)
	Transfer(ctx context.Context, req cryptopay.TransferRequest) (*cryptopay.Transfer, error)
}

// Config holds engine settings.
type Config struct {
	Asset              string
	WithdrawalFee      decimal.Decimal
	FallbackInvoiceURL string
}

// Wallet address rules: a known prefix and a minimum length.
var walletPrefixes = []string{"EQ", "UQ"}

const minWalletLength = 48

// ValidateWalletAddress is a sanity filter for TON wallet addresses.
func ValidateWalletAddress(address string) bool {
	if len(address) < minWalletLength {
		return false
	}
	for _, p := range walletPrefixes {
		if strings.HasPrefix(address, p) {
			return true
		}
	}
	return false
}

// Destination is where a withdrawal goes: a platform account or a wallet.
type Destination struct {
	PlatformUserID int64
	WalletAddress  string
}

// IsPlatform reports whether the destination is a platform account.
func (d Destination) IsPlatform() bool {
	return d.PlatformUserID != 0
}

func (d Destination) String() string {
	if d.IsPlatform() {
		return "CryptoBot: " + strconv.FormatInt(d.PlatformUserID, 10)
	}
	return d.WalletAddress
}

// Engine settles payments and withdrawals. Transactions live only in memory.
type Engine struct {
	accounts Accounts
	provider Provider
	locks    *lock.UserLock[model.UserID]
	cfg      Config
	now      func() time.Time

	mu       sync.Mutex
	txs      map[string]*model.Transaction
	invoices map[int64]struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source for transaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine.
func New(accounts Accounts, provider Provider, locks *lock.UserLock[model.UserID], cfg Config, opts ...Option) *Engine {
	if cfg.Asset == "" {
		cfg.Asset = "TON"
	}
	if locks == nil {
		locks = lock.New[model.UserID]()
	}
	e := &Engine{
		accounts: accounts,
		provider: provider,
		locks:    locks,
		cfg:      cfg,
		now:      time.Now,
		txs:      make(map[string]*model.Transaction),
		invoices: make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Asset returns the asset code used for deposits and withdrawals.
func (e *Engine) Asset() string {
	return e.cfg.Asset
}

// HandleRawNotification decodes a webhook body and settles it.
func (e *Engine) HandleRawNotification(ctx context.Context, body []byte) *PaymentResult {
	update, err := cryptopay.DecodeUpdate(body)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected malformed payment notification")
		return &PaymentResult{
			Status:  PaymentRejected,
			Kind:    KindInvalidRequest,
			Message: err.Error(),
		}
	}
	return e.HandlePaymentNotification(ctx, update)
}

// HandlePaymentNotification credits the payer named in the invoice hidden
// message and returns the game intent parsed from the payer's comment.
func (e *Engine) HandlePaymentNotification(ctx context.Context, update *cryptopay.Update) *PaymentResult {
	if update == nil || update.UpdateType != cryptopay.UpdateTypeInvoicePaid {
		kind := ""
		if update != nil {
			kind = update.UpdateType
		}
		return &PaymentResult{
			Status:  PaymentNotApplicable,
			Message: fmt.Sprintf("update type %q is not handled", kind),
		}
	}

	inv := update.Payload
	md := payment.ParseHiddenMessage(inv.HiddenMessage)
	if !md.HasUserID {
		log.Warn().
			Int64("invoice_id", inv.InvoiceID).
			Str("hidden_message", inv.HiddenMessage).
			Str("amount", inv.Amount.String()).
			Msg("Payment received but user_id not found")
		return &PaymentResult{
			Status:    PaymentRejected,
			Kind:      KindUnresolvedPayment,
			Message:   "payment is not linked to a user",
			Amount:    inv.Amount,
			Asset:     inv.Asset,
			InvoiceID: inv.InvoiceID,
		}
	}

	if !inv.Amount.IsPositive() {
		log.Warn().
			Int64("user_id", int64(md.UserID)).
			Int64("invoice_id", inv.InvoiceID).
			Str("amount", inv.Amount.String()).
			Msg("Rejected payment with non-positive amount")
		return &PaymentResult{
			Status:    PaymentRejected,
			Kind:      KindInvalidRequest,
			Message:   "payment amount must be positive",
			UserID:    md.UserID,
			Amount:    inv.Amount,
			Asset:     inv.Asset,
			InvoiceID: inv.InvoiceID,
		}
	}

	if !e.markInvoice(inv.InvoiceID) {
		log.Info().
			Int64("user_id", int64(md.UserID)).
			Int64("invoice_id", inv.InvoiceID).
			Msg("Ignored duplicate payment notification")
		return &PaymentResult{
			Status:    PaymentNotApplicable,
			Message:   "invoice already settled",
			UserID:    md.UserID,
			InvoiceID: inv.InvoiceID,
		}
	}

	intent := payment.ParseComment(inv.Comment)
	asset := inv.Asset
	if asset == "" {
		asset = e.cfg.Asset
	}

	balance := e.accounts.AdjustBalance(ctx, md.UserID, inv.Amount)

	if md.TransactionID != "" {
		e.completeDeposit(md.TransactionID, inv.Amount, asset, inv.InvoiceID)
	}

	log.Info().
		Int64("user_id", int64(md.UserID)).
		Int64("invoice_id", inv.InvoiceID).
		Str("amount", inv.Amount.String()).
		Str("asset", asset).
		Str("comment", inv.Comment).
		Str("game_type", string(intent.GameType)).
		Str("bet_choice", string(intent.BetChoice)).
		Msg("Payment settled")

	return &PaymentResult{
		Status:        PaymentSettled,
		Success:       true,
		UserID:        md.UserID,
		Amount:        inv.Amount,
		Asset:         asset,
		InvoiceID:     inv.InvoiceID,
		TransactionID: md.TransactionID,
		GameType:      intent.GameType,
		BetChoice:     intent.BetChoice,
		Balance:       balance,
	}
}

// markInvoice records an invoice id and reports whether it was new.
// Invoices without an id are never deduplicated.
func (e *Engine) markInvoice(id int64) bool {
	if id == 0 {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, seen := e.invoices[id]; seen {
		return false
	}
	e.invoices[id] = struct{}{}
	return true
}

func (e *Engine) completeDeposit(txID string, amount decimal.Decimal, asset string, invoiceID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, ok := e.txs[txID]
	if !ok {
		log.Debug().Str("tx_id", txID).Msg("Payment names an unknown transaction")
		return
	}
	tx.Status = model.TxStatusCompleted
	tx.Amount = amount
	tx.NetAmount = amount
	tx.Asset = asset
	tx.InvoiceID = invoiceID
	tx.UpdatedAt = e.now()
}

// RequestWithdrawal debits amount up front, asks the provider to transfer the
// amount minus fee, and credits the full amount back if the transfer fails.
func (e *Engine) RequestWithdrawal(ctx context.Context, userID model.UserID, amount decimal.Decimal, dest Destination) *WithdrawalResult {
	if !amount.IsPositive() {
		return &WithdrawalResult{
			Status:  WithdrawalRejected,
			Kind:    KindInvalidRequest,
			Message: "withdrawal amount must be positive",
			Amount:  amount,
			Balance: e.accounts.Balance(userID),
		}
	}
	if !dest.IsPlatform() && !ValidateWalletAddress(dest.WalletAddress) {
		return &WithdrawalResult{
			Status:  WithdrawalRejected,
			Kind:    KindInvalidRequest,
			Message: "invalid wallet address",
			Amount:  amount,
			Balance: e.accounts.Balance(userID),
		}
	}

	e.locks.Lock(userID)
	defer e.locks.Unlock(userID)

	balance := e.accounts.Balance(userID)
	if balance.LessThan(amount) {
		return &WithdrawalResult{
			Status:  WithdrawalInsufficientFunds,
			Kind:    KindInsufficientFunds,
			Message: fmt.Sprintf("insufficient funds: balance %s %s", balance, e.cfg.Asset),
			Amount:  amount,
			Balance: balance,
		}
	}

	if !e.provider.Configured() {
		log.Error().Int64("user_id", int64(userID)).Msg("Withdrawal refused: payment provider token not configured")
		return &WithdrawalResult{
			Status:  WithdrawalRejected,
			Kind:    KindConfiguration,
			Message: cryptopay.ErrMissingToken.Error(),
			Amount:  amount,
			Balance: balance,
		}
	}

	fee := e.cfg.WithdrawalFee
	if dest.IsPlatform() {
		fee = decimal.Zero
	}
	net := amount.Sub(fee)
	if !net.IsPositive() {
		return &WithdrawalResult{
			Status:  WithdrawalRejected,
			Kind:    KindInvalidRequest,
			Message: fmt.Sprintf("amount must exceed the withdrawal fee of %s %s", fee, e.cfg.Asset),
			Amount:  amount,
			Fee:     fee,
			Balance: balance,
		}
	}

	// Compensation must run even if the caller gives up.
	bg := context.WithoutCancel(ctx)

	now := e.now()
	tx := &model.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        model.TxTypeWithdrawal,
		Amount:      amount,
		NetAmount:   net,
		Fee:         fee,
		Asset:       e.cfg.Asset,
		Destination: dest.String(),
		Status:      model.TxStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	e.track(tx)

	e.accounts.AdjustBalance(bg, userID, amount.Neg())

	req := cryptopay.TransferRequest{
		Asset:   e.cfg.Asset,
		Amount:  net,
		SpendID: fmt.Sprintf("withdrawal_%d_%s", userID, tx.ID),
	}
	if dest.IsPlatform() {
		req.UserID = dest.PlatformUserID
		req.Comment = fmt.Sprintf("Вывод средств из Casino Bot: %s %s", net, e.cfg.Asset)
	} else {
		req.WalletAddress = dest.WalletAddress
		req.Comment = fmt.Sprintf("Withdrawal for user %d", userID)
	}

	transfer, err := e.provider.Transfer(ctx, req)
	if err != nil {
		after := e.accounts.AdjustBalance(bg, userID, amount)
		e.finish(tx.ID, model.TxStatusFailed, 0, err.Error())

		log.Error().Err(err).
			Int64("user_id", int64(userID)).
			Str("tx_id", tx.ID).
			Str("amount", amount.String()).
			Msg("Withdrawal failed, balance restored")

		kind := KindProvider
		if errors.Is(err, cryptopay.ErrMissingToken) {
			kind = KindConfiguration
		}
		return &WithdrawalResult{
			Status:        WithdrawalFailed,
			Kind:          kind,
			Message:       err.Error(),
			TransactionID: tx.ID,
			Amount:        amount,
			NetAmount:     net,
			Fee:           fee,
			Destination:   tx.Destination,
			Balance:       after,
		}
	}

	e.finish(tx.ID, model.TxStatusCompleted, transfer.TransferID, "")

	log.Info().
		Int64("user_id", int64(userID)).
		Str("tx_id", tx.ID).
		Int64("transfer_id", transfer.TransferID).
		Str("net_amount", net.String()).
		Str("fee", fee.String()).
		Msg("Withdrawal completed")

	return &WithdrawalResult{
		Status:        WithdrawalCompleted,
		Success:       true,
		TransactionID: tx.ID,
		TransferID:    transfer.TransferID,
		Amount:        amount,
		NetAmount:     net,
		Fee:           fee,
		Destination:   tx.Destination,
		Balance:       e.accounts.Balance(userID),
	}
}

// CreateDeposit opens a pending deposit and an invoice linked to it through
// the hidden message. Without a working provider the static invoice link is
// returned; such payments cannot be matched to the user automatically.
func (e *Engine) CreateDeposit(ctx context.Context, userID model.UserID, amount decimal.Decimal) *DepositResult {
	if !amount.IsPositive() {
		return &DepositResult{Kind: KindInvalidRequest, Message: "deposit amount must be positive"}
	}
	if !e.provider.Configured() {
		log.Warn().Int64("user_id", int64(userID)).Msg("Payment provider not configured, using fallback invoice")
		return e.fallbackDeposit(KindConfiguration, cryptopay.ErrMissingToken.Error())
	}

	now := e.now()
	tx := &model.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      model.TxTypeDeposit,
		Amount:    amount,
		NetAmount: amount,
		Fee:       decimal.Zero,
		Asset:     e.cfg.Asset,
		Status:    model.TxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	inv, err := e.provider.CreateInvoice(ctx, cryptopay.CreateInvoiceRequest{
		Asset:       e.cfg.Asset,
		Amount:      amount,
		Description: fmt.Sprintf("Пополнение баланса на %s %s", amount, e.cfg.Asset),
		HiddenMessage: payment.FormatHiddenMessage(payment.Metadata{
			UserID:        userID,
			HasUserID:     true,
			TransactionID: tx.ID,
		}),
		AllowComments: true,
	})
	if err != nil {
		log.Error().Err(err).Int64("user_id", int64(userID)).Msg("Failed to create deposit invoice")
		return e.fallbackDeposit(KindProvider, err.Error())
	}

	tx.InvoiceID = inv.InvoiceID
	e.track(tx)

	log.Info().
		Int64("user_id", int64(userID)).
		Str("tx_id", tx.ID).
		Int64("invoice_id", inv.InvoiceID).
		Str("amount", amount.String()).
		Msg("Deposit invoice created")

	return &DepositResult{
		Success:       true,
		TransactionID: tx.ID,
		InvoiceID:     inv.InvoiceID,
		PayURL:        inv.URL(),
	}
}

func (e *Engine) fallbackDeposit(kind Kind, msg string) *DepositResult {
	res := &DepositResult{Kind: kind, Message: msg}
	if e.cfg.FallbackInvoiceURL != "" {
		res.PayURL = e.cfg.FallbackInvoiceURL
		res.Fallback = true
	}
	return res
}

// CheckInvoice asks the provider for the state of one invoice.
func (e *Engine) CheckInvoice(ctx context.Context, invoiceID int64) *InvoiceStatus {
	if !e.provider.Configured() {
		return &InvoiceStatus{Kind: KindConfiguration, Message: cryptopay.ErrMissingToken.Error(), InvoiceID: invoiceID}
	}

	items, err := e.provider.GetInvoices(ctx, invoiceID)
	if err != nil {
		log.Error().Err(err).Int64("invoice_id", invoiceID).Msg("Failed to check invoice")
		return &InvoiceStatus{Kind: KindProvider, Message: err.Error(), InvoiceID: invoiceID}
	}
	if len(items) == 0 {
		return &InvoiceStatus{Kind: KindInvalidRequest, Message: "invoice not found", InvoiceID: invoiceID}
	}

	inv := items[0]
	return &InvoiceStatus{
		Success:   true,
		InvoiceID: inv.InvoiceID,
		Status:    inv.Status,
		Paid:      inv.Status == cryptopay.InvoicePaid,
		Amount:    inv.Amount,
		Asset:     inv.Asset,
	}
}

// TestConnection checks the provider credentials with a getMe call.
func (e *Engine) TestConnection(ctx context.Context) *ConnectionResult {
	if !e.provider.Configured() {
		return &ConnectionResult{Kind: KindConfiguration, Message: cryptopay.ErrMissingToken.Error()}
	}

	app, err := e.provider.GetMe(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Payment provider connection test failed")
		return &ConnectionResult{Kind: KindProvider, Message: err.Error()}
	}
	return &ConnectionResult{
		Success:     true,
		AppID:       app.AppID,
		AppName:     app.Name,
		BotUsername: app.PaymentProcessingBotUsername,
	}
}

// Transaction returns a copy of a tracked transaction.
func (e *Engine) Transaction(id string) (model.Transaction, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, ok := e.txs[id]
	if !ok {
		return model.Transaction{}, false
	}
	return *tx, true
}

// History returns up to limit transactions of a user, newest first.
// A non-positive limit returns all of them.
func (e *Engine) History(userID model.UserID, limit int) []model.Transaction {
	e.mu.Lock()
	out := make([]model.Transaction, 0)
	for _, tx := range e.txs {
		if tx.UserID == userID {
			out = append(out, *tx)
		}
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (e *Engine) track(tx *model.Transaction) {
	e.mu.Lock()
	e.txs[tx.ID] = tx
	e.mu.Unlock()
}

func (e *Engine) finish(id string, status model.TxStatus, transferID int64, errMsg string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, ok := e.txs[id]
	if !ok {
		return
	}
	tx.Status = status
	tx.TransferID = transferID
	tx.Error = errMsg
	tx.UpdatedAt = e.now()
}
