// Package cryptopay is a small client for the Crypto Pay API used for
// deposits and withdrawals, plus the webhook update types it sends.
package cryptopay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://pay.crypt.bot/api"

const tokenHeader = "Crypto-Pay-API-Token"

// ErrMissingToken is returned by every call when no API token is configured.
var ErrMissingToken = errors.New("crypto pay token is not configured")

// APIError is a non-ok response reported by the API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Name
	}
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Sprintf("crypto pay api error %d: %s", e.Code, msg)
}

type envelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *APIError       `json:"error"`
}

// Client calls the Crypto Pay API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another endpoint (testnet or a test server).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// NewClient creates a client for the given API token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API token is present.
func (c *Client) Configured() bool {
	return c.token != ""
}

// App describes the API application.
type App struct {
	AppID                        int64  `json:"app_id"`
	Name                         string `json:"name"`
	PaymentProcessingBotUsername string `json:"payment_processing_bot_username"`
}

// GetMe returns information about the application, used as a connectivity check.
func (c *Client) GetMe(ctx context.Context) (*App, error) {
	var app App
	if err := c.call(ctx, "getMe", nil, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// Invoice statuses.
const (
	InvoiceActive  = "active"
	InvoicePaid    = "paid"
	InvoiceExpired = "expired"
)

// Invoice is a payment request. Comment is what the payer typed;
// HiddenMessage is set by the bot when the invoice is created.
type Invoice struct {
	InvoiceID     int64           `json:"invoice_id"`
	Hash          string          `json:"hash,omitempty"`
	Status        string          `json:"status"`
	Asset         string          `json:"asset"`
	Amount        decimal.Decimal `json:"amount"`
	PayURL        string          `json:"pay_url,omitempty"`
	BotInvoiceURL string          `json:"bot_invoice_url,omitempty"`
	Description   string          `json:"description,omitempty"`
	HiddenMessage string          `json:"hidden_message,omitempty"`
	Comment       string          `json:"comment,omitempty"`
	Payload       string          `json:"payload,omitempty"`
	CreatedAt     *time.Time      `json:"created_at,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
}

// URL returns the link a payer should open.
func (i *Invoice) URL() string {
	if i.BotInvoiceURL != "" {
		return i.BotInvoiceURL
	}
	return i.PayURL
}

// CreateInvoiceRequest are the parameters of createInvoice.
type CreateInvoiceRequest struct {
	Asset         string          `json:"asset"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	HiddenMessage string          `json:"hidden_message,omitempty"`
	Payload       string          `json:"payload,omitempty"`
	AllowComments bool            `json:"allow_comments"`
	ExpiresIn     int             `json:"expires_in,omitempty"`
}

// CreateInvoice creates a new invoice.
func (c *Client) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	var inv Invoice
	if err := c.call(ctx, "createInvoice", req, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetInvoices returns the invoices with the given ids.
func (c *Client) GetInvoices(ctx context.Context, ids ...int64) ([]Invoice, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	params := map[string]string{"invoice_ids": strings.Join(parts, ",")}

	var res struct {
		Items []Invoice `json:"items"`
	}
	if err := c.call(ctx, "getInvoices", params, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}

// TransferRequest are the parameters of transfer. Exactly one of UserID and
// WalletAddress is set. SpendID must be unique per attempt.
type TransferRequest struct {
	UserID                  int64           `json:"user_id,omitempty"`
	WalletAddress           string          `json:"wallet_address,omitempty"`
	Asset                   string          `json:"asset"`
	Amount                  decimal.Decimal `json:"amount"`
	SpendID                 string          `json:"spend_id"`
	Comment                 string          `json:"comment,omitempty"`
	DisableSendNotification bool            `json:"disable_send_notification,omitempty"`
}

// Transfer is a completed transfer.
type Transfer struct {
	TransferID  int64           `json:"transfer_id"`
	UserID      int64           `json:"user_id"`
	Asset       string          `json:"asset"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Comment     string          `json:"comment,omitempty"`
}

// Transfer sends coins from the app balance.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	if req.SpendID == "" {
		return nil, errors.New("transfer requires a spend id")
	}
	var tr Transfer
	if err := c.call(ctx, "transfer", req, &tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// call performs one API method. A nil params sends a GET, otherwise a JSON POST.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	if !c.Configured() {
		return ErrMissingToken
	}

	httpMethod := http.MethodGet
	var body io.Reader
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to encode %s params: %w", method, err)
		}
		httpMethod = http.MethodPost
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, c.baseURL+"/"+method, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set(tokenHeader, c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to decode %s response (http %d): %w", method, resp.StatusCode, err)
	}
	if !env.OK || resp.StatusCode != http.StatusOK {
		apiErr := env.Error
		if apiErr == nil {
			apiErr = &APIError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}
