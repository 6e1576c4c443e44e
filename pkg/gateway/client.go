package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/moussakone/librio-backend/pkg/config"
	pkgerrors "github.com/moussakone/librio-backend/pkg/errors"
	"github.com/moussakone/librio-backend/pkg/logger"
)

var (
	errAPIKeyRequired  = errors.New("gateway api key is required")
	errSiteIDRequired  = errors.New("gateway site id is required")
	errBaseURLRequired = errors.New("gateway base url is required")
	errLoggerRequired  = errors.New("gateway logger is required")
)

// Client talks to the hosted mobile-money payment provider. All credentials
// come from config so tests can point it at a fake provider.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	siteID        string
	notifyURL     string
	returnURL     string
	verifyRetries int
	logger        *logger.Logger
}

// NewClient initializes the provider wrapper and validates the credentials.
func NewClient(cfg config.GatewayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	siteID := strings.TrimSpace(cfg.SiteID)
	if siteID == "" {
		return nil, errSiteIDRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		apiKey:        apiKey,
		siteID:        siteID,
		notifyURL:     cfg.NotifyURL,
		returnURL:     cfg.ReturnURL,
		verifyRetries: cfg.VerifyRetries,
		logger:        logg,
	}, nil
}

// SiteID returns the configured provider site id.
func (c *Client) SiteID() string {
	if c == nil {
		return ""
	}
	return c.siteID
}

type initiateRequest struct {
	APIKey        string `json:"apikey"`
	SiteID        string `json:"site_id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Channels      string `json:"channels"`
	CustomerPhone string `json:"customer_phone_number,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	Description   string `json:"description,omitempty"`
	NotifyURL     string `json:"notify_url"`
	ReturnURL     string `json:"return_url"`
}

type initiateResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		PaymentURL   string `json:"payment_url"`
		PaymentToken string `json:"payment_token"`
	} `json:"data"`
}

// Initiate starts a hosted checkout for the transaction and returns the URL
// the buyer must be redirected to.
func (c *Client) Initiate(ctx context.Context, params InitiateParams) (*InitiateResult, error) {
	if params.TransactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	if params.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	body := initiateRequest{
		APIKey:        c.apiKey,
		SiteID:        c.siteID,
		TransactionID: params.TransactionID,
		Amount:        params.Amount,
		Currency:      params.Currency,
		Channels:      params.Channel,
		CustomerPhone: params.Phone,
		CustomerName:  params.CustomerName,
		Description:   params.Description,
		NotifyURL:     c.notifyURL,
		ReturnURL:     c.returnURL,
	}

	c.log(ctx, "request", "initiate_payment", map[string]any{
		"transaction_id": params.TransactionID,
		"amount":         params.Amount,
		"channel":        params.Channel,
	})

	var resp initiateResponse
	if err := c.post(ctx, "/v2/payment", body, &resp); err != nil {
		c.log(ctx, "error", "initiate_payment", map[string]any{"error": err.Error()})
		return nil, err
	}

	if resp.Code != "201" && resp.Code != "00" {
		c.log(ctx, "error", "initiate_payment", map[string]any{"code": resp.Code, "message": resp.Message})
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gateway refused initiation: %s", resp.Message))
	}
	if resp.Data.PaymentURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway returned no payment url")
	}

	c.log(ctx, "response", "initiate_payment", map[string]any{
		"transaction_id": params.TransactionID,
		"provider_ref":   resp.Data.PaymentToken,
	})
	return &InitiateResult{
		PaymentURL:  resp.Data.PaymentURL,
		ProviderRef: resp.Data.PaymentToken,
	}, nil
}

type verifyRequest struct {
	APIKey        string `json:"apikey"`
	SiteID        string `json:"site_id"`
	TransactionID string `json:"transaction_id"`
}

type verifyResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status       string `json:"status"`
		Amount       int64  `json:"amount"`
		Currency     string `json:"currency"`
		PaymentToken string `json:"payment_token"`
	} `json:"data"`
}

// Verify asks the provider for the authoritative status of a transaction.
// Transient failures are retried with backoff; the answer is what confirmation
// decisions are made from, never the webhook body.
func (c *Client) Verify(ctx context.Context, transactionID string) (*TransactionStatus, error) {
	if transactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	body := verifyRequest{
		APIKey:        c.apiKey,
		SiteID:        c.siteID,
		TransactionID: transactionID,
	}

	backoff := retry.WithMaxRetries(uint64(max(c.verifyRetries, 0)), retry.NewExponential(200*time.Millisecond))

	var resp verifyResponse
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.post(ctx, "/v2/payment/check", body, &resp); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		c.log(ctx, "error", "verify_transaction", map[string]any{"transaction_id": transactionID, "error": err.Error()})
		return nil, err
	}

	status := &TransactionStatus{
		TransactionID: transactionID,
		Status:        strings.ToUpper(strings.TrimSpace(resp.Data.Status)),
		ProviderRef:   resp.Data.PaymentToken,
		Amount:        resp.Data.Amount,
		Currency:      resp.Data.Currency,
		Reason:        resp.Message,
	}
	c.log(ctx, "response", "verify_transaction", map[string]any{
		"transaction_id": transactionID,
		"status":         status.Status,
	})
	return status, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding gateway request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building gateway request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling payment gateway")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading gateway response")
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gateway returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gateway rejected request: %d %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding gateway response")
	}
	return nil
}

func (c *Client) log(ctx context.Context, stage, operation string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	meta := map[string]any{"provider": "gateway", "stage": stage, "operation": operation}
	for k, v := range fields {
		meta[k] = v
	}
	c.logger.Info(c.logger.WithFields(ctx, meta), "gateway "+operation)
}
