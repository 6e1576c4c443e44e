package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// InitiateParams is what the payments service supplies when starting a
// gateway checkout. TransactionID is the order id.
type InitiateParams struct {
	TransactionID string
	Amount        int64
	Currency      string
	Channel       string
	Phone         string
	Description   string
	CustomerName  string
}

// InitiateResult is the provider's answer to a checkout initiation.
type InitiateResult struct {
	PaymentURL  string
	ProviderRef string
}

// TransactionStatus is the provider's view of a transaction.
type TransactionStatus struct {
	TransactionID string
	Status        string
	ProviderRef   string
	Amount        int64
	Currency      string
	Reason        string
}

const (
	StatusAccepted = "ACCEPTED"
	StatusRefused  = "REFUSED"
	StatusPending  = "PENDING"
)

// Completed reports whether the provider settled the transaction.
func (s TransactionStatus) Completed() bool {
	return strings.EqualFold(s.Status, StatusAccepted)
}

// Refused reports whether the provider rejected the transaction.
func (s TransactionStatus) Refused() bool {
	return strings.EqualFold(s.Status, StatusRefused)
}

// WebhookNotification is the provider callback payload. The provider posts
// either form-encoded fields or a JSON body depending on the channel, so
// parsing accepts both.
type WebhookNotification struct {
	TransactionID string `json:"cpm_trans_id"`
	SiteID        string `json:"cpm_site_id"`
	Status        string `json:"cpm_trans_status"`
	Amount        int64  `json:"cpm_amount"`
	Currency      string `json:"cpm_currency"`
	ProviderRef   string `json:"cpm_payment_token"`
}

// ParseWebhook decodes a provider notification from an HTTP request. It never
// trusts the carried status; callers must re-verify against the provider.
func ParseWebhook(r *http.Request) (*WebhookNotification, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		var note WebhookNotification
		if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
			return nil, fmt.Errorf("decoding webhook json: %w", err)
		}
		return normalizeWebhook(&note)
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parsing webhook form: %w", err)
	}
	note := WebhookNotification{
		TransactionID: r.PostFormValue("cpm_trans_id"),
		SiteID:        r.PostFormValue("cpm_site_id"),
		Status:        r.PostFormValue("cpm_trans_status"),
		Currency:      r.PostFormValue("cpm_currency"),
		ProviderRef:   r.PostFormValue("cpm_payment_token"),
	}
	if raw := r.PostFormValue("cpm_amount"); raw != "" {
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook amount %q: %w", raw, err)
		}
		note.Amount = amount
	}
	return normalizeWebhook(&note)
}

func normalizeWebhook(note *WebhookNotification) (*WebhookNotification, error) {
	note.TransactionID = strings.TrimSpace(note.TransactionID)
	if note.TransactionID == "" {
		return nil, fmt.Errorf("webhook missing transaction id")
	}
	note.Status = strings.ToUpper(strings.TrimSpace(note.Status))
	return note, nil
}
