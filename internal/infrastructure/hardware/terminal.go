package hardware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bottega/internal/core/types"
	"bottega/internal/domain/payment"
)

// SumUpConfig holds the card cloud API settings.
type SumUpConfig struct {
	BaseURL       string
	MerchantEmail string
	APIKey        string
	Timeout       time.Duration
}

// SumUpClient implements payment.CardClient against the SumUp-style cloud
// checkout API.
type SumUpClient struct {
	config SumUpConfig
	client *http.Client
}

// NewSumUpClient creates the cloud card client.
func NewSumUpClient(config SumUpConfig) *SumUpClient {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &SumUpClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type sumUpRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	MerchantRef string `json:"checkout_reference"`
	Email       string `json:"pay_to_email"`
}

type sumUpResponse struct {
	Success         bool   `json:"success"`
	TransactionCode string `json:"transactionCode"`
	Message         string `json:"message"`
}

// Authorize implements payment.CardClient.
func (c *SumUpClient) Authorize(ctx context.Context, amount types.Money, merchantRef string) (payment.Approval, error) {
	payload, err := json.Marshal(sumUpRequest{
		Amount:      amount.StringFixed(2),
		Currency:    "EUR",
		MerchantRef: merchantRef,
		Email:       c.config.MerchantEmail,
	})
	if err != nil {
		return payment.Approval{}, fmt.Errorf("encode checkout: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v0.1/checkouts", bytes.NewReader(payload))
	if err != nil {
		return payment.Approval{}, fmt.Errorf("build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return payment.Approval{}, fmt.Errorf("checkout call: %w", err)
	}
	defer resp.Body.Close()

	var out sumUpResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return payment.Approval{}, fmt.Errorf("decode checkout response: %w", err)
	}

	return payment.Approval{
		Approved:        out.Success,
		TransactionCode: out.TransactionCode,
		Message:         out.Message,
	}, nil
}

// TerminalConfig holds the LAN pinpad settings.
type TerminalConfig struct {
	// Address is the pinpad's LAN address, e.g. "192.168.1.60:8080".
	Address string
	Timeout time.Duration

	// PollInterval is how often the client asks the pinpad for the card
	// presentment status.
	PollInterval time.Duration
}

// NetworkTerminal implements payment.TerminalClient over a LAN pinpad's
// HTTP interface. Each call maps to one phase of the authorization state
// machine; context cancellation aborts the in-flight phase.
type NetworkTerminal struct {
	config TerminalConfig
	client *http.Client
}

// NewNetworkTerminal creates the pinpad client.
func NewNetworkTerminal(config TerminalConfig) *NetworkTerminal {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 500 * time.Millisecond
	}
	return &NetworkTerminal{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Connect implements payment.TerminalClient.
func (t *NetworkTerminal) Connect(ctx context.Context) error {
	return t.post(ctx, "/session/open", nil, nil)
}

type presentRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	MerchantRef string `json:"merchantRef"`
}

type presentStatus struct {
	CardPresented bool `json:"cardPresented"`
}

// AwaitCard implements payment.TerminalClient. It starts the presentment
// and polls until the cardholder inserts or taps a card.
func (t *NetworkTerminal) AwaitCard(ctx context.Context, amount types.Money, merchantRef string) error {
	err := t.post(ctx, "/session/present", presentRequest{
		Amount:      amount.StringFixed(2),
		Currency:    "EUR",
		MerchantRef: merchantRef,
	}, nil)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(t.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			var status presentStatus
			if err := t.post(ctx, "/session/status", nil, &status); err != nil {
				return err
			}
			if status.CardPresented {
				return nil
			}
		}
	}
}

type processResponse struct {
	Approved        bool   `json:"approved"`
	TransactionCode string `json:"transactionCode"`
	Message         string `json:"message"`
}

// Process implements payment.TerminalClient.
func (t *NetworkTerminal) Process(ctx context.Context) (payment.Approval, error) {
	var out processResponse
	if err := t.post(ctx, "/session/process", nil, &out); err != nil {
		return payment.Approval{}, err
	}
	return payment.Approval{
		Approved:        out.Approved,
		TransactionCode: out.TransactionCode,
		Message:         out.Message,
	}, nil
}

func (t *NetworkTerminal) post(ctx context.Context, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	url := fmt.Sprintf("http://%s%s", t.config.Address, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("terminal %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("terminal %s: status %d", path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}
