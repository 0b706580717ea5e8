// Package vision is the boundary to the image-analysis collaborator.
// Everything that comes back from the model is untrusted input: responses
// are stripped of markdown fences, decoded strictly, and normalized with
// catalog defaults before any domain code sees them.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bottega/internal/core/apperror"
	"bottega/pkg/logger"
)

// Config holds the analysis endpoint settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string

	// DefaultCategory is used when the model answers with a category
	// outside the catalog's set.
	DefaultCategory string

	Timeout time.Duration
}

// Categories the catalog understands. Anything else falls back to the
// configured default.
var validCategories = map[string]struct{}{
	"Uomo":      {},
	"Donna":     {},
	"Bambino":   {},
	"Accessori": {},
}

// ProductAnalysis is the model's reading of a garment photo.
type ProductAnalysis struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Material       string   `json:"material"`
	DetectedColors []string `json:"colors"`
	SuggestedSizes []string `json:"sizes"`
}

// Normalize fills missing fields with usable defaults and forces the
// category into the catalog's set.
func (a *ProductAnalysis) Normalize(defaultCategory string) {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		a.Name = "Nuovo Articolo"
	}
	a.Description = strings.TrimSpace(a.Description)

	a.Category = strings.TrimSpace(a.Category)
	if _, ok := validCategories[a.Category]; !ok {
		a.Category = defaultCategory
	}

	if len(a.SuggestedSizes) == 0 {
		a.SuggestedSizes = []string{"S", "M", "L"}
	}
}

// ScannedItem is one line the model read off an invoice photo.
type ScannedItem struct {
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	CostPrice   float64 `json:"costPrice"`

	// Barcode is a hint only; intake re-resolves it against the catalog.
	Barcode string `json:"barcode,omitempty"`
}

// InvoiceScan is the model's reading of a supplier invoice.
type InvoiceScan struct {
	InvoiceNumber string        `json:"invoiceNumber"`
	Date          string        `json:"date"`
	Items         []ScannedItem `json:"items"`
}

// Validate enforces the strict shape: a parseable YYYY-MM-DD date and
// positive quantities.
func (s *InvoiceScan) Validate() error {
	if strings.TrimSpace(s.InvoiceNumber) == "" {
		return apperror.NewValidation("scanned invoice has no number")
	}
	if _, err := time.Parse("2006-01-02", s.Date); err != nil {
		return apperror.NewValidation("scanned date is not YYYY-MM-DD").
			WithDetail("date", s.Date)
	}
	for i, it := range s.Items {
		if it.Quantity <= 0 {
			return apperror.NewValidation("scanned quantity must be positive").
				WithDetail("lineNo", i+1)
		}
		if it.CostPrice < 0 {
			return apperror.NewValidation("scanned cost cannot be negative").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}

// ParsedDate returns the scan date. Call Validate first.
func (s *InvoiceScan) ParsedDate() time.Time {
	d, _ := time.Parse("2006-01-02", s.Date)
	return d
}

// Client calls the analysis endpoint.
type Client struct {
	config Config
	client *http.Client
}

// NewClient creates the analysis client.
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 45 * time.Second
	}
	if config.DefaultCategory == "" {
		config.DefaultCategory = "Donna"
	}
	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Image  string `json:"image,omitempty"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// AnalyzeProductImage asks the model to describe a garment photo and
// returns the normalized analysis.
func (c *Client) AnalyzeProductImage(ctx context.Context, imageBase64 string) (*ProductAnalysis, error) {
	raw, err := c.generate(ctx, generateRequest{
		Model: c.config.Model,
		Prompt: `Analizza questa immagine di un capo di abbigliamento. Restituisci un oggetto JSON valido con:
name, description, category (una tra "Uomo", "Donna", "Bambino", "Accessori"), material, colors, sizes.
Non includere markdown, solo il JSON grezzo.`,
		Image: imageBase64,
	})
	if err != nil {
		return nil, err
	}

	var analysis ProductAnalysis
	if err := decodeModelJSON(raw, &analysis); err != nil {
		return nil, err
	}
	analysis.Normalize(c.config.DefaultCategory)
	return &analysis, nil
}

// ScanInvoice asks the model to read a supplier invoice photo. The result
// is validated but its barcodes stay hints: intake resolves them against
// the catalog.
func (c *Client) ScanInvoice(ctx context.Context, imageBase64 string) (*InvoiceScan, error) {
	raw, err := c.generate(ctx, generateRequest{
		Model: c.config.Model,
		Prompt: `Leggi questa fattura fornitore. Restituisci un oggetto JSON valido con:
invoiceNumber, date (formato YYYY-MM-DD), items (array di {productName, quantity, costPrice, barcode}).
Non includere markdown, solo il JSON grezzo.`,
		Image: imageBase64,
	})
	if err != nil {
		return nil, err
	}

	var scan InvoiceScan
	if err := decodeModelJSON(raw, &scan); err != nil {
		return nil, err
	}
	if err := scan.Validate(); err != nil {
		return nil, err
	}
	return &scan, nil
}

func (c *Client) generate(ctx context.Context, req generateRequest) (string, error) {
	if c.config.APIKey == "" {
		return "", apperror.NewValidation("analysis API key not configured")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("analysis call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn(ctx, "analysis endpoint error", "status", resp.StatusCode)
		return "", fmt.Errorf("analysis endpoint: status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode analysis response: %w", err)
	}
	return out.Text, nil
}

// decodeModelJSON strips markdown code fences the model tends to wrap its
// answer in, then decodes strictly.
func decodeModelJSON(raw string, v any) error {
	cleaned := stripCodeFences(raw)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return apperror.NewValidation("model returned malformed JSON").WithCause(err)
	}
	return nil
}

func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
