package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analysisServer(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, _ := json.Marshal(map[string]string{"text": text})
		w.Header().Set("Content-Type", "application/json")
		w.Write(resp)
	}))
}

func testClient(srv *httptest.Server) *Client {
	return NewClient(Config{
		BaseURL:         srv.URL,
		APIKey:          "key-123",
		Model:           "vision-large",
		DefaultCategory: "Donna",
	})
}

func TestAnalyzeProductImageStripsMarkdownFences(t *testing.T) {
	srv := analysisServer(t, "```json\n{\"name\":\"Giacca Denim\",\"category\":\"Uomo\",\"material\":\"Denim\",\"colors\":[\"Blu\"]}\n```")
	defer srv.Close()

	analysis, err := testClient(srv).AnalyzeProductImage(context.Background(), "aW1n")
	require.NoError(t, err)
	assert.Equal(t, "Giacca Denim", analysis.Name)
	assert.Equal(t, "Uomo", analysis.Category)
	assert.Equal(t, []string{"Blu"}, analysis.DetectedColors)
}

func TestAnalyzeProductImageCategoryFallback(t *testing.T) {
	srv := analysisServer(t, `{"name":"Sciarpa","category":"Inverno"}`)
	defer srv.Close()

	analysis, err := testClient(srv).AnalyzeProductImage(context.Background(), "aW1n")
	require.NoError(t, err)
	assert.Equal(t, "Donna", analysis.Category, "unknown category falls back to default")
}

func TestNormalizeDefaults(t *testing.T) {
	a := &ProductAnalysis{}
	a.Normalize("Accessori")

	assert.Equal(t, "Nuovo Articolo", a.Name)
	assert.Equal(t, "Accessori", a.Category)
	assert.Equal(t, []string{"S", "M", "L"}, a.SuggestedSizes)
}

func TestAnalyzeProductImageMalformedJSON(t *testing.T) {
	srv := analysisServer(t, "Ecco la tua analisi: il capo sembra una giacca.")
	defer srv.Close()

	_, err := testClient(srv).AnalyzeProductImage(context.Background(), "aW1n")
	require.Error(t, err)
}

func TestScanInvoiceStrictDate(t *testing.T) {
	srv := analysisServer(t, `{"invoiceNumber":"INV-77","date":"02/05/2024","items":[{"productName":"Cappotto","quantity":10,"costPrice":18.5}]}`)
	defer srv.Close()

	_, err := testClient(srv).ScanInvoice(context.Background(), "aW1n")
	require.Error(t, err, "non-ISO date must be rejected")
}

func TestScanInvoiceValid(t *testing.T) {
	srv := analysisServer(t, `{"invoiceNumber":"INV-77","date":"2024-05-02","items":[{"productName":"Cappotto","quantity":10,"costPrice":18.5,"barcode":"2000000000013"}]}`)
	defer srv.Close()

	scan, err := testClient(srv).ScanInvoice(context.Background(), "aW1n")
	require.NoError(t, err)
	assert.Equal(t, "INV-77", scan.InvoiceNumber)
	assert.Equal(t, 2024, scan.ParsedDate().Year())
	require.Len(t, scan.Items, 1)
	assert.Equal(t, 10, scan.Items[0].Quantity)
}

func TestScanInvoiceRejectsNonPositiveQuantity(t *testing.T) {
	scan := &InvoiceScan{
		InvoiceNumber: "INV-77",
		Date:          "2024-05-02",
		Items:         []ScannedItem{{ProductName: "Cappotto", Quantity: 0}},
	}
	require.Error(t, scan.Validate())
}

func TestGenerateMarketingCopy(t *testing.T) {
	srv := analysisServer(t, "Scopri il nuovo Cappotto Lana Merino! ✨ Passa in negozio oggi.")
	defer srv.Close()

	text, err := testClient(srv).GenerateMarketingCopy(context.Background(), CopyRequest{
		ProductName:    "Cappotto Lana Merino",
		TargetAudience: "Donne 30-50",
		Tone:           "Elegante",
	})
	require.NoError(t, err)
	assert.Contains(t, text, "Cappotto Lana Merino")
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"})

	_, err := c.GenerateMarketingCopy(context.Background(), CopyRequest{ProductName: "X"})
	require.Error(t, err)
}

func TestStripCodeFences(t *testing.T) {
	in := "```json\n{\"a\":1}\n```"
	assert.Equal(t, `{"a":1}`, stripCodeFences(in))
	assert.Equal(t, `{"a":1}`, stripCodeFences(`{"a":1}`))
}
