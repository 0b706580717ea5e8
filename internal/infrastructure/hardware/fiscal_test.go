package hardware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bottega/internal/core/entity"
	"bottega/internal/core/id"
	"bottega/internal/core/types"
	"bottega/internal/domain/documents/sale"
	"bottega/internal/domain/payment"
)

func receiptSale() *sale.Sale {
	return &sale.Sale{
		BaseDocument:  entity.NewBaseDocument(),
		Number:        "SC-2024-00001",
		Date:          time.Now(),
		Total:         types.MustMoney("40.00"),
		PaymentMethod: payment.MethodCash,
		Items: []sale.SaleItem{{
			ProductID:   id.New(),
			VariantID:   id.New(),
			ProductName: "Cappotto Lana Merino",
			Size:        "M",
			Color:       "Cammello",
			Barcode:     "2000000000013",
			Quantity:    1,
			UnitPrice:   types.MustMoney("40.00"),
		}},
	}
}

func TestPrintReceiptPostsXML(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewEpsonFiscalPrinter(FiscalPrinterConfig{
		Address: strings.TrimPrefix(srv.URL, "http://"),
		Brand:   "Epson",
	})

	res := p.PrintReceipt(context.Background(), receiptSale())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "/cgi-bin/fpmate.cgi", gotPath)
	assert.Contains(t, gotBody, "printerFiscalReceipt")
	assert.Contains(t, gotBody, "Cappotto Lana Merino M Cammello")
	assert.Contains(t, gotBody, `payment="40.00"`)
}

func TestPrintReceiptOfflineIsFailureResult(t *testing.T) {
	p := NewEpsonFiscalPrinter(FiscalPrinterConfig{
		Address: "127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
	})

	res := p.PrintReceipt(context.Background(), receiptSale())
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)
}

func TestPrintReceiptNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewEpsonFiscalPrinter(FiscalPrinterConfig{
		Address: strings.TrimPrefix(srv.URL, "http://"),
	})

	res := p.PrintReceipt(context.Background(), receiptSale())
	assert.False(t, res.Success)
}

func TestNetworkTerminalFullSession(t *testing.T) {
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session/open", "/session/present":
			w.WriteHeader(http.StatusOK)
		case "/session/status":
			polls++
			if polls < 2 {
				io.WriteString(w, `{"cardPresented":false}`)
				return
			}
			io.WriteString(w, `{"cardPresented":true}`)
		case "/session/process":
			io.WriteString(w, `{"approved":true,"transactionCode":"TRM-42","message":"Transazione Approvata"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	term := NewNetworkTerminal(TerminalConfig{
		Address:      strings.TrimPrefix(srv.URL, "http://"),
		PollInterval: 5 * time.Millisecond,
	})

	ctx := context.Background()
	require.NoError(t, term.Connect(ctx))
	require.NoError(t, term.AwaitCard(ctx, types.MustMoney("25.00"), "SC-2024-00002"))

	approval, err := term.Process(ctx)
	require.NoError(t, err)
	assert.True(t, approval.Approved)
	assert.Equal(t, "TRM-42", approval.TransactionCode)
}

func TestNetworkTerminalAwaitCardHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/status" {
			io.WriteString(w, `{"cardPresented":false}`)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	term := NewNetworkTerminal(TerminalConfig{
		Address:      strings.TrimPrefix(srv.URL, "http://"),
		PollInterval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := term.AwaitCard(ctx, types.MustMoney("25.00"), "SC-2024-00003")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSumUpClientAuthorize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0.1/checkouts", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		io.WriteString(w, `{"success":true,"transactionCode":"SMP-1700000000","message":"Transazione Approvata"}`)
	}))
	defer srv.Close()

	c := NewSumUpClient(SumUpConfig{
		BaseURL:       srv.URL,
		MerchantEmail: "negozio@stylenexus.it",
		APIKey:        "key-123",
	})

	approval, err := c.Authorize(context.Background(), types.MustMoney("55.00"), "SC-2024-00004")
	require.NoError(t, err)
	assert.True(t, approval.Approved)
	assert.Equal(t, "SMP-1700000000", approval.TransactionCode)
}
