// Package hardware contains the register peripherals: the fiscal printer
// client and the payment terminal clients. Everything here sits behind the
// domain ports so a different printer or pinpad brand swaps in without
// touching checkout.
package hardware

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"bottega/internal/domain/documents/sale"
	"bottega/pkg/logger"
)

// FiscalPrinterConfig holds the network printer settings.
type FiscalPrinterConfig struct {
	// Address is the printer's LAN address, e.g. "192.168.1.50".
	Address string
	Brand   string
	Timeout time.Duration
}

// EpsonFiscalPrinter talks to an Epson-style fiscal printer over its XML
// CGI endpoint. It implements sale.FiscalPrinter; failures are returned as
// a result, never as an error, because a committed sale must stand
// regardless of the receipt.
type EpsonFiscalPrinter struct {
	config FiscalPrinterConfig
	client *http.Client
}

// NewEpsonFiscalPrinter creates the printer client.
func NewEpsonFiscalPrinter(config FiscalPrinterConfig) *EpsonFiscalPrinter {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &EpsonFiscalPrinter{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type fiscalReceipt struct {
	XMLName xml.Name        `xml:"printerFiscalReceipt"`
	Begin   struct{}        `xml:"beginFiscalReceipt"`
	Items   []fiscalRecItem `xml:"printRecItem"`
	Total   fiscalRecTotal  `xml:"printRecTotal"`
	End     struct{}        `xml:"endFiscalReceipt"`
}

type fiscalRecItem struct {
	Description string `xml:"description,attr"`
	Quantity    int    `xml:"quantity,attr"`
	UnitPrice   string `xml:"unitPrice,attr"`
}

type fiscalRecTotal struct {
	Payment     string `xml:"payment,attr"`
	Description string `xml:"description,attr"`
}

// PrintReceipt sends the receipt to the printer. Implements
// sale.FiscalPrinter.
func (p *EpsonFiscalPrinter) PrintReceipt(ctx context.Context, s *sale.Sale) sale.PrintResult {
	receipt := fiscalReceipt{
		Total: fiscalRecTotal{
			Payment:     s.Total.StringFixed(2),
			Description: string(s.PaymentMethod),
		},
	}
	for _, it := range s.Items {
		receipt.Items = append(receipt.Items, fiscalRecItem{
			Description: fmt.Sprintf("%s %s %s", it.ProductName, it.Size, it.Color),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.StringFixed(2),
		})
	}

	body, err := xml.Marshal(receipt)
	if err != nil {
		return sale.PrintResult{Success: false, Message: "receipt encoding failed"}
	}

	url := fmt.Sprintf("http://%s/cgi-bin/fpmate.cgi", p.config.Address)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return sale.PrintResult{Success: false, Message: "printer request failed"}
	}
	req.Header.Set("Content-Type", "text/xml")

	resp, err := p.client.Do(req)
	if err != nil {
		logger.Warn(ctx, "fiscal printer unreachable",
			"address", p.config.Address, "brand", p.config.Brand, "error", err)
		return sale.PrintResult{Success: false, Message: "Errore Stampante: Verificare carta/connessione"}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return sale.PrintResult{
			Success: false,
			Message: fmt.Sprintf("Errore Stampante: stato %d", resp.StatusCode),
		}
	}

	return sale.PrintResult{Success: true, Message: "Scontrino Fiscale Emesso"}
}
