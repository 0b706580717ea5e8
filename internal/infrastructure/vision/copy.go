package vision

import (
	"context"
	"fmt"
	"strings"
)

// CopyRequest describes the marketing text to generate.
type CopyRequest struct {
	ProductName    string
	TargetAudience string
	Tone           string
}

// GenerateMarketingCopy asks the model for a short promotional text. The
// result is plain text for the operator to review; nothing downstream
// consumes it automatically.
func (c *Client) GenerateMarketingCopy(ctx context.Context, req CopyRequest) (string, error) {
	raw, err := c.generate(ctx, generateRequest{
		Model: c.config.Model,
		Prompt: fmt.Sprintf(`Scrivi un breve e accattivante testo di marketing (max 100 parole) per un negozio di abbigliamento.

Prodotto: %s
Target: %s
Tono: %s

Includi emoji pertinenti e call to action. Rispondi in italiano.`,
			req.ProductName, req.TargetAudience, req.Tone),
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		return "", fmt.Errorf("model returned no content")
	}
	return text, nil
}
