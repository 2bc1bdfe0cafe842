package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/dhruvpathak/finimport/internal/domain"
	"github.com/dhruvpathak/finimport/internal/statement"
)

const (
	// DefaultModel is the Gemini model used for batch categorization.
	DefaultModel = "gemini-2.5-flash"

	// DefaultTimeout bounds the single categorization request. On expiry the
	// outstanding call is abandoned and the caller falls back to rules.
	DefaultTimeout = 30 * time.Second
)

// AIConfig configures the Gemini strategy. The zero value gets sensible
// defaults from NewGeminiClassifier.
type AIConfig struct {
	Model   string
	Timeout time.Duration
}

// GeminiClassifier categorizes a whole batch of rows with one model call.
// Any failure (timeout, transport error, malformed or undersized response)
// fails the entire batch so the caller can fall back to the rule strategy;
// AI results are never partially applied.
type GeminiClassifier struct {
	cfg AIConfig
}

// NewGeminiClassifier creates the AI strategy with the given configuration.
func NewGeminiClassifier(cfg AIConfig) *GeminiClassifier {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &GeminiClassifier{cfg: cfg}
}

func (c *GeminiClassifier) Name() string { return "ai" }

// Classify sends all rows in one request and decodes the aligned response.
func (c *GeminiClassifier) Classify(ctx context.Context, rows []statement.RawRow) ([]domain.Transaction, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("Classify: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildBatchPrompt(rows)},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, c.cfg.Model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Classify: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("Classify: empty response from model")
	}

	return decodeBatchResponse(rawText, rows)
}

// buildBatchPrompt renders the rows and the category taxonomy into one
// instruction block. The model must answer with a strict JSON array aligned
// 1:1 by index with the input rows.
func buildBatchPrompt(rows []statement.RawRow) string {
	var b strings.Builder

	b.WriteString("You are a financial transaction categorizer for personal bank statements.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Categorize EVERY transaction listed below.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a JSON array with EXACTLY one object per input transaction, in input order.\n\n")
	b.WriteString("Each object must have these fields:\n")
	b.WriteString("- \"category\": string (one of the predefined categories below)\n")
	b.WriteString("- \"merchant\": string (cleaned merchant or counterparty name)\n")
	b.WriteString("- \"description\": string (cleaned human-readable description)\n")
	b.WriteString("- \"confidence\": number between 0 and 1\n\n")

	b.WriteString("Use ONLY the following categories:\n")
	for _, cat := range Categories() {
		b.WriteString("  - " + cat + "\n")
	}
	b.WriteString("\nRules:\n")
	b.WriteString("- Transfers between the user's own accounts get category \"Transfer\".\n")
	b.WriteString("- If you are unsure, use category \"Other\" with a low confidence.\n")
	b.WriteString("- Return ONLY valid raw JSON. Do NOT wrap the response in code fences.\n")
	b.WriteString("- Output must begin with \"[\" and end with \"]\".\n\n")

	b.WriteString("Transactions:\n")
	for i, row := range rows {
		direction := "out"
		if row.Credit {
			direction = "in"
		}
		line, _ := json.Marshal(map[string]interface{}{
			"index":       i,
			"date":        row.Date.Format("2006-01-02"),
			"description": row.Description,
			"amount":      row.Amount,
			"direction":   direction,
		})
		b.Write(line)
		b.WriteByte('\n')
	}

	return b.String()
}

// batchItem is one element of the model's response array.
type batchItem struct {
	Category    string  `json:"category"`
	Merchant    string  `json:"merchant"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// decodeBatchResponse turns the raw model text into transactions. Markdown
// fences are tolerated, everything else is strict: the payload must satisfy
// the response schema and contain exactly one item per input row.
func decodeBatchResponse(raw string, rows []statement.RawRow) ([]domain.Transaction, error) {
	clean := cleanModelJSON(raw)

	if err := validateBatchJSON([]byte(clean)); err != nil {
		return nil, fmt.Errorf("decodeBatchResponse: %w", err)
	}

	var items []batchItem
	if err := json.Unmarshal([]byte(clean), &items); err != nil {
		return nil, fmt.Errorf("decodeBatchResponse: unmarshal: %w", err)
	}
	if len(items) != len(rows) {
		return nil, fmt.Errorf("decodeBatchResponse: row count mismatch: got %d items for %d rows", len(items), len(rows))
	}

	txs := make([]domain.Transaction, 0, len(rows))
	for i, row := range rows {
		item := items[i]

		// Direction always comes from the statement itself; the model only
		// decides category, merchant and description.
		txType := rowType(row)
		if strings.EqualFold(item.Category, "Transfer") {
			txType = domain.TypeTransfer
		}

		desc := strings.TrimSpace(item.Description)
		if desc == "" {
			desc = row.Description
		}
		merchant := strings.TrimSpace(item.Merchant)
		if merchant == "" {
			merchant = CleanMerchant(row.Description)
		}

		txs = append(txs, domain.Transaction{
			ID:          rowID(row),
			Date:        row.Date,
			Description: desc,
			Amount:      row.Amount,
			Type:        txType,
			Category:    item.Category,
			Merchant:    merchant,
			Icon:        IconFor(item.Category),
			Metadata: domain.Metadata{
				Category:  item.Category,
				Reference: row.Reference,
				Source:    "ai",
			},
		})
	}
	return txs, nil
}

// cleanModelJSON strips markdown fences and surrounding junk when the model
// ignores the raw-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost array if junk remains around it.
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
