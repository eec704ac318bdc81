// Package advisor generates a short financial analysis of recent
// transactions through the Gemini text-generation API. Calls are
// wrapped in a bounded retry loop with capped exponential backoff for
// rate-limit responses.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/financas/server/internal/domain"
)

// maxPromptTransactions bounds how much history goes into the prompt.
const maxPromptTransactions = 30

// ErrNoAPIKey is returned when the advisor was constructed without
// credentials.
var ErrNoAPIKey = errors.New("gemini api key not configured")

// generator is the single model call, kept narrow so tests can stub it.
type generator interface {
	generate(ctx context.Context, prompt string) (string, error)
}

// Advisor builds prompts and drives the retry loop.
type Advisor struct {
	gen        generator
	maxRetries int
	baseDelay  time.Duration
}

// Options tune the retry behavior.
type Options struct {
	Model      string
	MaxRetries int
	BaseDelay  time.Duration
}

// New creates an Advisor backed by the real Gemini client.
func New(ctx context.Context, apiKey string, opts Options) (*Advisor, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newWith(&geminiGenerator{client: client, model: opts.Model}, opts), nil
}

func newWith(gen generator, opts Options) *Advisor {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	return &Advisor{gen: gen, maxRetries: opts.MaxRetries, baseDelay: opts.BaseDelay}
}

// Analyze produces the advisory text for the user's recent history.
func (a *Advisor) Analyze(ctx context.Context, transactions []domain.Transaction, categories []domain.Category) (string, error) {
	prompt, ok := buildPrompt(transactions, categories)
	if !ok {
		return "Não há transações suficientes para uma análise. Adicione mais algumas e tente novamente.", nil
	}
	return a.callWithRetry(ctx, prompt)
}

// callWithRetry retries rate-limited calls with doubling, capped delay.
// An explicit loop keeps stack depth bounded and makes the cancellation
// point visible.
func (a *Advisor) callWithRetry(ctx context.Context, prompt string) (string, error) {
	const maxDelay = 30 * time.Second

	delay := a.baseDelay
	var lastErr error

	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
		}

		text, err := a.gen.generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("gemini call failed after %d retries: %w", a.maxRetries, lastErr)
}

// isRetryable recognizes rate limiting and transient transport errors.
func isRetryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// buildPrompt renders the 30 most recent transactions into the
// advisory prompt. Returns ok=false when there is nothing to analyze.
func buildPrompt(transactions []domain.Transaction, categories []domain.Category) (string, bool) {
	if len(transactions) == 0 {
		return "", false
	}

	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	sorted := append([]domain.Transaction(nil), transactions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date > sorted[j].Date })
	if len(sorted) > maxPromptTransactions {
		sorted = sorted[:maxPromptTransactions]
	}

	var lines []string
	for _, t := range sorted {
		name := names[t.CategoryID]
		if name == "" {
			name = "N/A"
		}
		lines = append(lines, fmt.Sprintf("%s - %s: R$ %s (%s - %s)",
			t.Date, t.Description, t.Amount.StringFixed(2), name, domain.TypeLabel(t.Type)))
	}

	prompt := fmt.Sprintf(`Você é um consultor financeiro amigável e prestativo. Analise a seguinte lista de transações financeiras de um usuário.

Transações:
%s

Com base nessas transações, forneça uma análise curta e objetiva em português. Siga estritamente este formato:
1.  **Resumo Geral:** Um parágrafo curto sobre os hábitos de gasto gerais.
2.  **Principais Despesas:** Liste as 3 principais categorias de despesas.
3.  **Dicas para Economizar:** Ofereça 2 dicas práticas e acionáveis para o usuário economizar dinheiro com base nos seus gastos.
4.  **Ponto Positivo:** Mencione um ponto positivo, como uma fonte de receita consistente ou gastos controlados em alguma área.`,
		strings.Join(lines, "\n"))

	return prompt, true
}

// geminiGenerator is the production generator.
type geminiGenerator struct {
	client *genai.Client
	model  string
}

func (g *geminiGenerator) generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}
