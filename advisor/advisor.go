// Package advisor provides non-authoritative AI signals attached to markets
// at submission time. A failing advisor never blocks market creation.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"cosmossdk.io/log"
)

// Prediction is the advisory classification attached to a new market.
type Prediction struct {
	Label      string // "TRUE", "FALSE" or "UNCERTAIN"
	Confidence int    // 0..100
}

// Fallback is the neutral prediction used whenever the advisor is
// unavailable or returns garbage.
var Fallback = Prediction{Label: "UNCERTAIN", Confidence: 50}

// Advisor classifies claim text and produces embeddings for similarity
// lookups. Both calls are best effort.
type Advisor interface {
	Classify(ctx context.Context, text string) (Prediction, error)
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Noop is the advisor used when no API key is configured.
type Noop struct{}

func (Noop) Classify(ctx context.Context, text string) (Prediction, error) {
	return Fallback, nil
}

func (Noop) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, nil
}

// Client talks to an OpenAI-compatible completion and embedding API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	logger  log.Logger
}

// NewClient builds a client against an OpenAI-compatible endpoint.
func NewClient(baseURL, apiKey, model string, logger log.Logger) *Client {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With("module", "advisor"),
	}
}

const classifyPrompt = `You judge whether a claim is likely true. Reply with a single line:
VERDICT CONFIDENCE
where VERDICT is TRUE, FALSE or UNCERTAIN and CONFIDENCE is an integer 0-100.
Claim: %s`

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("advisor api status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Classify asks the model for a verdict on the claim text. Any failure maps
// to the neutral fallback with a non-nil error so callers can log it.
func (c *Client) Classify(ctx context.Context, text string) (Prediction, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(classifyPrompt, text)},
		},
	}
	var resp chatResponse
	if err := c.post(ctx, "/v1/chat/completions", req, &resp); err != nil {
		return Fallback, err
	}
	if len(resp.Choices) == 0 {
		return Fallback, fmt.Errorf("advisor api returned no choices")
	}
	p, ok := parsePrediction(resp.Choices[0].Message.Content)
	if !ok {
		return Fallback, fmt.Errorf("unparseable advisor reply %q", resp.Choices[0].Message.Content)
	}
	return p, nil
}

func parsePrediction(s string) (Prediction, bool) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) < 2 {
		return Prediction{}, false
	}
	label := strings.ToUpper(fields[0])
	switch label {
	case "TRUE", "FALSE", "UNCERTAIN":
	default:
		return Prediction{}, false
	}
	var conf int
	if _, err := fmt.Sscanf(fields[1], "%d", &conf); err != nil {
		return Prediction{}, false
	}
	if conf < 0 {
		conf = 0
	}
	if conf > 100 {
		conf = 100
	}
	return Prediction{Label: label, Confidence: conf}, true
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed produces an embedding vector for similarity checks.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	req := embedRequest{Model: "text-embedding-3-small", Input: []string{text}}
	var resp embedResponse
	if err := c.post(ctx, "/v1/embeddings", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("advisor api returned no embedding")
	}
	return resp.Data[0].Embedding, nil
}

// CosineSimilarity compares two embedding vectors. Mismatched or empty
// vectors score zero.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
