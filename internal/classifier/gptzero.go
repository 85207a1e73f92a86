package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultAPIURL is the GPTZero text prediction endpoint.
const DefaultAPIURL = "https://api.gptzero.me/v2/predict/text"

// GPTZeroClient implements Classifier against the GPTZero HTTP API.
type GPTZeroClient struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// GPTZeroOption configures a GPTZeroClient.
type GPTZeroOption func(*GPTZeroClient)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) GPTZeroOption {
	return func(g *GPTZeroClient) {
		g.httpClient = c
	}
}

// NewGPTZeroClient creates a GPTZero classifier client. apiURL falls back to
// DefaultAPIURL when empty; apiKey may be empty for the unauthenticated tier.
func NewGPTZeroClient(apiURL, apiKey string, timeout time.Duration, opts ...GPTZeroOption) *GPTZeroClient {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	client := &GPTZeroClient{
		apiURL:     apiURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type predictRequest struct {
	Document     string `json:"document"`
	Multilingual bool   `json:"multilingual"`
}

type predictResponse struct {
	Documents []struct {
		ClassProbabilities struct {
			AI    float64 `json:"ai"`
			Human float64 `json:"human"`
		} `json:"class_probabilities"`
	} `json:"documents"`
}

// Classify submits text for AI-content detection. A 429 maps to
// StatusRateLimited; any transport failure, non-200 status, or malformed
// response maps to StatusError.
func (g *GPTZeroClient) Classify(ctx context.Context, text string) Result {
	payload, err := json.Marshal(predictRequest{Document: text, Multilingual: false})
	if err != nil {
		return Result{Status: StatusError, Detail: fmt.Sprintf("encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(payload))
	if err != nil {
		return Result{Status: StatusError, Detail: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("x-api-key", g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Result{Status: StatusError, Detail: fmt.Sprintf("classifier request failed: %v", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var parsed predictResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return Result{Status: StatusError, Detail: fmt.Sprintf("decode response: %v", err)}
		}
		if len(parsed.Documents) == 0 {
			return Result{Status: StatusError, Detail: "response contains no documents"}
		}
		probs := parsed.Documents[0].ClassProbabilities
		return Result{
			Status:           StatusScored,
			AIProbability:    probs.AI,
			HumanProbability: probs.Human,
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		logrus.Warn("Classifier rate limit reached")
		return Result{Status: StatusRateLimited, Detail: "rate limit reached"}
	default:
		return Result{Status: StatusError, Detail: fmt.Sprintf("classifier returned status %d", resp.StatusCode)}
	}
}
