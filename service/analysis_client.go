package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leaseguard-backend/models"

	"go.uber.org/zap"
)

const (
	geminiBaseURL         = "https://generativelanguage.googleapis.com"
	defaultRequestTimeout = 30 * time.Second
	maxErrorBodyBytes     = 2048
	finishReasonMaxTokens = "MAX_TOKENS"
)

// RawAnalysis is the loosely-typed JSON object returned by the model
type RawAnalysis map[string]any

// EndpointVariant is one model/version/path combination of the Gemini generateContent API
type EndpointVariant struct {
	Name       string
	APIVersion string
	Model      string
	URL        string
}

// NewEndpointVariant builds the generateContent variant for a model and API version
func NewEndpointVariant(apiVersion, model string) EndpointVariant {
	return EndpointVariant{
		Name:       apiVersion + "/" + model,
		APIVersion: apiVersion,
		Model:      model,
		URL:        fmt.Sprintf("%s/%s/models/%s:generateContent", geminiBaseURL, apiVersion, model),
	}
}

// ParseEndpointVariant derives a variant from a generateContent URL such as
// https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent
func ParseEndpointVariant(rawURL string) (EndpointVariant, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return EndpointVariant{}, fmt.Errorf("invalid endpoint URL %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return EndpointVariant{}, fmt.Errorf("invalid endpoint URL %q: missing scheme or host", rawURL)
	}

	variant := EndpointVariant{Name: u.Host + u.Path, URL: u.String()}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, segment := range segments {
		if segment == "models" && i+1 < len(segments) {
			variant.Model, _, _ = strings.Cut(segments[i+1], ":")
			if i > 0 {
				variant.APIVersion = segments[i-1]
			}
			variant.Name = variant.APIVersion + "/" + variant.Model
			break
		}
	}
	return variant, nil
}

// DefaultEndpointVariants are tried in order; later entries cover deprecation
// or rate limiting of the earlier ones
var DefaultEndpointVariants = []EndpointVariant{
	NewEndpointVariant("v1beta", "gemini-2.0-flash"),
	NewEndpointVariant("v1beta", "gemini-1.5-flash"),
	NewEndpointVariant("v1", "gemini-1.5-flash"),
	NewEndpointVariant("v1beta", "gemini-1.5-pro"),
}

// GenerationConfig holds the fixed generation parameters sent with every request
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// DefaultGenerationConfig keeps responses compact and close to the schema
var DefaultGenerationConfig = GenerationConfig{
	Temperature:     0.1,
	TopK:            1,
	TopP:            1.0,
	MaxOutputTokens: 8192,
}

// ClientConfig is injected into AnalysisClient at construction
type ClientConfig struct {
	APIKey         string
	Endpoints      []EndpointVariant
	Generation     GenerationConfig
	RequestTimeout time.Duration // Per endpoint attempt
	HTTPClient     *http.Client
}

// AnalysisClient calls the Gemini API across an ordered list of endpoint variants.
// It keeps no per-call state and is safe for concurrent use.
type AnalysisClient struct {
	apiKey     string
	endpoints  []EndpointVariant
	generation GenerationConfig
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *Metrics
}

// ClientOption is a functional option for AnalysisClient
type ClientOption func(*AnalysisClient)

// ClientWithLogger sets the logger
func ClientWithLogger(logger *zap.Logger) ClientOption {
	return func(c *AnalysisClient) {
		c.logger = logger
	}
}

// ClientWithMetrics sets the metrics collector
func ClientWithMetrics(metrics *Metrics) ClientOption {
	return func(c *AnalysisClient) {
		c.metrics = metrics
	}
}

// NewAnalysisClient creates a new analysis client.
// A missing API key fails here, before any request is made.
func NewAnalysisClient(cfg ClientConfig, opts ...ClientOption) (*AnalysisClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ConfigurationError{Field: "GEMINI_API_KEY", Message: "API key is required for remote analysis"}
	}

	endpoints := cfg.Endpoints
	if endpoints == nil {
		endpoints = DefaultEndpointVariants
	}
	if len(endpoints) == 0 {
		return nil, &ConfigurationError{Field: "GEMINI_ENDPOINTS", Message: "at least one endpoint variant is required"}
	}

	generation := cfg.Generation
	if generation == (GenerationConfig{}) {
		generation = DefaultGenerationConfig
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.RequestTimeout
		if timeout <= 0 {
			timeout = defaultRequestTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &AnalysisClient{
		apiKey:     cfg.APIKey,
		endpoints:  append([]EndpointVariant(nil), endpoints...),
		generation: generation,
		httpClient: httpClient,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoints returns the configured endpoint variants in attempt order
func (c *AnalysisClient) Endpoints() []EndpointVariant {
	return append([]EndpointVariant(nil), c.endpoints...)
}

// Analyze sends the contract to each endpoint variant in order and returns the first
// parsed JSON object. Per-endpoint failures are logged and skipped; only exhaustion
// of every variant is returned, as *ServiceUnavailableError.
func (c *AnalysisClient) Analyze(ctx context.Context, contractText string) (RawAnalysis, error) {
	prompt := BuildAnalysisPrompt(contractText)

	reqBody := generateContentRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: c.generation,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	attempts := 0
	for i, endpoint := range c.endpoints {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if lastErr == nil {
				lastErr = ctxErr
			}
			break
		}
		attempts++

		start := time.Now()
		raw, err := c.attempt(ctx, endpoint, jsonData)
		if err != nil {
			c.metrics.RecordEndpointAttempt(endpoint.Name, outcomeFor(err))
			c.logger.Warn("analysis endpoint failed",
				zap.String("endpoint", endpoint.Name),
				zap.Int("attempt", i+1),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			lastErr = err
			continue
		}

		c.metrics.RecordEndpointAttempt(endpoint.Name, OutcomeSuccess)
		c.logger.Info("analysis endpoint succeeded",
			zap.String("endpoint", endpoint.Name),
			zap.Int("attempt", i+1),
			zap.Duration("elapsed", time.Since(start)),
		)
		return raw, nil
	}

	return nil, &ServiceUnavailableError{Attempts: attempts, LastErr: lastErr}
}

// attempt performs one request against a single endpoint variant
func (c *AnalysisClient) attempt(ctx context.Context, endpoint EndpointVariant, body []byte) (RawAnalysis, error) {
	text, err := c.callGenerationAPI(ctx, endpoint, body)
	if err != nil {
		return nil, err
	}
	return parseAnalysisPayload(endpoint.Name, text)
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason,omitempty"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error,omitempty"`
}

// callGenerationAPI posts the request and returns the text of the first candidate
func (c *AnalysisClient) callGenerationAPI(ctx context.Context, endpoint EndpointVariant, body []byte) (string, error) {
	requestURL, err := withAPIKey(endpoint.URL, c.apiKey)
	if err != nil {
		return "", &TransportError{Endpoint: endpoint.Name, Message: "invalid endpoint URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Endpoint: endpoint.Name, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Endpoint: endpoint.Name, Message: "failed to send request", Cause: redactURLError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", &TransportError{
			Endpoint:   endpoint.Name,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(bodyBytes)),
		}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Endpoint: endpoint.Name, StatusCode: resp.StatusCode, Message: "failed to read response", Cause: err}
	}

	var apiResp generateContentResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", &ShapeError{Endpoint: endpoint.Name, Message: "response body is not a JSON envelope"}
	}

	if apiResp.Error.Message != "" {
		return "", &ShapeError{Endpoint: endpoint.Name, Message: fmt.Sprintf("API error: %s (code: %d)", apiResp.Error.Message, apiResp.Error.Code)}
	}
	if apiResp.PromptFeedback.BlockReason != "" {
		return "", &ShapeError{Endpoint: endpoint.Name, Message: "prompt blocked: " + apiResp.PromptFeedback.BlockReason}
	}
	if len(apiResp.Candidates) == 0 {
		return "", &ShapeError{Endpoint: endpoint.Name, Message: "no candidates"}
	}

	candidate := apiResp.Candidates[0]
	if candidate.FinishReason == finishReasonMaxTokens {
		return "", &ShapeError{Endpoint: endpoint.Name, Message: "candidate truncated at max output tokens"}
	}
	if candidate.FinishReason != "" && candidate.FinishReason != "STOP" {
		c.logger.Debug("candidate finished early",
			zap.String("endpoint", endpoint.Name),
			zap.String("finish_reason", candidate.FinishReason),
		)
	}

	var responseText strings.Builder
	for _, p := range candidate.Content.Parts {
		responseText.WriteString(p.Text)
	}
	if strings.TrimSpace(responseText.String()) == "" {
		return "", &ShapeError{Endpoint: endpoint.Name, Message: fmt.Sprintf("candidate has no text (finish reason: %s)", candidate.FinishReason)}
	}

	return responseText.String(), nil
}

// parseAnalysisPayload extracts and decodes the JSON object embedded in model output
func parseAnalysisPayload(endpointName, text string) (RawAnalysis, error) {
	payload := ExtractJSONObject(text)
	if payload == "" {
		payload = stripCodeFences(text)
	}

	var raw RawAnalysis
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, &ParseError{Endpoint: endpointName, RawResponse: truncateForLog(text), Cause: err}
	}
	if raw == nil {
		return nil, &ParseError{Endpoint: endpointName, RawResponse: truncateForLog(text), Cause: fmt.Errorf("payload is null")}
	}
	return raw, nil
}

// withAPIKey appends the key query parameter
func withAPIKey(endpointURL, apiKey string) (string, error) {
	u, err := url.Parse(endpointURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("key", apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redactURLError drops the request URL, which carries the API key, from client errors
func redactURLError(err error) error {
	if urlErr, ok := err.(*url.Error); ok {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

func outcomeFor(err error) string {
	switch err.(type) {
	case *ShapeError:
		return OutcomeShape
	case *ParseError:
		return OutcomeParse
	default:
		return OutcomeTransport
	}
}

func truncateForLog(s string) string {
	const limit = 500
	if truncated := models.TruncateRunes(s, limit); truncated != s {
		return truncated + "..."
	}
	return s
}
