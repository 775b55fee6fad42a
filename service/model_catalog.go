package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// NewGeminiClient creates a Gemini SDK client for the given API key
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &ConfigurationError{Field: "GEMINI_API_KEY", Message: "API key is required"}
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// modelIterator is the subset of *genai.ModelInfoIterator used to read the catalog
type modelIterator interface {
	Next() (*genai.ModelInfo, error)
}

// VerifyEndpointModels lists the models visible to the API key and warns about
// configured variants whose model is not available. It returns the missing models.
func VerifyEndpointModels(ctx context.Context, client *genai.Client, endpoints []EndpointVariant, logger *zap.Logger) ([]string, error) {
	return verifyModels(client.ListModels(ctx), endpoints, logger)
}

func verifyModels(it modelIterator, endpoints []EndpointVariant, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	available := make(map[string]bool)
	for {
		model, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
		available[strings.TrimPrefix(model.Name, "models/")] = true
	}

	missing := missingModels(available, endpoints)
	for _, name := range missing {
		logger.Warn("configured analysis model not available to API key", zap.String("model", name))
	}
	logger.Info("model catalog checked",
		zap.Int("available_models", len(available)),
		zap.Int("configured_endpoints", len(endpoints)),
		zap.Int("missing_models", len(missing)),
	)
	return missing, nil
}

// missingModels returns configured models absent from the catalog, deduplicated, in endpoint order
func missingModels(available map[string]bool, endpoints []EndpointVariant) []string {
	missing := make([]string, 0)
	seen := make(map[string]bool)
	for _, endpoint := range endpoints {
		if endpoint.Model == "" || seen[endpoint.Model] {
			continue
		}
		seen[endpoint.Model] = true
		if !available[endpoint.Model] {
			missing = append(missing, endpoint.Model)
		}
	}
	return missing
}
