package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"leaseguard-backend/models"

	"go.uber.org/zap"
)

const (
	DefaultMaxContractChars = 50000
	DefaultAnalysisTimeout  = 45 * time.Second

	// TruncationMarker is appended to contracts cut at the character limit
	TruncationMarker = "\n\n[NOTE: This contract was truncated for analysis. Only the beginning of the document was reviewed; terms after this point were not analyzed.]"
)

// RemoteAnalyzer returns the raw analysis object produced by the language model
type RemoteAnalyzer interface {
	Analyze(ctx context.Context, contractText string) (RawAnalysis, error)
}

// FallbackAnalyzer produces a canonical result without the remote service
type FallbackAnalyzer interface {
	AnalyzeContractWithKeywords(ctx context.Context, contractText string) (*models.AnalysisResult, error)
}

// AnalysisService is the single entry point for contract analysis.
// It truncates oversized input, runs the remote path once and falls back to the
// keyword analyzer when the remote path is exhausted or returns an unusable result.
type AnalysisService struct {
	remote   RemoteAnalyzer
	fallback FallbackAnalyzer
	logger   *zap.Logger
	metrics  *Metrics
	timeout  time.Duration
	maxChars int
}

// AnalysisServiceOption is a functional option for AnalysisService
type AnalysisServiceOption func(*AnalysisService)

// AnalysisWithRemoteClient sets the remote analyzer
func AnalysisWithRemoteClient(remote RemoteAnalyzer) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.remote = remote
	}
}

// AnalysisWithFallback sets the fallback analyzer
func AnalysisWithFallback(fallback FallbackAnalyzer) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.fallback = fallback
	}
}

// AnalysisWithLogger sets the logger
func AnalysisWithLogger(logger *zap.Logger) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.logger = logger
	}
}

// AnalysisWithMetrics sets the metrics collector
func AnalysisWithMetrics(metrics *Metrics) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.metrics = metrics
	}
}

// AnalysisWithTimeout sets the overall deadline for the remote path
func AnalysisWithTimeout(timeout time.Duration) AnalysisServiceOption {
	return func(s *AnalysisService) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// AnalysisWithMaxChars sets the truncation threshold in characters
func AnalysisWithMaxChars(maxChars int) AnalysisServiceOption {
	return func(s *AnalysisService) {
		if maxChars > 0 {
			s.maxChars = maxChars
		}
	}
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(opts ...AnalysisServiceOption) *AnalysisService {
	s := &AnalysisService{
		logger:   zap.NewNop(),
		timeout:  DefaultAnalysisTimeout,
		maxChars: DefaultMaxContractChars,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxChars returns the truncation threshold
func (s *AnalysisService) MaxChars() int {
	return s.maxChars
}

// TruncateContract keeps the first maxChars characters and appends TruncationMarker.
// Text within the limit is returned unchanged.
func TruncateContract(text string, maxChars int) (string, bool) {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text, false
	}

	count := 0
	for i := range text {
		if count == maxChars {
			return text[:i] + TruncationMarker, true
		}
		count++
	}
	return text, false
}

// AnalyzeContract analyzes a contract and returns the canonical result.
// Only *ConfigurationError, ErrEmptyContract and *AnalysisFailedError are returned.
func (s *AnalysisService) AnalyzeContract(ctx context.Context, text string) (*models.AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyContract
	}

	start := time.Now()
	contractText, truncated := TruncateContract(text, s.maxChars)
	if truncated {
		s.metrics.RecordTruncation()
		s.logger.Info("contract truncated before analysis",
			zap.Int("original_chars", utf8.RuneCountInString(text)),
			zap.Int("max_chars", s.maxChars),
		)
	}

	result, remoteErr := s.analyzeRemote(ctx, contractText)
	if remoteErr == nil {
		result.Truncated = truncated
		s.metrics.RecordAnalysis(string(models.SourceAI), time.Since(start))
		s.logger.Info("contract analyzed",
			zap.String("source", string(models.SourceAI)),
			zap.Int("flagged_clauses", len(result.FlaggedClauses)),
			zap.Int("risk_score", result.OverallRiskScore),
			zap.Duration("duration", time.Since(start)),
		)
		return result, nil
	}

	var cfgErr *ConfigurationError
	if errors.As(remoteErr, &cfgErr) {
		return nil, cfgErr
	}

	s.logger.Warn("remote analysis unusable, using keyword fallback", zap.Error(remoteErr))

	if s.fallback == nil {
		s.metrics.RecordAnalysis("failed", time.Since(start))
		return nil, &AnalysisFailedError{RemoteErr: remoteErr, FallbackErr: errors.New("no fallback analyzer configured")}
	}

	result, fallbackErr := s.fallback.AnalyzeContractWithKeywords(ctx, contractText)
	if fallbackErr == nil && result == nil {
		fallbackErr = errors.New("fallback analyzer returned no result")
	}
	if fallbackErr != nil {
		s.metrics.RecordAnalysis("failed", time.Since(start))
		s.logger.Error("contract analysis failed",
			zap.NamedError("remote_error", remoteErr),
			zap.NamedError("fallback_error", fallbackErr),
		)
		return nil, &AnalysisFailedError{RemoteErr: remoteErr, FallbackErr: fallbackErr}
	}

	result.Source = models.SourceKeyword
	result.Truncated = truncated
	s.metrics.RecordAnalysis(string(models.SourceKeyword), time.Since(start))
	s.logger.Info("contract analyzed",
		zap.String("source", string(models.SourceKeyword)),
		zap.Int("flagged_clauses", len(result.FlaggedClauses)),
		zap.Int("risk_score", result.OverallRiskScore),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// analyzeRemote runs the remote path once under the overall deadline
func (s *AnalysisService) analyzeRemote(ctx context.Context, contractText string) (*models.AnalysisResult, error) {
	if s.remote == nil {
		return nil, fmt.Errorf("%w: no remote analyzer configured", ErrServiceUnavailable)
	}

	remoteCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.remote.Analyze(remoteCtx, contractText)
	if err != nil {
		return nil, err
	}
	return NormalizeAnalysis(raw)
}
