package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"leaseguard-backend/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRemote struct {
	raw      RawAnalysis
	err      error
	calls    int
	lastText string
	block    bool
}

func (s *stubRemote) Analyze(ctx context.Context, contractText string) (RawAnalysis, error) {
	s.calls++
	s.lastText = contractText
	if s.block {
		<-ctx.Done()
		return nil, &ServiceUnavailableError{LastErr: ctx.Err()}
	}
	return s.raw, s.err
}

type stubFallback struct {
	result   *models.AnalysisResult
	err      error
	calls    int
	lastText string
}

func (s *stubFallback) AnalyzeContractWithKeywords(ctx context.Context, contractText string) (*models.AnalysisResult, error) {
	s.calls++
	s.lastText = contractText
	return s.result, s.err
}

func validRaw() RawAnalysis {
	return RawAnalysis{
		"summary":          "Looks standard.",
		"overallRiskScore": float64(20),
		"recommendations":  []any{"Keep a copy of the signed agreement."},
	}
}

func fallbackResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		Summary:          "Keyword analysis",
		KeyDetails:       []models.KeyDetail{},
		FlaggedClauses:   []models.FlaggedClause{},
		OverallRiskScore: 10,
		Recommendations:  []string{},
	}
}

func TestTruncateContract(t *testing.T) {
	short := "short contract"
	got, truncated := TruncateContract(short, 100)
	assert.False(t, truncated)
	assert.Equal(t, short, got)

	exact := strings.Repeat("a", 100)
	got, truncated = TruncateContract(exact, 100)
	assert.False(t, truncated)
	assert.Equal(t, exact, got)

	long := strings.Repeat("b", 150)
	got, truncated = TruncateContract(long, 100)
	assert.True(t, truncated)
	assert.Equal(t, strings.Repeat("b", 100)+TruncationMarker, got)
	assert.Equal(t, 100+utf8.RuneCountInString(TruncationMarker), utf8.RuneCountInString(got))

	multibyte := strings.Repeat("é", 20)
	got, truncated = TruncateContract(multibyte, 10)
	assert.True(t, truncated)
	assert.Equal(t, strings.Repeat("é", 10)+TruncationMarker, got)
	assert.True(t, utf8.ValidString(got))
}

func TestAnalyzeContract_PassesShortTextVerbatim(t *testing.T) {
	remote := &stubRemote{raw: validRaw()}
	svc := NewAnalysisService(AnalysisWithRemoteClient(remote), AnalysisWithMaxChars(100))

	text := strings.Repeat("x", 100)
	result, err := svc.AnalyzeContract(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, text, remote.lastText)
	assert.False(t, result.Truncated)
	assert.Equal(t, models.SourceAI, result.Source)
	assert.Equal(t, 20, result.OverallRiskScore)
}

func TestAnalyzeContract_TruncatesLongText(t *testing.T) {
	remote := &stubRemote{raw: validRaw()}
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	svc := NewAnalysisService(AnalysisWithRemoteClient(remote), AnalysisWithMaxChars(10), AnalysisWithMetrics(metrics))

	result, err := svc.AnalyzeContract(context.Background(), "0123456789ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, "0123456789"+TruncationMarker, remote.lastText)
	assert.True(t, result.Truncated)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.truncations))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.analyses.WithLabelValues(string(models.SourceAI))))
}

func TestAnalyzeContract_FallbackOnServiceUnavailable(t *testing.T) {
	remote := &stubRemote{err: &ServiceUnavailableError{Attempts: 4, LastErr: errors.New("boom")}}
	fallback := &stubFallback{result: fallbackResult()}
	svc := NewAnalysisService(AnalysisWithRemoteClient(remote), AnalysisWithFallback(fallback), AnalysisWithMaxChars(5))

	result, err := svc.AnalyzeContract(context.Background(), "abcdefgh")
	require.NoError(t, err)
	assert.Equal(t, models.SourceKeyword, result.Source)
	assert.True(t, result.Truncated)

	assert.Equal(t, 1, remote.calls, "remote path must not be retried")
	assert.Equal(t, 1, fallback.calls)
	assert.Equal(t, "abcde"+TruncationMarker, fallback.lastText)
}

func TestAnalyzeContract_FallbackOnMalformedResult(t *testing.T) {
	remote := &stubRemote{raw: RawAnalysis{"overallRiskScore": float64(50)}}
	fallback := &stubFallback{result: fallbackResult()}
	svc := NewAnalysisService(AnalysisWithRemoteClient(remote), AnalysisWithFallback(fallback))

	result, err := svc.AnalyzeContract(context.Background(), "contract")
	require.NoError(t, err)
	assert.Equal(t, "Keyword analysis", result.Summary)
	assert.Equal(t, 1, remote.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestAnalyzeContract_ConfigurationErrorIsNotMasked(t *testing.T) {
	remote := &stubRemote{err: &ConfigurationError{Field: "GEMINI_API_KEY", Message: "missing"}}
	fallback := &stubFallback{result: fallbackResult()}
	svc := NewAnalysisService(AnalysisWithRemoteClient(remote), AnalysisWithFallback(fallback))

	result, err := svc.AnalyzeContract(context.Background(), "contract")
	assert.Nil(t, result)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, 0, fallback.calls)
}

func TestAnalyzeContract_BothPathsFail(t *testing.T) {
	remote := &stubRemote{err: &ServiceUnavailableError{Attempts: 1, LastErr: errors.New("down")}}
	fallback := &stubFallback{err: errors.New("no patterns")}
	svc := NewAnalysisService(AnalysisWithRemoteClient(remote), AnalysisWithFallback(fallback))

	result, err := svc.AnalyzeContract(context.Background(), "contract")
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAnalysisFailed))
	assert.True(t, errors.Is(err, ErrServiceUnavailable))

	var failed *AnalysisFailedError
	require.True(t, errors.As(err, &failed))
	assert.Contains(t, failed.UserMessage(), "manually")
}

func TestAnalyzeContract_NoFallbackConfigured(t *testing.T) {
	remote := &stubRemote{err: &ServiceUnavailableError{Attempts: 1, LastErr: errors.New("down")}}
	svc := NewAnalysisService(AnalysisWithRemoteClient(remote))

	_, err := svc.AnalyzeContract(context.Background(), "contract")
	assert.True(t, errors.Is(err, ErrAnalysisFailed))
}

func TestAnalyzeContract_NoRemoteUsesFallback(t *testing.T) {
	fallback := &stubFallback{result: fallbackResult()}
	svc := NewAnalysisService(AnalysisWithFallback(fallback))

	result, err := svc.AnalyzeContract(context.Background(), "contract")
	require.NoError(t, err)
	assert.Equal(t, models.SourceKeyword, result.Source)
}

func TestAnalyzeContract_EmptyText(t *testing.T) {
	remote := &stubRemote{raw: validRaw()}
	fallback := &stubFallback{result: fallbackResult()}
	svc := NewAnalysisService(AnalysisWithRemoteClient(remote), AnalysisWithFallback(fallback))

	_, err := svc.AnalyzeContract(context.Background(), "   ")
	assert.True(t, errors.Is(err, ErrEmptyContract))
	assert.Equal(t, 0, remote.calls)
	assert.Equal(t, 0, fallback.calls)
}

func TestAnalyzeContract_DeadlineFallsBack(t *testing.T) {
	remote := &stubRemote{block: true}
	fallback := &stubFallback{result: fallbackResult()}
	svc := NewAnalysisService(
		AnalysisWithRemoteClient(remote),
		AnalysisWithFallback(fallback),
		AnalysisWithTimeout(20*time.Millisecond),
	)

	start := time.Now()
	result, err := svc.AnalyzeContract(context.Background(), "contract")
	require.NoError(t, err)
	assert.Equal(t, models.SourceKeyword, result.Source)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestAnalyzeContract_AllEndpointsFailUsesKeywordAnalyzer(t *testing.T) {
	fake := newFakeGemini(t, map[string]http.HandlerFunc{
		"a": respondStatus(http.StatusInternalServerError, "error"),
		"b": respondText(t, "no json here"),
	})
	keywords := newTestKeywordAnalyzer(t)
	svc := NewAnalysisService(
		AnalysisWithRemoteClient(fake.client(t, "a", "b")),
		AnalysisWithFallback(keywords),
	)

	result, err := svc.AnalyzeContract(context.Background(), sampleLease)
	require.NoError(t, err)
	assert.Equal(t, models.SourceKeyword, result.Source)
	assert.NotEmpty(t, result.FlaggedClauses)
	assert.Equal(t, 1, fake.callCount("a"))
	assert.Equal(t, 1, fake.callCount("b"))
}

func TestAnalyzeContract_RemoteSuccessEndToEnd(t *testing.T) {
	fake := newFakeGemini(t, map[string]http.HandlerFunc{
		"a": respondText(t, `Sure! {"summary":"Risky","overallRiskScore":"130","recommendations":["a","b","c","d","e","f"],"flaggedClauses":[{"clause":{"id":"c1","category":"made_up","severity":"HIGH","isMalicious":true},"matchedText":"x","position":3}]}`),
	})
	svc := NewAnalysisService(
		AnalysisWithRemoteClient(fake.client(t, "a")),
		AnalysisWithFallback(newTestKeywordAnalyzer(t)),
	)

	result, err := svc.AnalyzeContract(context.Background(), sampleLease)
	require.NoError(t, err)
	assert.Equal(t, models.SourceAI, result.Source)
	assert.Equal(t, 100, result.OverallRiskScore)
	assert.Len(t, result.Recommendations, 5)
	require.Len(t, result.FlaggedClauses, 1)
	assert.Equal(t, models.CategoryOther, result.FlaggedClauses[0].Clause.Category)
	assert.Equal(t, models.SeverityHigh, result.FlaggedClauses[0].Clause.Severity)
	assert.Empty(t, result.FlaggedClauses[0].Clause.Keywords)
}
