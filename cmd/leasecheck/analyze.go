package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"leaseguard-backend/config"
	"leaseguard-backend/models"
	"leaseguard-backend/service"

	"github.com/spf13/cobra"
)

var analyzeFlags struct {
	keywordsOnly bool
	pretty       bool
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a plain-text tenancy agreement",
		Long: `Analyze a UTF-8 plain-text tenancy agreement and print the result as JSON.

Use "-" to read the agreement from stdin.

Examples:
  leasecheck analyze lease.txt --pretty
  leasecheck analyze lease.txt --keywords-only`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, root, args[0])
		},
	}

	cmd.Flags().BoolVar(&analyzeFlags.keywordsOnly, "keywords-only", false, "skip remote analysis and use the keyword pattern library")
	cmd.Flags().BoolVar(&analyzeFlags.pretty, "pretty", false, "indent JSON output")
	return cmd
}

func runAnalyze(cmd *cobra.Command, root *rootOptions, path string) error {
	text, err := readContract(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	keywordAnalyzer, err := service.NewKeywordAnalyzer()
	if err != nil {
		return fmt.Errorf("failed to load clause patterns: %w", err)
	}

	var result *models.AnalysisResult
	if analyzeFlags.keywordsOnly {
		result, err = keywordAnalyzer.AnalyzeContractWithKeywords(cmd.Context(), text)
		if err != nil {
			return fmt.Errorf("keyword analysis failed: %w", err)
		}
	} else {
		analysisService, err := newRemoteAnalysisService(root, keywordAnalyzer)
		if err != nil {
			return err
		}

		result, err = analysisService.AnalyzeContract(cmd.Context(), text)
		if err != nil {
			var failed *service.AnalysisFailedError
			if errors.As(err, &failed) {
				return errors.New(failed.UserMessage())
			}
			return err
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	if analyzeFlags.pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(result)
}

func newRemoteAnalysisService(root *rootOptions, fallback service.FallbackAnalyzer) (*service.AnalysisService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	clientConfig, err := cfg.ClientConfig()
	if err != nil {
		return nil, err
	}
	client, err := service.NewAnalysisClient(clientConfig, service.ClientWithLogger(root.logger))
	if err != nil {
		var cfgErr *service.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("%w (set GEMINI_API_KEY or pass --keywords-only)", err)
		}
		return nil, err
	}

	return service.NewAnalysisService(
		service.AnalysisWithRemoteClient(client),
		service.AnalysisWithFallback(fallback),
		service.AnalysisWithLogger(root.logger),
		service.AnalysisWithTimeout(cfg.Analysis.Timeout),
		service.AnalysisWithMaxChars(cfg.Analysis.MaxChars),
	), nil
}

func readContract(stdin io.Reader, path string) (string, error) {
	var content []byte
	var err error
	if path == "-" {
		content, err = io.ReadAll(stdin)
	} else {
		content, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read contract: %w", err)
	}
	if !utf8.Valid(content) {
		return "", fmt.Errorf("contract %s is not UTF-8 encoded text", path)
	}
	return string(content), nil
}
