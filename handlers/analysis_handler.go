package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"leaseguard-backend/models"
	"leaseguard-backend/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultMaxFileSize = 10 * 1024 * 1024 // 10MB

// ContractAnalyzer analyzes plain contract text
type ContractAnalyzer interface {
	AnalyzeContract(ctx context.Context, text string) (*models.AnalysisResult, error)
}

// AnalysisHandler handles HTTP requests for contract analysis
type AnalysisHandler struct {
	analyzer         ContractAnalyzer
	logger           *zap.Logger
	maxFileSize      int64
	allowedMimeTypes map[string]bool
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analyzer ContractAnalyzer, logger *zap.Logger, maxFileSize int64) *AnalysisHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxFileSize <= 0 {
		maxFileSize = defaultMaxFileSize
	}
	return &AnalysisHandler{
		analyzer:    analyzer,
		logger:      logger,
		maxFileSize: maxFileSize,
		allowedMimeTypes: map[string]bool{
			"text/plain": true,
		},
	}
}

// AnalyzeRequest is the body of POST /api/analyze
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// Analyze handles POST /api/analyze
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize)

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FILE_TOO_LARGE",
					"message": fmt.Sprintf("Request body exceeds maximum of %d bytes", h.maxFileSize),
				},
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Request body must be JSON with a \"text\" field",
			},
		})
		return
	}

	h.analyze(c, req.Text)
}

// UploadAndAnalyze handles POST /api/analyze/upload
func (h *AnalysisHandler) UploadAndAnalyze(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "File is required",
			},
		})
		return
	}

	// Validate file size
	if fileHeader.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_TOO_LARGE",
				"message": fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize),
			},
		})
		return
	}

	// Determine MIME type, falling back to the extension
	mimeType := ""
	if header := fileHeader.Header.Get("Content-Type"); header != "" {
		if parsed, _, err := mime.ParseMediaType(header); err == nil {
			mimeType = parsed
		}
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		if strings.EqualFold(filepath.Ext(fileHeader.Filename), ".txt") {
			mimeType = "text/plain"
		}
	}

	if !h.allowedMimeTypes[mimeType] {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILE_TYPE",
				"message": "File type not allowed. Upload the contract as plain text (.txt); extract text from PDFs before uploading",
			},
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Failed to read uploaded file",
			},
		})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Failed to read uploaded file",
			},
		})
		return
	}
	if int64(len(content)) > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_TOO_LARGE",
				"message": fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize),
			},
		})
		return
	}

	if !utf8.Valid(content) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ENCODING",
				"message": "File must be UTF-8 encoded text",
			},
		})
		return
	}

	text := strings.TrimPrefix(string(content), "\uFEFF")
	h.analyze(c, text)
}

// Taxonomy handles GET /api/taxonomy
func (h *AnalysisHandler) Taxonomy(c *gin.Context) {
	categories := make([]gin.H, 0, len(models.ClauseCategories))
	for _, category := range models.ClauseCategories {
		categories = append(categories, gin.H{
			"value": category,
			"label": category.Label(),
		})
	}

	severities := make([]gin.H, 0, len(models.Severities))
	for _, severity := range models.Severities {
		severities = append(severities, gin.H{
			"value":  severity,
			"weight": severity.Weight(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"categories": categories,
			"severities": severities,
		},
	})
}

func (h *AnalysisHandler) analyze(c *gin.Context, text string) {
	requestID := c.GetString(RequestIDKey)

	if strings.TrimSpace(text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "EMPTY_CONTRACT",
				"message": "Contract text is empty",
			},
		})
		return
	}

	start := time.Now()
	result, err := h.analyzer.AnalyzeContract(c.Request.Context(), text)
	if err != nil {
		h.logger.Error("contract analysis request failed",
			zap.String("request_id", requestID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		h.writeAnalysisError(c, err)
		return
	}

	h.logger.Info("contract analysis request completed",
		zap.String("request_id", requestID),
		zap.String("source", string(result.Source)),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("duration", time.Since(start)),
	)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// writeAnalysisError maps analysis errors to the JSON error envelope
func (h *AnalysisHandler) writeAnalysisError(c *gin.Context, err error) {
	var cfgErr *service.ConfigurationError
	var failedErr *service.AnalysisFailedError

	switch {
	case errors.Is(err, service.ErrEmptyContract):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "EMPTY_CONTRACT",
				"message": "Contract text is empty",
			},
		})
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CONFIGURATION_ERROR",
				"message": "Analysis service is not configured",
			},
		})
	case errors.As(err, &failedErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ANALYSIS_FAILED",
				"message": failedErr.UserMessage(),
			},
		})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ANALYSIS_FAILED",
				"message": "We could not complete the analysis of this contract. Please review it manually.",
			},
		})
	}
}
