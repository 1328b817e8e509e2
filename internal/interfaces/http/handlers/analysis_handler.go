package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/application/analysis"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/infrastructure/monitoring/logging"
	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/errors"
)

// AnalysisHandler serves the analysis endpoints.
type AnalysisHandler struct {
	svc    analysis.Service
	logger logging.Logger
}

// NewAnalysisHandler builds the handler.
func NewAnalysisHandler(svc analysis.Service, logger logging.Logger) *AnalysisHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &AnalysisHandler{svc: svc, logger: logger}
}

// logFailure levels by blame: contract violations are routine client traffic
// and log at Warn, anything else is ours and logs at Error.
func (h *AnalysisHandler) logFailure(msg string, err error, fields ...logging.Field) {
	fields = append(fields, logging.Err(err))
	if errors.IsContractViolation(err) {
		h.logger.Warn(msg, fields...)
		return
	}
	h.logger.Error(msg, fields...)
}

// Analyze handles POST /api/v1/analyses.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req analysis.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.svc.AnalyzeProperty(c.Request.Context(), &req)
	if err != nil {
		h.logFailure("analysis failed", err, logging.String("parcel_id", req.Subject.ParcelID))
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// AnalyzeBatch handles POST /api/v1/analyses/batch.
func (h *AnalysisHandler) AnalyzeBatch(c *gin.Context) {
	var req analysis.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.svc.AnalyzeBatch(c.Request.Context(), &req)
	if err != nil {
		h.logFailure("batch analysis failed", err, logging.Int("items", len(req.Items)))
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// CompareRequest carries the two analyses to diff.
type CompareRequest struct {
	Prior   *analysis.AnalysisResult `json:"prior"`
	Current *analysis.AnalysisResult `json:"current"`
}

// Compare handles POST /api/v1/analyses/compare.
func (h *AnalysisHandler) Compare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	comparison, err := h.svc.CompareAnalyses(req.Prior, req.Current)
	if err != nil {
		h.logFailure("comparison failed", err)
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, comparison)
}

// ExportRequest carries a completed result and the desired format.
type ExportRequest struct {
	Result *analysis.AnalysisResult `json:"result"`
	Format string                   `json:"format"`
}

// Export handles POST /api/v1/analyses/export.  Unlike the other endpoints
// it returns the raw document, not the envelope, so the bytes can be saved
// as a file directly.
func (h *AnalysisHandler) Export(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	format, err := analysis.ParseExportFormat(req.Format)
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := h.svc.ExportAnalysis(req.Result, format)
	if err != nil {
		h.logFailure("export failed", err, logging.String("format", string(format)))
		respondError(c, err)
		return
	}

	contentType := "application/json"
	if format == analysis.ExportCSV {
		contentType = "text/csv"
	}
	filename := fmt.Sprintf("analysis-%s.%s", req.Result.ParcelID, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

// Thresholds handles GET /api/v1/thresholds, exposing the decision-constant
// table currently in effect.
func (h *AnalysisHandler) Thresholds(c *gin.Context) {
	respond(c, http.StatusOK, h.svc.Thresholds())
}
