// Package analysis is the application-level service for property appeal
// analysis.  It orchestrates the pure domain engine (comparable selection,
// the two case builders, the strategy decision, the opportunity score) and
// owns everything the engine deliberately does not: request validation,
// concurrency, caching, metrics, and the result envelope.
package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/appeal"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/comps"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/property"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/infrastructure/monitoring/logging"
	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/errors"
)

// validate is the shared request validator; tags follow go-playground
// semantics.
var validate = validator.New()

// ---------------------------------------------------------------------------
// DTOs -- Request / Response
// ---------------------------------------------------------------------------

// OptionOverrides carries per-request engine knob overrides.  Nil fields fall
// back to the deployment defaults; the valuation date is never defaulted and
// travels on the request itself.
type OptionOverrides struct {
	MaxComparables         *int     `json:"max_comparables,omitempty" validate:"omitempty,gte=1,lte=100"`
	MaxDistanceMiles       *float64 `json:"max_distance_miles,omitempty" validate:"omitempty,gt=0"`
	RecentSaleWindowMonths *int     `json:"recent_sale_window_months,omitempty" validate:"omitempty,gte=1"`
	MinDollarFloor         *float64 `json:"min_dollar_floor,omitempty" validate:"omitempty,gte=0"`
	AssessmentRatio        *float64 `json:"assessment_ratio,omitempty" validate:"omitempty,gt=0,lte=1"`
}

// AnalyzeRequest is the input for a single-property analysis.  Subject and
// pool contracts (parcel ID, coordinates, non-empty pool) are enforced by the
// domain so their error codes survive to the API surface.
type AnalyzeRequest struct {
	// RequestID is an optional caller correlation ID echoed in the result.
	RequestID     string            `json:"request_id,omitempty" validate:"omitempty,max=128"`
	Subject       property.Record   `json:"subject"`
	Pool          []property.Record `json:"pool"`
	ValuationDate time.Time         `json:"valuation_date"`
	Options       *OptionOverrides  `json:"options,omitempty"`
}

// Validate checks the request shape.  Domain contracts are checked later so
// subject/pool/date violations keep their specific error codes.
func (r *AnalyzeRequest) Validate() error {
	if r == nil {
		return errors.Validation("analyze request is required")
	}
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "analyze request failed validation")
	}
	return nil
}

// BatchItem is one property in a batch analysis.
type BatchItem struct {
	RequestID string            `json:"request_id,omitempty" validate:"omitempty,max=128"`
	Subject   property.Record   `json:"subject"`
	Pool      []property.Record `json:"pool"`
}

// BatchRequest analyses many properties against one valuation date.
type BatchRequest struct {
	Items         []BatchItem      `json:"items" validate:"dive"`
	ValuationDate time.Time        `json:"valuation_date"`
	Options       *OptionOverrides `json:"options,omitempty"`

	// Concurrency overrides the service's worker count for this batch.
	Concurrency int `json:"concurrency,omitempty" validate:"omitempty,gte=1,lte=64"`
}

// Validate checks the batch shape.
func (r *BatchRequest) Validate() error {
	if r == nil {
		return errors.Validation("batch request is required")
	}
	if len(r.Items) == 0 {
		return errors.New(errors.ErrCodeBatchEmpty, "batch contains no properties to analyze")
	}
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "batch request failed validation")
	}
	return nil
}

// AnalysisResult is the full analysis of one property plus the service
// envelope.  The engine fields are deterministic for identical inputs; the
// envelope (analysis ID, timestamps) is expressly not.
type AnalysisResult struct {
	AnalysisID        string    `json:"analysis_id"`
	RequestID         string    `json:"request_id,omitempty"`
	ParcelID          string    `json:"parcel_id"`
	ThresholdsVersion string    `json:"thresholds_version"`
	ValuationDate     time.Time `json:"valuation_date"`

	Subject     property.Record             `json:"subject"`
	Quality     comps.Quality               `json:"comparable_quality"`
	MarketValue appeal.MarketValueCase      `json:"market_value_case"`
	Uniformity  appeal.UniformityCase       `json:"uniformity_case"`
	Decision    appeal.StrategyDecision     `json:"strategy_decision"`
	NoAppeal    *appeal.NoAppealExplanation `json:"no_appeal_explanation,omitempty"`
	Opportunity appeal.OpportunityScore     `json:"opportunity_score"`

	GeneratedAt time.Time `json:"generated_at"`
	DurationMS  int64     `json:"duration_ms"`
}

// BatchItemResult is the outcome for one batch entry.  Exactly one of Result
// and Error is populated.
type BatchItemResult struct {
	RequestID string          `json:"request_id,omitempty"`
	ParcelID  string          `json:"parcel_id"`
	Result    *AnalysisResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Total             int            `json:"total"`
	Succeeded         int            `json:"succeeded"`
	Failed            int            `json:"failed"`
	ByStrategy        map[string]int `json:"by_strategy"`
	FilingRecommended int            `json:"filing_recommended"`
	AverageScore      float64        `json:"average_score"`
}

// BatchResult is the output of a batch analysis.  Results keep the input
// order so callers can line them up with their submission.
type BatchResult struct {
	Results     []BatchItemResult `json:"results"`
	Summary     BatchSummary      `json:"summary"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// ---------------------------------------------------------------------------
// Ports (adapter interfaces for infrastructure)
// ---------------------------------------------------------------------------

// Cache stores serialized analysis results keyed by request fingerprint.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MetricsRecorder records operational metrics for analyses.
type MetricsRecorder interface {
	ObserveAnalysis(strategy string, score int, duration time.Duration)
	ObserveBatch(size, failed int, duration time.Duration)
}

// noopCache is used when no cache is provided.
type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]byte, error)              { return nil, fmt.Errorf("cache miss") }
func (noopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (noopCache) Delete(context.Context, string) error                     { return nil }

// noopMetrics is used when no recorder is provided.
type noopMetrics struct{}

func (noopMetrics) ObserveAnalysis(string, int, time.Duration) {}
func (noopMetrics) ObserveBatch(int, int, time.Duration)       {}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service exposes property appeal analysis to the interface layers.
type Service interface {
	// AnalyzeProperty runs the full pipeline for one property: comparable
	// selection, both case builders, the strategy decision, and the
	// opportunity score.
	AnalyzeProperty(ctx context.Context, req *AnalyzeRequest) (*AnalysisResult, error)

	// AnalyzeBatch analyses many properties concurrently, capturing
	// per-item failures without failing the batch.
	AnalyzeBatch(ctx context.Context, req *BatchRequest) (*BatchResult, error)

	// CompareAnalyses diffs two analyses of the same parcel.
	CompareAnalyses(prior, current *AnalysisResult) (*AnalysisComparison, error)

	// ExportAnalysis serializes a result into the requested format.
	ExportAnalysis(result *AnalysisResult, format ExportFormat) ([]byte, error)

	// Thresholds returns the decision-constant table currently in effect.
	Thresholds() appeal.Thresholds

	// UpdateThresholds swaps in a new table, typically on config reload.
	// Invalid tables are rejected and the current one stays in effect.
	UpdateThresholds(t appeal.Thresholds) error
}

// ServiceConfig holds the service's tuneables.
type ServiceConfig struct {
	// Defaults are the deployment-wide engine knobs requests may override.
	Defaults appeal.Options

	// Thresholds is the versioned decision-constant table.
	Thresholds appeal.Thresholds

	// Concurrency bounds the batch worker pool.
	Concurrency int

	// CacheTTL bounds how long a cached analysis is served.
	CacheTTL time.Duration
}

// Deps are the service's infrastructure dependencies; nil entries fall back
// to no-op implementations.
type Deps struct {
	Logger  logging.Logger
	Cache   Cache
	Metrics MetricsRecorder
}

const (
	defaultConcurrency = 8
	defaultCacheTTL    = 15 * time.Minute

	cacheKeyPrefixAnalysis = "analysis:"
)

type serviceImpl struct {
	defaults    appeal.Options
	concurrency int
	cacheTTL    time.Duration

	mu         sync.RWMutex
	thresholds appeal.Thresholds

	logger  logging.Logger
	cache   Cache
	metrics MetricsRecorder
}

// NewService constructs the analysis service.  A zero-valued thresholds table
// falls back to the current defaults; an invalid one is an error.
func NewService(cfg ServiceConfig, deps Deps) (Service, error) {
	if cfg.Defaults == (appeal.Options{}) {
		cfg.Defaults = appeal.DefaultOptions()
	}
	if cfg.Thresholds.Version == "" {
		cfg.Thresholds = appeal.DefaultThresholds()
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Cache == nil {
		deps.Cache = noopCache{}
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	return &serviceImpl{
		defaults:    cfg.Defaults,
		concurrency: cfg.Concurrency,
		cacheTTL:    cfg.CacheTTL,
		thresholds:  cfg.Thresholds,
		logger:      deps.Logger,
		cache:       deps.Cache,
		metrics:     deps.Metrics,
	}, nil
}

// Thresholds returns a snapshot of the active table.
func (s *serviceImpl) Thresholds() appeal.Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thresholds
}

// UpdateThresholds validates and swaps in a new table.
func (s *serviceImpl) UpdateThresholds(t appeal.Thresholds) error {
	if err := t.Validate(); err != nil {
		s.logger.Error("rejected thresholds update",
			logging.String("version", t.Version), logging.Err(err))
		return err
	}
	s.mu.Lock()
	s.thresholds = t
	s.mu.Unlock()
	s.logger.Info("thresholds table updated", logging.String("version", t.Version))
	return nil
}

// ---------------------------------------------------------------------------
// AnalyzeProperty
// ---------------------------------------------------------------------------

func (s *serviceImpl) AnalyzeProperty(ctx context.Context, req *AnalyzeRequest) (*AnalysisResult, error) {
	start := time.Now()

	// 1. Request shape, then engine options.  Domain codes win over shape
	// codes, so the date and knob checks run through the domain validator.
	if err := req.Validate(); err != nil {
		return nil, err
	}
	opts := s.resolveOptions(req.ValuationDate, req.Options)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	th := s.Thresholds()

	// 2. Serve a cached analysis when the fingerprint matches.
	key := analysisCacheKey(req.Subject, req.Pool, opts, th.Version)
	if data, err := s.cache.Get(ctx, key); err == nil && len(data) > 0 {
		var cached AnalysisResult
		if json.Unmarshal(data, &cached) == nil {
			cached.RequestID = req.RequestID
			s.logger.Debug("analysis cache hit",
				logging.String("parcel_id", req.Subject.ParcelID))
			return &cached, nil
		}
	}

	// 3. Comparable selection; contract violations surface here.
	quality, err := comps.SelectComparables(req.Subject, req.Pool, th.SelectorParams(opts))
	if err != nil {
		s.logger.Warn("comparable selection rejected request",
			logging.String("parcel_id", req.Subject.ParcelID), logging.Err(err))
		return nil, err
	}

	// 4. Both case builders run concurrently; each is pure.
	var (
		mv  appeal.MarketValueCase
		uni appeal.UniformityCase
		wg  sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		mv = appeal.BuildMarketValueCase(req.Subject, quality, opts, th)
	}()
	go func() {
		defer wg.Done()
		uni = appeal.BuildUniformityCase(req.Subject, quality, opts, th)
	}()
	wg.Wait()

	// 5. Strategy and opportunity.
	decision, noAppeal := appeal.DecideStrategy(mv, uni, quality, req.Subject, opts, th)
	opportunity := appeal.ScoreOpportunity(decision, mv, uni, req.Subject, th)

	result := &AnalysisResult{
		AnalysisID:        uuid.New().String(),
		RequestID:         req.RequestID,
		ParcelID:          req.Subject.ParcelID,
		ThresholdsVersion: th.Version,
		ValuationDate:     opts.ValuationDate,
		Subject:           req.Subject,
		Quality:           quality,
		MarketValue:       mv,
		Uniformity:        uni,
		Decision:          decision,
		NoAppeal:          noAppeal,
		Opportunity:       opportunity,
		GeneratedAt:       time.Now().UTC(),
		DurationMS:        time.Since(start).Milliseconds(),
	}

	// 6. Cache and record; both best-effort.
	if data, marshalErr := json.Marshal(result); marshalErr == nil {
		if cacheErr := s.cache.Set(ctx, key, data, s.cacheTTL); cacheErr != nil {
			s.logger.Warn("failed to cache analysis", logging.Err(cacheErr))
		}
	}
	s.metrics.ObserveAnalysis(string(decision.Strategy), opportunity.Score, time.Since(start))
	s.logger.Info("property analyzed",
		logging.String("parcel_id", req.Subject.ParcelID),
		logging.String("strategy", string(decision.Strategy)),
		logging.Int("opportunity_score", opportunity.Score),
		logging.Duration("took", time.Since(start)))

	return result, nil
}

// resolveOptions layers request overrides on the deployment defaults.
func (s *serviceImpl) resolveOptions(valuationDate time.Time, o *OptionOverrides) appeal.Options {
	opts := s.defaults
	opts.ValuationDate = valuationDate
	if o == nil {
		return opts
	}
	if o.MaxComparables != nil {
		opts.MaxComparables = *o.MaxComparables
	}
	if o.MaxDistanceMiles != nil {
		opts.MaxDistanceMiles = *o.MaxDistanceMiles
	}
	if o.RecentSaleWindowMonths != nil {
		opts.RecentSaleWindowMonths = *o.RecentSaleWindowMonths
	}
	if o.MinDollarFloor != nil {
		opts.MinDollarFloor = *o.MinDollarFloor
	}
	if o.AssessmentRatio != nil {
		opts.AssessmentRatio = *o.AssessmentRatio
	}
	return opts
}

// ---------------------------------------------------------------------------
// AnalyzeBatch
// ---------------------------------------------------------------------------

func (s *serviceImpl) AnalyzeBatch(ctx context.Context, req *BatchRequest) (*BatchResult, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	concurrency := s.concurrency
	if req.Concurrency > 0 {
		concurrency = req.Concurrency
	}

	// Indexed results keep input order without locking.
	results := make([]BatchItemResult, len(req.Items))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, item := range req.Items {
		wg.Add(1)
		go func(idx int, it BatchItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			itemResult := BatchItemResult{
				RequestID: it.RequestID,
				ParcelID:  it.Subject.ParcelID,
			}
			res, err := s.AnalyzeProperty(ctx, &AnalyzeRequest{
				RequestID:     it.RequestID,
				Subject:       it.Subject,
				Pool:          it.Pool,
				ValuationDate: req.ValuationDate,
				Options:       req.Options,
			})
			if err != nil {
				itemResult.Error = err.Error()
				itemResult.ErrorCode = errors.GetCode(err).String()
			} else {
				itemResult.Result = res
			}
			results[idx] = itemResult
		}(i, item)
	}
	wg.Wait()

	summary := summarizeBatch(results)
	s.metrics.ObserveBatch(summary.Total, summary.Failed, time.Since(start))
	s.logger.Info("batch analyzed",
		logging.Int("total", summary.Total),
		logging.Int("failed", summary.Failed),
		logging.Int("filing_recommended", summary.FilingRecommended),
		logging.Duration("took", time.Since(start)))

	return &BatchResult{
		Results:     results,
		Summary:     summary,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func summarizeBatch(results []BatchItemResult) BatchSummary {
	summary := BatchSummary{
		Total:      len(results),
		ByStrategy: make(map[string]int),
	}
	scoreSum := 0
	for _, r := range results {
		if r.Result == nil {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		summary.ByStrategy[string(r.Result.Decision.Strategy)]++
		if r.Result.Decision.Strategy != appeal.StrategyDoNotFile {
			summary.FilingRecommended++
		}
		scoreSum += r.Result.Opportunity.Score
	}
	if summary.Succeeded > 0 {
		summary.AverageScore = float64(scoreSum) / float64(summary.Succeeded)
	}
	return summary
}

// ---------------------------------------------------------------------------
// Cache fingerprint
// ---------------------------------------------------------------------------

// analysisCacheKey fingerprints everything the engine's answer depends on.
// The pool is canonicalized by parcel ID first so a reshuffled pool still
// hits; the selector's own ordering is pool-order independent.
func analysisCacheKey(subject property.Record, pool []property.Record, opts appeal.Options, thresholdsVersion string) string {
	canonical := make([]property.Record, len(pool))
	copy(canonical, pool)
	sort.SliceStable(canonical, func(i, j int) bool {
		return canonical[i].ParcelID < canonical[j].ParcelID
	})

	payload := struct {
		Subject           property.Record   `json:"subject"`
		Pool              []property.Record `json:"pool"`
		Options           appeal.Options    `json:"options"`
		ThresholdsVersion string            `json:"thresholds_version"`
	}{subject, canonical, opts, thresholdsVersion}

	data, err := json.Marshal(payload)
	if err != nil {
		// Records are plain data; marshalling cannot fail in practice.
		// Fall back to an uncacheable key rather than panic.
		return cacheKeyPrefixAnalysis + "unfingerprintable:" + subject.ParcelID
	}
	sum := sha256.Sum256(data)
	return cacheKeyPrefixAnalysis + hex.EncodeToString(sum[:])
}
