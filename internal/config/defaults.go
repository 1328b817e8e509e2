package config

import (
	"time"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/appeal"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/comps"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort            = 8080
	DefaultServerMode            = "debug"
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 30 * time.Second
	DefaultServerMaxBodySize     = 8 << 20 // 8 MiB; batch requests carry full candidate pools
	DefaultServerShutdownTimeout = 30 * time.Second

	DefaultCacheTTL             = 15 * time.Minute
	DefaultCacheMaxEntries      = 4096
	DefaultCacheCleanupInterval = 5 * time.Minute
	DefaultCacheKeyPrefix       = "appeal:"

	DefaultWorkerConcurrency = 8
	DefaultWorkerQueueDepth  = 64

	DefaultMetricsNamespace = "appeal"
	DefaultMetricsSubsystem = "engine"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the service default.
// Fields already set by the caller are left unchanged so that explicit
// configuration always wins.  Engine knobs and the thresholds table pull
// their defaults from the domain package, keeping the config file, the CLI,
// and the API on one source of truth.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultServerMaxBodySize
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	def := appeal.DefaultOptions()
	if cfg.Engine.MaxComparables == 0 {
		cfg.Engine.MaxComparables = def.MaxComparables
	}
	if cfg.Engine.MaxDistanceMiles == 0 {
		cfg.Engine.MaxDistanceMiles = def.MaxDistanceMiles
	}
	if cfg.Engine.RecentSaleWindowMonths == 0 {
		cfg.Engine.RecentSaleWindowMonths = def.RecentSaleWindowMonths
	}
	if cfg.Engine.MinDollarFloor == 0 {
		cfg.Engine.MinDollarFloor = def.MinDollarFloor
	}
	if cfg.Engine.AssessmentRatio == 0 {
		cfg.Engine.AssessmentRatio = def.AssessmentRatio
	}

	// ── Thresholds ────────────────────────────────────────────────────────────
	applyThresholdDefaults(&cfg.Thresholds)

	// ── Cache ─────────────────────────────────────────────────────────────────
	if cfg.Cache.DefaultTTL == 0 {
		cfg.Cache.DefaultTTL = DefaultCacheTTL
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.Cache.CleanupInterval == 0 {
		cfg.Cache.CleanupInterval = DefaultCacheCleanupInterval
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = DefaultCacheKeyPrefix
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.QueueDepth == 0 {
		cfg.Worker.QueueDepth = DefaultWorkerQueueDepth
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = DefaultMetricsSubsystem
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// applyThresholdDefaults fills zero-value threshold fields from the domain's
// current table.  The composite blocks (selector weights, quality buckets,
// discounts) default as a whole: an all-zero block cannot be told apart from
// an absent one, while a partially-set block is taken as deliberate and left
// for Validate to judge.
func applyThresholdDefaults(t *appeal.Thresholds) {
	d := appeal.DefaultThresholds()

	if t.Version == "" {
		t.Version = d.Version
	}
	if t.Selector == (comps.Weights{}) {
		t.Selector = d.Selector
	}
	if t.QualityBuckets == (comps.Buckets{}) {
		t.QualityBuckets = d.QualityBuckets
	}
	if t.MinUsableComps == 0 {
		t.MinUsableComps = d.MinUsableComps
	}
	if t.MVMinSalesForSalesBasis == 0 {
		t.MVMinSalesForSalesBasis = d.MVMinSalesForSalesBasis
	}
	if t.MVStrongMinReductionPct == 0 {
		t.MVStrongMinReductionPct = d.MVStrongMinReductionPct
	}
	if t.MVModerateMinReductionPct == 0 {
		t.MVModerateMinReductionPct = d.MVModerateMinReductionPct
	}
	if t.MVFallbackConfidenceCap == 0 {
		t.MVFallbackConfidenceCap = d.MVFallbackConfidenceCap
	}
	if t.PoorQualityConfidenceCap == 0 {
		t.PoorQualityConfidenceCap = d.PoorQualityConfidenceCap
	}
	if t.UNITargetPercentile == 0 {
		t.UNITargetPercentile = d.UNITargetPercentile
	}
	if t.UNIStrongMinPercentile == 0 {
		t.UNIStrongMinPercentile = d.UNIStrongMinPercentile
	}
	if t.UNIModerateMinPercentile == 0 {
		t.UNIModerateMinPercentile = d.UNIModerateMinPercentile
	}
	if t.UNIMaxCODForStrong == 0 {
		t.UNIMaxCODForStrong = d.UNIMaxCODForStrong
	}
	if t.UNIMaxCODForModerate == 0 {
		t.UNIMaxCODForModerate = d.UNIMaxCODForModerate
	}
	if t.UNIMinCOD == 0 {
		t.UNIMinCOD = d.UNIMinCOD
	}
	if t.UNIMinCompsPerSqft == 0 {
		t.UNIMinCompsPerSqft = d.UNIMinCompsPerSqft
	}
	if t.QualityDiscounts == (appeal.QualityDiscounts{}) {
		t.QualityDiscounts = d.QualityDiscounts
	}
	if t.FilingThresholdScore == 0 {
		t.FilingThresholdScore = d.FilingThresholdScore
	}
	if t.HighScoreBand == 0 {
		t.HighScoreBand = d.HighScoreBand
	}
	if t.MediumScoreBand == 0 {
		t.MediumScoreBand = d.MediumScoreBand
	}
	if t.OpportunityDecay == 0 {
		t.OpportunityDecay = d.OpportunityDecay
	}
	if t.StateEqualizer == 0 {
		t.StateEqualizer = d.StateEqualizer
	}
	if t.EffectiveTaxRate == 0 {
		t.EffectiveTaxRate = d.EffectiveTaxRate
	}
}
