package analysis

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/appeal"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/comps"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/property"
	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/errors"
)

func TestNewService(t *testing.T) {
	svc, err := NewService(ServiceConfig{}, Deps{})
	if err != nil {
		t.Fatalf("NewService with zero config failed: %v", err)
	}
	got := svc.Thresholds()
	want := appeal.DefaultThresholds()
	if got.Version != want.Version {
		t.Errorf("Thresholds().Version = %q, want default %q", got.Version, want.Version)
	}
}

func TestNewService_RejectsInvalidThresholds(t *testing.T) {
	// A version is set, so no default fill happens and the zero weights fail
	// validation.
	_, err := NewService(ServiceConfig{Thresholds: appeal.Thresholds{Version: "broken"}}, Deps{})
	if err == nil {
		t.Fatal("expected error for invalid thresholds table")
	}
	if !errors.IsCode(err, errors.ErrCodeThresholdsInvalid) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeThresholdsInvalid)
	}
}

func TestAnalyzeProperty_StrongBothCases(t *testing.T) {
	cache := newMockCache()
	metrics := newMockMetrics()
	svc := buildAnalysisTestService(t, cache, metrics)

	req := analyzeReq(analysisSubject(), salesPool())
	req.RequestID = "req-001"

	res, err := svc.AnalyzeProperty(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeProperty failed: %v", err)
	}

	if res.AnalysisID == "" {
		t.Error("expected a non-empty analysis ID")
	}
	if res.RequestID != "req-001" {
		t.Errorf("RequestID = %q, want %q", res.RequestID, "req-001")
	}
	if res.ParcelID != "19-01-100-001-0000" {
		t.Errorf("ParcelID = %q, want the subject's parcel", res.ParcelID)
	}
	if want := appeal.DefaultThresholds().Version; res.ThresholdsVersion != want {
		t.Errorf("ThresholdsVersion = %q, want %q", res.ThresholdsVersion, want)
	}
	if !res.ValuationDate.Equal(analysisDate) {
		t.Errorf("ValuationDate = %v, want %v", res.ValuationDate, analysisDate)
	}
	if res.GeneratedAt.IsZero() {
		t.Error("expected GeneratedAt to be set")
	}

	if got := len(res.Quality.Comparables); got != 3 {
		t.Fatalf("selected %d comparables, want 3", got)
	}
	if res.Quality.Assessment != comps.AssessmentExcellent {
		t.Errorf("quality assessment = %q, want excellent (tight, complete comps)", res.Quality.Assessment)
	}
	if res.MarketValue.Strength != appeal.StrengthStrong {
		t.Errorf("market-value strength = %q, want strong", res.MarketValue.Strength)
	}
	if res.Uniformity.Strength != appeal.StrengthStrong {
		t.Errorf("uniformity strength = %q, want strong", res.Uniformity.Strength)
	}
	if res.Decision.Strategy != appeal.StrategyFileBoth {
		t.Errorf("strategy = %q, want file_both", res.Decision.Strategy)
	}
	if res.Decision.PrimaryCase != appeal.PrimaryMarketValue {
		t.Errorf("primary case = %q, want market_value (larger reduction)", res.Decision.PrimaryCase)
	}
	if res.NoAppeal != nil {
		t.Errorf("unexpected no-appeal explanation on a filing decision: %+v", res.NoAppeal)
	}
	if res.Opportunity.Score < 70 {
		t.Errorf("opportunity score = %d, want high band (>= 70)", res.Opportunity.Score)
	}
	if res.Opportunity.ConfidenceLabel != appeal.ConfidenceHigh {
		t.Errorf("confidence label = %q, want high", res.Opportunity.ConfidenceLabel)
	}

	gets, sets := cache.calls()
	if gets != 1 || sets != 1 {
		t.Errorf("cache calls = %d gets / %d sets, want 1 / 1", gets, sets)
	}
	obs := metrics.analysisObservations()
	if len(obs) != 1 {
		t.Fatalf("recorded %d analysis observations, want 1", len(obs))
	}
	if obs[0].strategy != string(appeal.StrategyFileBoth) || obs[0].score != res.Opportunity.Score {
		t.Errorf("observation = %+v, want strategy file_both with score %d", obs[0], res.Opportunity.Score)
	}
}

func TestAnalyzeProperty_DoNotFile(t *testing.T) {
	svc := buildAnalysisTestService(t, nil, nil)

	// Assessed below its peers with no sale evidence: both cases weak.
	subject := analysisSubject()
	subject.AssessedValue = 20000

	res, err := svc.AnalyzeProperty(context.Background(), analyzeReq(subject, weakPool()))
	if err != nil {
		t.Fatalf("AnalyzeProperty failed: %v", err)
	}

	if res.Decision.Strategy != appeal.StrategyDoNotFile {
		t.Fatalf("strategy = %q, want do_not_file", res.Decision.Strategy)
	}
	if res.NoAppeal == nil {
		t.Fatal("expected a no-appeal explanation for a do_not_file decision")
	}
	if res.NoAppeal.MainReason == "" {
		t.Error("expected a main reason in the no-appeal explanation")
	}
	if !containsString(res.Decision.GatesFired, appeal.GateBothCasesWeak) {
		t.Errorf("GatesFired = %v, want %q listed", res.Decision.GatesFired, appeal.GateBothCasesWeak)
	}
	if !containsString(res.Decision.GatesFired, appeal.GateBelowDollarFloor) {
		t.Errorf("GatesFired = %v, want %q listed", res.Decision.GatesFired, appeal.GateBelowDollarFloor)
	}
	if res.Decision.Confidence != 0 {
		t.Errorf("decision confidence = %.2f, want 0 for do_not_file", res.Decision.Confidence)
	}
	if res.Opportunity.Score >= appeal.DefaultThresholds().FilingThresholdScore {
		t.Errorf("opportunity score = %d, want below the filing threshold", res.Opportunity.Score)
	}
	if res.Opportunity.ConfidenceLabel != appeal.ConfidenceLow {
		t.Errorf("confidence label = %q, want low", res.Opportunity.ConfidenceLabel)
	}
}

func TestAnalyzeProperty_RequestValidation(t *testing.T) {
	svc := buildAnalysisTestService(t, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		req      *AnalyzeRequest
		wantCode errors.ErrorCode
	}{
		{
			name:     "nil request",
			req:      nil,
			wantCode: errors.ErrCodeValidation,
		},
		{
			name: "overlong request id",
			req: func() *AnalyzeRequest {
				r := analyzeReq(analysisSubject(), salesPool())
				r.RequestID = strings.Repeat("x", 129)
				return r
			}(),
			wantCode: errors.ErrCodeValidation,
		},
		{
			name: "assessment ratio above one",
			req: func() *AnalyzeRequest {
				r := analyzeReq(analysisSubject(), salesPool())
				r.Options = &OptionOverrides{AssessmentRatio: floatPtr(1.5)}
				return r
			}(),
			wantCode: errors.ErrCodeValidation,
		},
		{
			name: "zero max comparables override",
			req: func() *AnalyzeRequest {
				r := analyzeReq(analysisSubject(), salesPool())
				r.Options = &OptionOverrides{MaxComparables: intPtr(0)}
				return r
			}(),
			wantCode: errors.ErrCodeValidation,
		},
		{
			name:     "missing valuation date",
			req:      &AnalyzeRequest{Subject: analysisSubject(), Pool: salesPool()},
			wantCode: errors.ErrCodeValuationDateRequired,
		},
		{
			name:     "empty pool",
			req:      analyzeReq(analysisSubject(), nil),
			wantCode: errors.ErrCodeEmptyCandidatePool,
		},
		{
			name: "subject without parcel id",
			req: func() *AnalyzeRequest {
				subject := analysisSubject()
				subject.ParcelID = ""
				return analyzeReq(subject, salesPool())
			}(),
			wantCode: errors.ErrCodeSubjectMissingParcelID,
		},
		{
			name: "subject without assessment",
			req: func() *AnalyzeRequest {
				subject := analysisSubject()
				subject.AssessedValue = 0
				return analyzeReq(subject, salesPool())
			}(),
			wantCode: errors.ErrCodeSubjectInvalidAssessment,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.AnalyzeProperty(ctx, tt.req)
			if err == nil {
				t.Fatalf("expected error, got result %+v", res)
			}
			if !errors.IsCode(err, tt.wantCode) {
				t.Errorf("error code = %v, want %v (err: %v)", errors.GetCode(err), tt.wantCode, err)
			}
			if !errors.IsContractViolation(err) {
				t.Errorf("expected a contract violation, got %v", err)
			}
		})
	}
}

func TestAnalyzeProperty_OptionOverrides(t *testing.T) {
	svc := buildAnalysisTestService(t, nil, nil)

	req := analyzeReq(analysisSubject(), salesPool())
	req.Options = &OptionOverrides{MaxComparables: intPtr(2)}

	res, err := svc.AnalyzeProperty(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeProperty failed: %v", err)
	}
	if got := len(res.Quality.Comparables); got != 2 {
		t.Errorf("selected %d comparables, want the override cap of 2", got)
	}
	if res.MarketValue.Sales.SaleCount != 2 {
		t.Errorf("sale count = %d, want 2 (both kept comps sold)", res.MarketValue.Sales.SaleCount)
	}
	if res.MarketValue.Methodology != appeal.MethodologySalesComparison {
		t.Errorf("methodology = %q, want sales comparison to survive the cap", res.MarketValue.Methodology)
	}
}

func TestAnalyzeProperty_CacheHit(t *testing.T) {
	cache := newMockCache()
	metrics := newMockMetrics()
	svc := buildAnalysisTestService(t, cache, metrics)
	ctx := context.Background()

	first := analyzeReq(analysisSubject(), salesPool())
	first.RequestID = "req-first"
	res1, err := svc.AnalyzeProperty(ctx, first)
	if err != nil {
		t.Fatalf("first AnalyzeProperty failed: %v", err)
	}

	second := analyzeReq(analysisSubject(), salesPool())
	second.RequestID = "req-second"
	res2, err := svc.AnalyzeProperty(ctx, second)
	if err != nil {
		t.Fatalf("second AnalyzeProperty failed: %v", err)
	}

	if res2.AnalysisID != res1.AnalysisID {
		t.Errorf("cache hit returned a new analysis ID %q, want %q", res2.AnalysisID, res1.AnalysisID)
	}
	// The correlation ID follows the request even on a hit.
	if res2.RequestID != "req-second" {
		t.Errorf("RequestID = %q, want the second request's %q", res2.RequestID, "req-second")
	}
	gets, sets := cache.calls()
	if gets != 2 || sets != 1 {
		t.Errorf("cache calls = %d gets / %d sets, want 2 / 1", gets, sets)
	}
	if got := len(metrics.analysisObservations()); got != 1 {
		t.Errorf("recorded %d analysis observations, want 1 (hits are not re-observed)", got)
	}
}

func TestAnalyzeProperty_CacheKeyIgnoresPoolOrder(t *testing.T) {
	cache := newMockCache()
	svc := buildAnalysisTestService(t, cache, newMockMetrics())
	ctx := context.Background()

	res1, err := svc.AnalyzeProperty(ctx, analyzeReq(analysisSubject(), salesPool()))
	if err != nil {
		t.Fatalf("first AnalyzeProperty failed: %v", err)
	}

	reversed := salesPool()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	res2, err := svc.AnalyzeProperty(ctx, analyzeReq(analysisSubject(), reversed))
	if err != nil {
		t.Fatalf("second AnalyzeProperty failed: %v", err)
	}

	if res2.AnalysisID != res1.AnalysisID {
		t.Error("a reshuffled pool missed the cache; the fingerprint should be order-independent")
	}
	gets, sets := cache.calls()
	if gets != 2 || sets != 1 {
		t.Errorf("cache calls = %d gets / %d sets, want 2 / 1", gets, sets)
	}
}

func TestAnalyzeProperty_CacheFailuresAreNonFatal(t *testing.T) {
	cache := newMockCache()
	cache.getErr = fmt.Errorf("backend down")
	cache.setErr = fmt.Errorf("backend down")
	svc := buildAnalysisTestService(t, cache, nil)

	res, err := svc.AnalyzeProperty(context.Background(), analyzeReq(analysisSubject(), salesPool()))
	if err != nil {
		t.Fatalf("AnalyzeProperty failed on cache errors: %v", err)
	}
	if res.Decision.Strategy != appeal.StrategyFileBoth {
		t.Errorf("strategy = %q, want the analysis to proceed without the cache", res.Decision.Strategy)
	}
}

func TestAnalyzeProperty_Deterministic(t *testing.T) {
	// Two independent services, no shared cache: the engine fields must come
	// out identical while the envelope does not.
	svcA := buildAnalysisTestService(t, nil, nil)
	svcB := buildAnalysisTestService(t, nil, nil)
	ctx := context.Background()

	resA, err := svcA.AnalyzeProperty(ctx, analyzeReq(analysisSubject(), salesPool()))
	if err != nil {
		t.Fatalf("first AnalyzeProperty failed: %v", err)
	}
	resB, err := svcB.AnalyzeProperty(ctx, analyzeReq(analysisSubject(), salesPool()))
	if err != nil {
		t.Fatalf("second AnalyzeProperty failed: %v", err)
	}

	if !reflect.DeepEqual(resA.Quality, resB.Quality) {
		t.Error("comparable quality differs between identical runs")
	}
	if !reflect.DeepEqual(resA.MarketValue, resB.MarketValue) {
		t.Error("market-value case differs between identical runs")
	}
	if !reflect.DeepEqual(resA.Uniformity, resB.Uniformity) {
		t.Error("uniformity case differs between identical runs")
	}
	if !reflect.DeepEqual(resA.Decision, resB.Decision) {
		t.Error("strategy decision differs between identical runs")
	}
	if resA.Opportunity != resB.Opportunity {
		t.Errorf("opportunity differs between identical runs: %+v vs %+v", resA.Opportunity, resB.Opportunity)
	}
	if resA.AnalysisID == resB.AnalysisID {
		t.Error("analysis IDs should be unique per run")
	}
}

func TestUpdateThresholds(t *testing.T) {
	svc := buildAnalysisTestService(t, nil, nil)

	invalid := appeal.DefaultThresholds()
	invalid.Version = "bad"
	invalid.FilingThresholdScore = 200
	if err := svc.UpdateThresholds(invalid); err == nil {
		t.Fatal("expected an invalid table to be rejected")
	} else if !errors.IsCode(err, errors.ErrCodeThresholdsInvalid) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeThresholdsInvalid)
	}
	if got := svc.Thresholds().Version; got != appeal.DefaultThresholds().Version {
		t.Errorf("active version = %q, want the original to survive a rejected update", got)
	}

	updated := appeal.DefaultThresholds()
	updated.Version = "2026.0"
	updated.FilingThresholdScore = 50
	if err := svc.UpdateThresholds(updated); err != nil {
		t.Fatalf("UpdateThresholds failed: %v", err)
	}
	if got := svc.Thresholds().Version; got != "2026.0" {
		t.Errorf("active version = %q, want %q", got, "2026.0")
	}

	// Subsequent analyses carry the new version.
	res, err := svc.AnalyzeProperty(context.Background(), analyzeReq(analysisSubject(), salesPool()))
	if err != nil {
		t.Fatalf("AnalyzeProperty failed: %v", err)
	}
	if res.ThresholdsVersion != "2026.0" {
		t.Errorf("result thresholds version = %q, want %q", res.ThresholdsVersion, "2026.0")
	}
}

func TestAnalyzeBatch(t *testing.T) {
	cache := newMockCache()
	metrics := newMockMetrics()
	svc := buildAnalysisTestService(t, cache, metrics)

	weakSubject := analysisSubject()
	weakSubject.ParcelID = "19-01-100-009-0000"
	weakSubject.AssessedValue = 20000

	req := &BatchRequest{
		Items: []BatchItem{
			{RequestID: "item-a", Subject: analysisSubject(), Pool: salesPool()},
			{RequestID: "item-b", Subject: property.Record{ParcelID: "19-01-100-008-0000", Latitude: 41.75, Longitude: -87.68, SquareFeet: 1000, AssessedValue: 25000}},
			{RequestID: "item-c", Subject: weakSubject, Pool: weakPool()},
		},
		ValuationDate: analysisDate,
	}

	res, err := svc.AnalyzeBatch(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeBatch failed: %v", err)
	}
	if got := len(res.Results); got != 3 {
		t.Fatalf("got %d results, want 3", got)
	}

	// Results keep submission order.
	if res.Results[0].RequestID != "item-a" || res.Results[1].RequestID != "item-b" || res.Results[2].RequestID != "item-c" {
		t.Errorf("results out of order: %q, %q, %q",
			res.Results[0].RequestID, res.Results[1].RequestID, res.Results[2].RequestID)
	}

	if res.Results[0].Result == nil {
		t.Fatalf("item-a failed: %s", res.Results[0].Error)
	}
	if res.Results[0].Result.Decision.Strategy != appeal.StrategyFileBoth {
		t.Errorf("item-a strategy = %q, want file_both", res.Results[0].Result.Decision.Strategy)
	}

	if res.Results[1].Result != nil {
		t.Error("item-b should have failed on its empty pool")
	}
	if res.Results[1].Error == "" {
		t.Error("item-b is missing its error message")
	}
	if want := errors.ErrCodeEmptyCandidatePool.String(); res.Results[1].ErrorCode != want {
		t.Errorf("item-b error code = %q, want %q", res.Results[1].ErrorCode, want)
	}

	if res.Results[2].Result == nil {
		t.Fatalf("item-c failed: %s", res.Results[2].Error)
	}
	if res.Results[2].Result.Decision.Strategy != appeal.StrategyDoNotFile {
		t.Errorf("item-c strategy = %q, want do_not_file", res.Results[2].Result.Decision.Strategy)
	}

	sum := res.Summary
	if sum.Total != 3 || sum.Succeeded != 2 || sum.Failed != 1 {
		t.Errorf("summary counts = %d/%d/%d, want 3/2/1", sum.Total, sum.Succeeded, sum.Failed)
	}
	if sum.ByStrategy[string(appeal.StrategyFileBoth)] != 1 || sum.ByStrategy[string(appeal.StrategyDoNotFile)] != 1 {
		t.Errorf("ByStrategy = %v, want one file_both and one do_not_file", sum.ByStrategy)
	}
	if sum.FilingRecommended != 1 {
		t.Errorf("FilingRecommended = %d, want 1", sum.FilingRecommended)
	}
	if sum.AverageScore <= 0 || sum.AverageScore > 100 {
		t.Errorf("AverageScore = %.1f, want within (0, 100]", sum.AverageScore)
	}

	if got := len(metrics.analysisObservations()); got != 2 {
		t.Errorf("recorded %d analysis observations, want 2 (failures are not observed)", got)
	}
	batches := metrics.batchObservations()
	if len(batches) != 1 {
		t.Fatalf("recorded %d batch observations, want 1", len(batches))
	}
	if batches[0].size != 3 || batches[0].failed != 1 {
		t.Errorf("batch observation = %+v, want size 3 / failed 1", batches[0])
	}
}

func TestAnalyzeBatch_Validation(t *testing.T) {
	svc := buildAnalysisTestService(t, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		req      *BatchRequest
		wantCode errors.ErrorCode
	}{
		{
			name:     "nil request",
			req:      nil,
			wantCode: errors.ErrCodeValidation,
		},
		{
			name:     "no items",
			req:      &BatchRequest{ValuationDate: analysisDate},
			wantCode: errors.ErrCodeBatchEmpty,
		},
		{
			name: "concurrency above cap",
			req: &BatchRequest{
				Items:         []BatchItem{{Subject: analysisSubject(), Pool: salesPool()}},
				ValuationDate: analysisDate,
				Concurrency:   100,
			},
			wantCode: errors.ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AnalyzeBatch(ctx, tt.req)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsCode(err, tt.wantCode) {
				t.Errorf("error code = %v, want %v (err: %v)", errors.GetCode(err), tt.wantCode, err)
			}
		})
	}
}

func TestAnalyzeBatch_SharedOptionsAndConcurrency(t *testing.T) {
	svc := buildAnalysisTestService(t, nil, nil)

	items := make([]BatchItem, 12)
	for i := range items {
		subject := analysisSubject()
		subject.ParcelID = fmt.Sprintf("19-01-100-%03d-0000", i+1)
		items[i] = BatchItem{Subject: subject, Pool: salesPool()}
	}

	req := &BatchRequest{
		Items:         items,
		ValuationDate: analysisDate,
		Options:       &OptionOverrides{MaxComparables: intPtr(2)},
		Concurrency:   3,
	}

	res, err := svc.AnalyzeBatch(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeBatch failed: %v", err)
	}
	if res.Summary.Succeeded != 12 || res.Summary.Failed != 0 {
		t.Fatalf("summary = %d succeeded / %d failed, want 12 / 0", res.Summary.Succeeded, res.Summary.Failed)
	}
	for i, item := range res.Results {
		want := fmt.Sprintf("19-01-100-%03d-0000", i+1)
		if item.ParcelID != want {
			t.Fatalf("result %d parcel = %q, want %q (order must match submission)", i, item.ParcelID, want)
		}
		if item.Result == nil {
			t.Fatalf("result %d failed: %s", i, item.Error)
		}
		if got := len(item.Result.Quality.Comparables); got != 2 {
			t.Errorf("result %d selected %d comparables, want the shared override cap of 2", i, got)
		}
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
