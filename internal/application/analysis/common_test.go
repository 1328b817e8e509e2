package analysis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/property"
)

// ---------------------------------------------------------------------------
// Mock: Cache
// ---------------------------------------------------------------------------

// mockCache is mutex-guarded because batch analyses hit it from worker
// goroutines.
type mockCache struct {
	mu       sync.Mutex
	store    map[string][]byte
	getErr   error
	setErr   error
	getCalls int
	setCalls int
}

func newMockCache() *mockCache {
	return &mockCache{store: make(map[string][]byte)}
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.store[key]
	if !ok {
		return nil, fmt.Errorf("cache miss")
	}
	return data, nil
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	m.store[key] = value
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, key)
	return nil
}

func (m *mockCache) calls() (gets, sets int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCalls, m.setCalls
}

var _ Cache = (*mockCache)(nil)

// ---------------------------------------------------------------------------
// Mock: MetricsRecorder
// ---------------------------------------------------------------------------

type analysisObservation struct {
	strategy string
	score    int
}

type batchObservation struct {
	size   int
	failed int
}

type mockMetrics struct {
	mu       sync.Mutex
	analyses []analysisObservation
	batches  []batchObservation
}

func newMockMetrics() *mockMetrics { return &mockMetrics{} }

func (m *mockMetrics) ObserveAnalysis(strategy string, score int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses = append(m.analyses, analysisObservation{strategy: strategy, score: score})
}

func (m *mockMetrics) ObserveBatch(size, failed int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, batchObservation{size: size, failed: failed})
}

func (m *mockMetrics) analysisObservations() []analysisObservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]analysisObservation, len(m.analyses))
	copy(out, m.analyses)
	return out
}

func (m *mockMetrics) batchObservations() []batchObservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]batchObservation, len(m.batches))
	copy(out, m.batches)
	return out
}

var _ MetricsRecorder = (*mockMetrics)(nil)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

// analysisDate anchors every test request; the service never reads the wall
// clock for engine decisions.
var analysisDate = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func analysisSubject() property.Record {
	return property.Record{
		ParcelID:      "19-01-100-001-0000",
		Address:       "5200 S Rockwell St",
		Latitude:      41.75,
		Longitude:     -87.68,
		Township:      "Lake",
		PropertyClass: "2-03",
		SquareFeet:    1200,
		YearBuilt:     1955,
		AssessedValue: 30000,
	}
}

func poolRecordWithSale(parcelID string, salePrice float64, monthsAgo int) property.Record {
	saleDate := analysisDate.AddDate(0, -monthsAgo, 0)
	return property.Record{
		ParcelID:      parcelID,
		Latitude:      41.751,
		Longitude:     -87.681,
		PropertyClass: "2-03",
		SquareFeet:    1200,
		YearBuilt:     1957,
		AssessedValue: salePrice * 0.10,
		LastSalePrice: salePrice,
		LastSaleDate:  &saleDate,
	}
}

func poolRecordAssessed(parcelID string, assessed float64) property.Record {
	return property.Record{
		ParcelID:      parcelID,
		Latitude:      41.749,
		Longitude:     -87.679,
		PropertyClass: "2-03",
		SquareFeet:    1200,
		YearBuilt:     1953,
		AssessedValue: assessed,
	}
}

// salesPool gives the subject three recent arms-length sales well below its
// implied market value, producing a strong market-value case.
func salesPool() []property.Record {
	return []property.Record{
		poolRecordWithSale("19-01-100-002-0000", 216000, 3),
		poolRecordWithSale("19-01-100-003-0000", 220000, 6),
		poolRecordWithSale("19-01-100-004-0000", 228000, 9),
	}
}

// weakPool has no sales and peers assessed above the 20000 subject, leaving
// both cases weak.
func weakPool() []property.Record {
	return []property.Record{
		poolRecordAssessed("19-01-100-005-0000", 25000),
		poolRecordAssessed("19-01-100-006-0000", 26000),
		poolRecordAssessed("19-01-100-007-0000", 27000),
	}
}

func analyzeReq(subject property.Record, pool []property.Record) *AnalyzeRequest {
	return &AnalyzeRequest{
		Subject:       subject,
		Pool:          pool,
		ValuationDate: analysisDate,
	}
}

func buildAnalysisTestService(t *testing.T, cache Cache, metrics MetricsRecorder) Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{}, Deps{Cache: cache, Metrics: metrics})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
