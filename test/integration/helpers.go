// Package integration exercises the assembled service end to end: the real
// engine behind the real gin router on an ephemeral listener, driven through
// the Go SDK the way an external consumer would drive it.
package integration

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/application/analysis"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/infrastructure/cache/memory"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/infrastructure/monitoring/logging"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/interfaces/http/handlers"
	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/client"

	httpapi "github.com/RandyVollrath/ticketlesschicago-sub000/internal/interfaces/http"
)

// Env bundles the running stack for one test.
type Env struct {
	Service analysis.Service
	Server  *httptest.Server
	Client  *client.Client
}

// Setup assembles the full stack on an ephemeral listener.  The engine is
// in-process and cheap to build, so each test gets its own instance.
func Setup(t *testing.T) *Env {
	t.Helper()

	logger := logging.NewNopLogger()

	collector, err := prometheus.NewCollector(prometheus.CollectorConfig{
		Namespace: "appeal",
		Subsystem: "it",
	}, logger)
	require.NoError(t, err)
	appMetrics := prometheus.NewAppMetrics(collector)

	resultCache := memory.NewCache(logger, memory.WithCleanupInterval(0))
	t.Cleanup(resultCache.Stop)

	svc, err := analysis.NewService(analysis.ServiceConfig{}, analysis.Deps{
		Logger:  logger,
		Cache:   resultCache,
		Metrics: prometheus.NewRecorder(appMetrics),
	})
	require.NoError(t, err)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Analysis:       handlers.NewAnalysisHandler(svc, logger),
		Health:         handlers.NewHealthHandler("integration"),
		Logger:         logger,
		Metrics:        appMetrics,
		MetricsHandler: collector.Handler(),
		Mode:           "test",
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	api, err := client.NewClient(srv.URL, client.WithTimeout(10*time.Second))
	require.NoError(t, err)

	return &Env{Service: svc, Server: srv, Client: api}
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

// valuationDate anchors every fixture so analyses are reproducible.
var valuationDate = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// lakeViewPool returns five canonical comparables: three recent sales around
// $220k and two unsold peers, all assessed near 27k.
func lakeViewPool() []client.Property {
	saleDate := valuationDate.AddDate(0, -4, 0)

	sold := func(parcel string, lat, lon, sqft, assessed, price float64) client.Property {
		d := saleDate
		return client.Property{
			ParcelID:      parcel,
			Latitude:      lat,
			Longitude:     lon,
			Township:      "Lake View",
			PropertyClass: "203",
			SquareFeet:    sqft,
			YearBuilt:     1925,
			AssessedValue: assessed,
			LastSalePrice: price,
			LastSaleDate:  &d,
		}
	}
	unsold := func(parcel string, lat, lon, sqft, assessed float64) client.Property {
		return client.Property{
			ParcelID:      parcel,
			Latitude:      lat,
			Longitude:     lon,
			Township:      "Lake View",
			PropertyClass: "203",
			SquareFeet:    sqft,
			YearBuilt:     1927,
			AssessedValue: assessed,
		}
	}

	return []client.Property{
		sold("14-21-106-018-0000", 41.9511, -87.6542, 1180, 26800, 216000),
		sold("14-21-106-019-0000", 41.9496, -87.6561, 1220, 27200, 220500),
		sold("14-21-106-020-0000", 41.9520, -87.6538, 1250, 27600, 228000),
		unsold("14-21-106-021-0000", 41.9489, -87.6553, 1150, 26400),
		unsold("14-21-106-022-0000", 41.9507, -87.6570, 1210, 27000),
	}
}

// subjectWithAV returns the canonical Lake View subject at the given assessed
// value.  30000 is well above both the sales-implied level and its peers;
// 21500 sits below both.
func subjectWithAV(assessed float64) client.Property {
	return client.Property{
		ParcelID:      "14-21-106-017-0000",
		Latitude:      41.9503,
		Longitude:     -87.6549,
		Township:      "Lake View",
		PropertyClass: "203",
		SquareFeet:    1200,
		YearBuilt:     1925,
		AssessedValue: assessed,
	}
}

// overAssessedRequest is the canonical filing case.
func overAssessedRequest() *client.AnalyzeRequest {
	return &client.AnalyzeRequest{
		Subject:       subjectWithAV(30000),
		Pool:          lakeViewPool(),
		ValuationDate: valuationDate,
	}
}

// underAssessedRequest is the canonical do-not-file case.
func underAssessedRequest() *client.AnalyzeRequest {
	return &client.AnalyzeRequest{
		Subject:       subjectWithAV(21500),
		Pool:          lakeViewPool(),
		ValuationDate: valuationDate,
	}
}
