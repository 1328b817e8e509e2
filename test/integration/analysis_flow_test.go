package integration

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/client"
)

func TestAnalyzeExportCompare_FullFlow(t *testing.T) {
	env := Setup(t)
	ctx := context.Background()

	// Analyze the over-assessed subject.
	prior, err := env.Client.Analyze(ctx, overAssessedRequest())
	require.NoError(t, err)

	assert.Equal(t, "14-21-106-017-0000", prior.ParcelID)
	assert.NotEmpty(t, prior.AnalysisID)
	assert.Equal(t, "2025.1", prior.ThresholdsVersion)
	assert.True(t, prior.ShouldFile())
	assert.NotEmpty(t, prior.Quality.Comparables)
	assert.Greater(t, prior.Opportunity.EstimatedSavings, 0.0)

	// Export the result the way a caller saving a file would.
	csvDoc, err := env.Client.Export(ctx, prior, "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csvDoc), "field,value\n"))
	assert.Contains(t, string(csvDoc), prior.ParcelID)

	jsonDoc, err := env.Client.Export(ctx, prior, "json")
	require.NoError(t, err)
	assert.Contains(t, string(jsonDoc), prior.AnalysisID)

	// Re-analyze after a hypothetical reduction and diff the two passes.
	current, err := env.Client.Analyze(ctx, underAssessedRequest())
	require.NoError(t, err)
	require.False(t, current.ShouldFile())

	comparison, err := env.Client.Compare(ctx, prior, current)
	require.NoError(t, err)

	assert.Equal(t, prior.AnalysisID, comparison.PriorAnalysisID)
	assert.Equal(t, current.AnalysisID, comparison.CurrentAnalysisID)
	assert.Equal(t, "declining", comparison.Trend)
	assert.True(t, comparison.StrategyChanged)
	assert.InDelta(t, -8500, comparison.AssessmentDelta, 0.001)
	assert.Less(t, comparison.OpportunityDelta, 0)
}

func TestAnalyze_IdenticalRequestsServeCachedDocument(t *testing.T) {
	env := Setup(t)
	ctx := context.Background()

	first, err := env.Client.Analyze(ctx, overAssessedRequest())
	require.NoError(t, err)
	second, err := env.Client.Analyze(ctx, overAssessedRequest())
	require.NoError(t, err)

	// The second pass is a fingerprint cache hit and returns the same
	// document, analysis ID included.
	assert.Equal(t, first.AnalysisID, second.AnalysisID)
	assert.Equal(t, first.Opportunity.Score, second.Opportunity.Score)
}

func TestAnalyzeBatch_MixedOutcomes(t *testing.T) {
	env := Setup(t)
	ctx := context.Background()

	broken := subjectWithAV(28000)
	broken.ParcelID = ""

	req := &client.BatchRequest{
		Items: []client.BatchItem{
			{RequestID: "item-file", Subject: subjectWithAV(30000), Pool: lakeViewPool()},
			{RequestID: "item-skip", Subject: subjectWithAV(21500), Pool: lakeViewPool()},
			{RequestID: "item-bad", Subject: broken, Pool: lakeViewPool()},
		},
		ValuationDate: valuationDate,
	}

	batch, err := env.Client.AnalyzeBatch(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 3, batch.Summary.Total)
	assert.Equal(t, 2, batch.Summary.Succeeded)
	assert.Equal(t, 1, batch.Summary.Failed)
	assert.GreaterOrEqual(t, batch.Summary.FilingRecommended, 1)
	assert.NotEmpty(t, batch.Summary.ByStrategy)

	// Results keep submission order.
	require.Len(t, batch.Results, 3)
	assert.Equal(t, "item-file", batch.Results[0].RequestID)
	require.NotNil(t, batch.Results[0].Result)
	assert.True(t, batch.Results[0].Result.ShouldFile())

	assert.Equal(t, "item-skip", batch.Results[1].RequestID)
	require.NotNil(t, batch.Results[1].Result)
	assert.False(t, batch.Results[1].Result.ShouldFile())

	assert.Equal(t, "item-bad", batch.Results[2].RequestID)
	assert.Nil(t, batch.Results[2].Result)
	assert.Equal(t, "SUBJ_002", batch.Results[2].ErrorCode)
}

func TestThresholds_ExposedOverAPI(t *testing.T) {
	env := Setup(t)

	raw, err := env.Client.Thresholds(context.Background())
	require.NoError(t, err)

	table := string(raw)
	assert.Contains(t, table, `"2025.1"`)
	assert.Contains(t, table, "filing_threshold_score")
}

func TestProbesAndMetrics(t *testing.T) {
	env := Setup(t)
	ctx := context.Background()

	status, err := env.Client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alive", status.Status)

	resp, err := http.Get(env.Server.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Drive one analysis so the counters have something to show.
	_, err = env.Client.Analyze(ctx, overAssessedRequest())
	require.NoError(t, err)

	metricsResp, err := http.Get(env.Server.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	body, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)

	exposition := string(body)
	assert.Contains(t, exposition, "appeal_it_analyses_total")
	assert.Contains(t, exposition, "appeal_it_http_requests_total")
	assert.Contains(t, exposition, "appeal_it_opportunity_score")
}
