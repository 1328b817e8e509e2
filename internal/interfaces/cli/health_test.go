package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/client"
)

func healthServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"alive","version":"9.9.9","uptime":"1m30s"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthCommand_TextOutput(t *testing.T) {
	srv := healthServer(t)

	out, err := runCommand(t, "health", "--server", srv.URL)
	require.NoError(t, err)

	assert.Contains(t, out, "server alive")
	assert.Contains(t, out, "version 9.9.9")
	assert.Contains(t, out, "uptime 1m30s")
}

func TestHealthCommand_JSONOutput(t *testing.T) {
	srv := healthServer(t)

	out, err := runCommand(t, "health", "--server", srv.URL, "-o", "json")
	require.NoError(t, err)

	var status client.HealthStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, "alive", status.Status)
	assert.Equal(t, "9.9.9", status.Version)
}

func TestHealthCommand_TableOutput(t *testing.T) {
	srv := healthServer(t)

	out, err := runCommand(t, "health", "--server", srv.URL, "-o", "table")
	require.NoError(t, err)

	assert.Contains(t, out, "Status")
	assert.Contains(t, out, "alive")
}

func TestHealthCommand_ServerDown(t *testing.T) {
	srv := healthServer(t)
	url := srv.URL
	srv.Close()

	// A short timeout keeps the client from burning through its retry
	// backoff against a dead endpoint.
	_, err := runCommand(t, "health", "--server", url, "--timeout", "100ms")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "health check against")
}

func TestHealthCommand_RejectsBadServerURL(t *testing.T) {
	_, err := runCommand(t, "health", "--server", "not-a-url")

	require.Error(t, err)
}
