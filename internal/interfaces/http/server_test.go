package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/config"
)

func TestNewServer_AddrAndHandler(t *testing.T) {
	handler := gin.New()
	srv := NewServer(config.ServerConfig{Port: 9090}, handler, nil)

	assert.Equal(t, ":9090", srv.Addr())
	assert.Equal(t, http.Handler(handler), srv.Handler())
}

func TestServer_StartAndGracefulStop(t *testing.T) {
	handler := gin.New()
	handler.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Port 0 lets the kernel pick a free port so parallel test runs
	// cannot collide.
	srv := NewServer(config.ServerConfig{Port: 0, ShutdownTimeout: time.Second}, handler, nil)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	// Give the listener a moment to bind before shutting down.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, srv.Stop(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err, "graceful shutdown must not surface ErrServerClosed")
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop in time")
	}
}

func TestServer_StopWithoutStart(t *testing.T) {
	srv := NewServer(config.ServerConfig{Port: 0}, gin.New(), nil)
	assert.NoError(t, srv.Stop(context.Background()))
}
