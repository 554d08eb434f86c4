package api

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naijamall/naijamall-backend/pkg/logger"
)

func TestServeStopsOnContextCancel(t *testing.T) {
	server := NewServer("127.0.0.1:0", http.NotFoundHandler())
	assert.Equal(t, 10*time.Second, server.ReadHeaderTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, server, logger.New(logger.Options{ServiceName: "api-test", Output: io.Discard}))
	}()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
