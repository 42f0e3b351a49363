package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardshare/internal/platform/config"
	"cardshare/pkg/testutil"
)

func localConfig() config.Server {
	return config.Server{
		Addr:         "127.0.0.1:0",
		ShareBaseURL: "http://localhost:3001/flashcards/share",
		Notify: config.NotifyConfig{
			BufferSize:      16,
			RetryAttempts:   1,
			ShutdownTimeout: time.Second,
		},
	}
}

func TestBuildLocalApplication(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := build(context.Background(), localConfig(), log)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = app.publisher.Close(context.Background())
		app.close(log)
	})

	assert.Equal(t, "memory", app.storeKind)
	assert.Equal(t, "log", app.sinkKind)

	rec := testutil.Do(t, app.router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	body := `{"ownerId":"u1","title":"t","description":"d","attribute":"a"}`
	rec = testutil.Do(t, app.router, http.MethodPost, "/flashcards", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = testutil.Do(t, app.router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cardshare_card_mutations_total{operation="create"} 1`)
	assert.Contains(t, rec.Body.String(), "cardshare_http_request_duration_seconds")
}

func TestBuildRequiresTokenWhenSecretSet(t *testing.T) {
	cfg := localConfig()
	cfg.JWTSecret = "s3cret"
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := build(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.publisher.Close(context.Background()) })

	rec := testutil.Do(t, app.router, http.MethodDelete, "/flashcards/x", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", testutil.DecodeError(t, rec).Error)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, localConfig(), slog.New(slog.NewTextHandler(io.Discard, nil))) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
