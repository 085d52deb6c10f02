package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-verbench/runner"
	"github.com/ethereum-optimism/infra/op-verbench/types"
)

func quietLogger() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

func TestHealthz(t *testing.T) {
	s := NewStatusServer(quietLogger(), nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestProgress(t *testing.T) {
	tracker := runner.NewTracker(quietLogger(), "run-1", 3)
	tracker.StartBatch("exp", "normal", 0, 3)
	tracker.StartInput("blur_0.c")
	tracker.CompleteInput("blur_0.c", types.OutcomeVerified, false)
	tracker.StartInput("blur_1.c")

	s := NewStatusServer(quietLogger(), tracker)
	req := httptest.NewRequest(http.MethodGet, "/progress", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var snap runner.ProgressSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, "exp", snap.Suite)
	assert.Equal(t, 1, snap.Completed)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, "blur_1.c", snap.CurrentInput)
	assert.NotNil(t, snap.InputStarted)
}

func TestProgressWithoutSource(t *testing.T) {
	s := NewStatusServer(quietLogger(), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStartAndShutdown(t *testing.T) {
	s := NewStatusServer(quietLogger(), nil)
	require.Nil(t, s.Addr())
	require.NoError(t, s.Start("127.0.0.1:0"))

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", s.Addr().String()))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "OK", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	_, err = http.Get(fmt.Sprintf("http://%s/healthz", s.Addr().String()))
	assert.Error(t, err)
}

func TestShutdownBeforeStart(t *testing.T) {
	s := NewStatusServer(quietLogger(), nil)
	assert.NoError(t, s.Shutdown(context.Background()))
}
