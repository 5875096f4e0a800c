package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWebhookNotifierPostsJSONPayload(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, zap.NewNop())
	err := n.Send(context.Background(), Alert{Level: AlertCritical, Title: "t", Message: "m"})
	require.NoError(t, err)

	assert.Equal(t, "CRITICAL", received["level"])
	assert.Equal(t, "t", received["title"])
	assert.Equal(t, "m", received["message"])
}

func TestWebhookNotifierReturnsErrorOnNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, zap.NewNop())
	err := n.Send(context.Background(), Alert{Title: "t"})
	assert.Error(t, err)
}

type failingNotifier struct{}

func (failingNotifier) Send(context.Context, Alert) error { return errors.New("boom") }

type recordingNotifier struct{ got []Alert }

func (r *recordingNotifier) Send(_ context.Context, a Alert) error {
	r.got = append(r.got, a)
	return nil
}

func TestFanoutDeliversToAllBackendsDespiteOneFailure(t *testing.T) {
	rec := &recordingNotifier{}
	f := NewFanout(zap.NewNop(), failingNotifier{}, rec)

	err := f.Send(context.Background(), Alert{Title: "x"})
	assert.Error(t, err)
	require.Len(t, rec.got, 1)
	assert.Equal(t, "x", rec.got[0].Title)
}

func TestOrderPlacementFailedBuildsCriticalAlert(t *testing.T) {
	a := OrderPlacementFailed("BTC-USDT-SWAP", errors.New("insufficient margin"))
	assert.Equal(t, AlertCritical, a.Level)
	assert.Contains(t, a.Message, "BTC-USDT-SWAP")
	assert.Contains(t, a.Message, "insufficient margin")
}

func TestCircuitBreakerTrippedBuildsWarningAlert(t *testing.T) {
	a := CircuitBreakerTripped("redis")
	assert.Equal(t, AlertWarning, a.Level)
	assert.Contains(t, a.Message, "redis")
}
