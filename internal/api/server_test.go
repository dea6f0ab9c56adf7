package api_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"loyscan/internal/api"
	"loyscan/internal/history"
	mockhistory "loyscan/internal/history/mock"
	"loyscan/pkg/domain"
	"loyscan/pkg/metrics"
)

type stubSession struct {
	id    domain.SessionID
	state domain.State
}

func (s stubSession) ID() domain.SessionID { return s.id }
func (s stubSession) State() domain.State  { return s.state }

func testOptions() api.Options {
	return api.Options{
		Addr:           ":0",
		RequestTimeout: 5 * time.Second,
		MetricsPath:    "/metrics",
		RecentLimit:    10,
	}
}

func newTestServer(t *testing.T, deps api.Deps) *httptest.Server {
	t.Helper()

	srv := api.NewServer(deps, testOptions())
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return ts
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, api.Deps{})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
}

func TestSessionStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mockhistory.NewMockStore(ctrl)

	id := domain.NewSessionID()
	records := []history.Record{{
		ID:            "rec-1",
		SessionID:     id.String(),
		Format:        domain.FormatURLPath,
		Symbology:     domain.SymbologyQR,
		CustomerToken: "tok",
		OfferHash:     "deadbeef",
	}}
	store.EXPECT().Recent(gomock.Any(), 10).Return(records, nil)

	ts := newTestServer(t, api.Deps{
		Session: stubSession{id: id, state: domain.StateReady},
		History: store,
	})

	resp, err := http.Get(ts.URL + "/v1/session")
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got struct {
		SessionID   string           `json:"sessionId"`
		State       domain.State     `json:"state"`
		RecentScans []history.Record `json:"recentScans"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, id.String(), got.SessionID)
	require.Equal(t, domain.StateReady, got.State)
	require.Len(t, got.RecentScans, 1)
	require.Equal(t, "rec-1", got.RecentScans[0].ID)
	require.Equal(t, "deadbeef", got.RecentScans[0].OfferHash)
}

func TestSessionStatusHistoryFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mockhistory.NewMockStore(ctrl)
	store.EXPECT().Recent(gomock.Any(), 10).Return(nil, errors.New("disk gone"))

	ts := newTestServer(t, api.Deps{
		Session: stubSession{id: domain.NewSessionID(), state: domain.StateReady},
		History: store,
	})

	resp, err := http.Get(ts.URL + "/v1/session")
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	engine := metrics.NewEngine(registry)
	engine.FramesSampled.Inc()

	ts := newTestServer(t, api.Deps{Gatherer: registry})

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "loyscan_frames_sampled_total")
}
