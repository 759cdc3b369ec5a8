package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	httpadapter "github.com/couchcryptid/taf-data-etl/internal/adapter/http"
	"github.com/couchcryptid/taf-data-etl/internal/adapter/redis"
	"github.com/couchcryptid/taf-data-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockStore struct {
	data map[string][]byte
	err  error
}

func (m *mockStore) Get(_ context.Context, station string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.data[station]
	if !ok {
		return nil, redis.ErrNotFound
	}
	return v, nil
}

func newTestServer(readyErr error, store httpadapter.ForecastReader) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, store, slog.Default(), observability.NewMetricsForTesting())
}

func serve(srv *httpadapter.Server, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(nil, nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(newTestServer(nil, nil), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(newTestServer(fmt.Errorf("not ready yet"), nil), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil, nil), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestForecastLookup(t *testing.T) {
	store := &mockStore{data: map[string][]byte{"KMSN": []byte(`{"station":"KMSN"}`)}}

	tests := []struct {
		name   string
		store  httpadapter.ForecastReader
		path   string
		status int
	}{
		{"found", store, "/v1/forecasts/KMSN", http.StatusOK},
		{"lowercase station", store, "/v1/forecasts/kmsn", http.StatusOK},
		{"not found", store, "/v1/forecasts/KXYZ", http.StatusNotFound},
		{"no store", nil, "/v1/forecasts/KMSN", http.StatusServiceUnavailable},
		{"breaker open", &mockStore{err: fmt.Errorf("get KMSN: %w", redis.ErrUnavailable)}, "/v1/forecasts/KMSN", http.StatusServiceUnavailable},
		{"store error", &mockStore{err: errors.New("i/o timeout")}, "/v1/forecasts/KMSN", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestServer(nil, tt.store), http.MethodGet, tt.path, "")
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"station":"KMSN"}`, rec.Body.String())
			}
		})
	}
}

type parseBody struct {
	Entries          int `json:"entries"`
	MalformedHeaders int `json:"malformed_headers"`
	Forecasts        []struct {
		Station string `json:"station"`
	} `json:"forecasts"`
	Failures []struct {
		Index int    `json:"index"`
		Kind  string `json:"kind"`
	} `json:"failures"`
}

func decodeParse(t *testing.T, rec *httptest.ResponseRecorder) parseBody {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body parseBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestParseBulletin(t *testing.T) {
	srv := newTestServer(nil, nil)

	rec := serve(srv, http.MethodPost, "/v1/parse?reference=2023-04-24T00:05:00Z",
		"TAF KXYZ 240000Z 2400/2500 09010KT BECMG 2406/2408 18015KT=")
	body := decodeParse(t, rec)
	assert.Equal(t, 1, body.Entries)
	require.Len(t, body.Forecasts, 1)
	assert.Equal(t, "KXYZ", body.Forecasts[0].Station)
	assert.Empty(t, body.Failures)

	rec = serve(srv, http.MethodPost, "/v1/parse?reference=2023-04-24T00:05:00Z", "TAF KXYZ NIL=")
	body = decodeParse(t, rec)
	assert.Empty(t, body.Forecasts)
	require.Len(t, body.Failures, 1)
	assert.Equal(t, "malformed_outlook", body.Failures[0].Kind)
}

func TestParseCycle(t *testing.T) {
	content, err := os.ReadFile("../../../data/mock/taf_cycle_230424_00Z.txt")
	require.NoError(t, err)

	rec := serve(newTestServer(nil, nil), http.MethodPost, "/v1/parse", string(content))
	body := decodeParse(t, rec)

	assert.Equal(t, 10, body.Entries)
	assert.Equal(t, 1, body.MalformedHeaders)
	assert.Len(t, body.Forecasts, 8)
	require.Len(t, body.Failures, 2)
	assert.Equal(t, 6, body.Failures[0].Index)
	assert.Equal(t, "unrecognized_token", body.Failures[0].Kind)
	assert.Equal(t, 7, body.Failures[1].Index)
	assert.Equal(t, "malformed_outlook", body.Failures[1].Kind)
}

func TestParseRejectsBadInput(t *testing.T) {
	srv := newTestServer(nil, nil)

	rec := serve(srv, http.MethodPost, "/v1/parse?reference=yesterday", "TAF KXYZ 240000Z 2400/2500 09010KT=")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(srv, http.MethodPost, "/v1/parse", "  \n ")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(srv, http.MethodGet, "/v1/parse", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
