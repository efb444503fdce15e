package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dgnsrekt/optionschain/internal/chain"
	"github.com/dgnsrekt/optionschain/internal/snapshot"
)

func writeChain(t *testing.T, path string, contracts []chain.Contract) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, chain.WriteCSV(f, contracts))
}

func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()
	store := snapshot.NewStore(dir, time.UTC, zap.NewNop())
	srv := NewServer(store, filepath.Join(dir, "earliest_expiring_contracts.csv"), zap.NewNop())
	router, err := NewRouter(srv, zap.NewNop())
	require.NoError(t, err)
	return router, dir
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := get(t, router, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestLatestSnapshot(t *testing.T) {
	router, dir := newTestRouter(t)
	old := chain.Contract{ContractID: "OLD", Type: chain.Call, Expiration: "2025-01-17", Source: chain.SourceYahoo}
	fresh := chain.Contract{
		ContractID: "META250117C00500000",
		Type:       chain.Call,
		Strike:     decimal.RequireFromString("500"),
		Expiration: "2025-01-17",
		Volume:     15,
		Bid:        decimal.RequireFromString("12.01"),
		Ask:        decimal.RequireFromString("12.4"),
		Source:     chain.SourceYahoo,
	}
	writeChain(t, filepath.Join(dir, "nasdaq_META_options_chain_2025-01-10_as_of_09-00-00.csv"), []chain.Contract{old})
	writeChain(t, filepath.Join(dir, "nasdaq_META_options_chain_2025-01-10_as_of_10-00-00.csv"), []chain.Contract{fresh})

	rec := get(t, router, "/snapshots/nasdaq/META/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Snapshot struct {
			Name string `json:"name"`
		} `json:"snapshot"`
		Count     int              `json:"count"`
		Contracts []map[string]any `json:"contracts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "nasdaq_META_options_chain_2025-01-10_as_of_10-00-00.csv", body.Snapshot.Name)
	require.Equal(t, 1, body.Count)
	require.Equal(t, "META250117C00500000", body.Contracts[0]["contract_id"])
	require.Equal(t, 12.01, body.Contracts[0]["bid"])
	require.Equal(t, "yfinance", body.Contracts[0]["source"])

	list := get(t, router, "/snapshots")
	require.Equal(t, http.StatusOK, list.Code)
	var infos []map[string]any
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &infos))
	require.Len(t, infos, 2)

	newest := get(t, router, "/snapshots?limit=1")
	require.Equal(t, http.StatusOK, newest.Code)
	require.NoError(t, json.Unmarshal(newest.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	require.Equal(t, "nasdaq_META_options_chain_2025-01-10_as_of_10-00-00.csv", infos[0]["name"])
}

func TestRequestValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{
		"/snapshots?limit=abc",
		"/snapshots?limit=0",
		"/snapshots/nasdaq/ME$TA/latest",
	} {
		rec := get(t, router, path)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
		require.Contains(t, rec.Header().Get("Content-Type"), "application/json", path)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), path)
		require.NotEmpty(t, body["error"], path)
	}
}

func TestOpenAPISpec(t *testing.T) {
	doc, err := LoadSpec()
	require.NoError(t, err)
	require.NotNil(t, doc.Paths.Find("/snapshots/{exchange}/{ticker}/latest"))

	router, _ := newTestRouter(t)
	rec := get(t, router, "/openapi.yaml")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "/earliest:")
}

func TestLatestSnapshotNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := get(t, router, "/snapshots/nyse/IBM/latest")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "snapshot not found")
}

func TestEarliest(t *testing.T) {
	router, dir := newTestRouter(t)

	rec := get(t, router, "/earliest")
	require.Equal(t, http.StatusNotFound, rec.Code)

	writeChain(t, filepath.Join(dir, "earliest_expiring_contracts.csv"), []chain.Contract{
		{ContractID: "A", Type: chain.Put, Expiration: "2025-01-17", Source: chain.SourceAlphaVantage},
	})
	rec = get(t, router, "/earliest")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"count":1`)
	require.Contains(t, rec.Body.String(), `"strike":0.00`)
}

func TestUnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := get(t, router, "/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"route not found"}`, rec.Body.String())
}
