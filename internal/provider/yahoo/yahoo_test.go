package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dgnsrekt/optionschain/internal/api"
	"github.com/dgnsrekt/optionschain/internal/chain"
)

const (
	jan17 = "1737072000" // 2025-01-17
	feb21 = "1740096000" // 2025-02-21
)

const listing = `{"optionChain":{"result":[{"underlyingSymbol":"META","expirationDates":[1737072000,1740096000],
	"options":[{"expirationDate":1737072000,"calls":[],"puts":[]}]}],"error":null}}`

const jan17Chain = `{"optionChain":{"result":[{"underlyingSymbol":"META","expirationDates":[1737072000,1740096000],
	"options":[{"expirationDate":1737072000,
	"calls":[
		{"contractSymbol":"META250117C00500000","strike":500.0,"bid":12.005,"ask":12.4,"volume":15,"openInterest":320,"impliedVolatility":0.3512},
		{"contractSymbol":"META250117C00510000","strike":510.0,"bid":9.1,"ask":9.3,"impliedVolatility":0.33}
	],
	"puts":[
		{"contractSymbol":"META250117P00500000","strike":500.0,"bid":3.1,"ask":3.2,"volume":4,"openInterest":11,"impliedVolatility":0.31},
		{"contractSymbol":"META250117P00490000","bid":1.0,"ask":1.1},
		{"contractSymbol":"META250117P00480000","strike":480.0,"volume":2.5}
	]}]}],"error":null}}`

const feb21Chain = `{"optionChain":{"result":[{"underlyingSymbol":"META","expirationDates":[1737072000,1740096000],
	"options":[{"expirationDate":1740096000,
	"calls":[{"contractSymbol":"META250221C00500000","strike":500.0,"bid":20.0,"ask":20.5}],
	"puts":[]}]}],"error":null}}`

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := api.NewClient(api.Options{Timeout: 5 * time.Second, RatePerSecond: 100}, zap.NewNop())
	return New(client, server.URL, zap.NewNop())
}

func routes(t *testing.T, byDate map[string]string, status map[string]int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v7/finance/options/META" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		date := r.URL.Query().Get("date")
		if code, ok := status[date]; ok {
			w.WriteHeader(code)
			return
		}
		body, ok := byDate[date]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	}
}

func TestFetch_AllExpirations(t *testing.T) {
	adapter := newTestAdapter(t, routes(t, map[string]string{
		"":    listing,
		jan17: jan17Chain,
		feb21: feb21Chain,
	}, nil))

	res, err := adapter.Fetch(context.Background(), "nasdaq", "meta")
	require.NoError(t, err)
	require.Equal(t, chain.SourceYahoo, res.Source)
	require.Equal(t, []string{"2025-01-17", "2025-02-21"}, res.Expirations.Succeeded)
	require.Empty(t, res.Expirations.Failed)

	ids := make([]string, 0, len(res.Contracts))
	for _, c := range res.Contracts {
		ids = append(ids, c.ContractID)
	}
	// calls before puts within each expiration, expirations in listing order
	require.Equal(t, []string{
		"META250117C00500000",
		"META250117C00510000",
		"META250117P00500000",
		"META250221C00500000",
	}, ids)

	first := res.Contracts[0]
	require.Equal(t, chain.Call, first.Type)
	require.Equal(t, "2025-01-17", first.Expiration)
	require.Equal(t, int64(15), first.Volume)
	require.Equal(t, int64(320), first.OpenInterest)
	require.True(t, first.Bid.Equal(decimal.RequireFromString("12.005")))

	noVolume := res.Contracts[1]
	require.Zero(t, noVolume.Volume)
	require.Zero(t, noVolume.OpenInterest)

	require.Equal(t, chain.Put, res.Contracts[2].Type)
	require.Equal(t, "2025-02-21", res.Contracts[3].Expiration)

	require.Len(t, res.Skipped, 2)
	require.Equal(t, "META250117P00490000", res.Skipped[0].ContractID)
	require.Equal(t, "META250117P00480000", res.Skipped[1].ContractID)
}

func TestFetch_FailedExpirationIsOmitted(t *testing.T) {
	adapter := newTestAdapter(t, routes(t, map[string]string{
		"":    listing,
		jan17: jan17Chain,
	}, map[string]int{feb21: http.StatusBadRequest}))

	res, err := adapter.Fetch(context.Background(), "nasdaq", "META")
	require.NoError(t, err)
	require.Equal(t, []string{"2025-01-17"}, res.Expirations.Succeeded)
	require.Equal(t, []string{"2025-02-21"}, res.Expirations.FailedDates())
	require.ErrorIs(t, res.Expirations.Failed["2025-02-21"], chain.ErrTransport)
	for _, c := range res.Contracts {
		require.Equal(t, "2025-01-17", c.Expiration)
	}
}

func TestFetch_MismatchedExpirationIsFailed(t *testing.T) {
	// the feb21 request is answered with the jan17 set
	adapter := newTestAdapter(t, routes(t, map[string]string{
		"":    listing,
		jan17: jan17Chain,
		feb21: jan17Chain,
	}, nil))

	res, err := adapter.Fetch(context.Background(), "nasdaq", "META")
	require.NoError(t, err)
	require.Equal(t, []string{"2025-01-17"}, res.Expirations.Succeeded)
	require.Equal(t, []string{"2025-02-21"}, res.Expirations.FailedDates())
	require.ErrorIs(t, res.Expirations.Failed["2025-02-21"], chain.ErrProvider)
	require.Len(t, res.Contracts, 3, "jan17 contracts must appear once")
}

func TestFetch_EveryExpirationFails(t *testing.T) {
	adapter := newTestAdapter(t, routes(t, map[string]string{"": listing},
		map[string]int{jan17: http.StatusBadRequest, feb21: http.StatusBadRequest}))

	_, err := adapter.Fetch(context.Background(), "nasdaq", "META")
	require.ErrorIs(t, err, chain.ErrNoDataAvailable)
	require.ErrorIs(t, err, chain.ErrTransport)
}

func TestFetch_NoExpirations(t *testing.T) {
	adapter := newTestAdapter(t, routes(t, map[string]string{
		"": `{"optionChain":{"result":[{"underlyingSymbol":"META","expirationDates":[],"options":[]}],"error":null}}`,
	}, nil))

	_, err := adapter.Fetch(context.Background(), "nasdaq", "META")
	require.ErrorIs(t, err, chain.ErrNoDataAvailable)

	var se *chain.SourceError
	require.ErrorAs(t, err, &se)
	require.Equal(t, chain.SourceYahoo, se.Source)
}

func TestFetch_EmptyResult(t *testing.T) {
	adapter := newTestAdapter(t, routes(t, map[string]string{
		"": `{"optionChain":{"result":[],"error":null}}`,
	}, nil))

	_, err := adapter.Fetch(context.Background(), "nasdaq", "META")
	require.ErrorIs(t, err, chain.ErrNoDataAvailable)
}

func TestFetch_ProviderErrorPayload(t *testing.T) {
	for _, body := range []string{
		`{"optionChain":{"result":[],"error":{"code":"Not Found","description":"No data found"}}}`,
		`{"finance":{"result":null,"error":{"code":"Unauthorized","description":"Invalid Crumb"}}}`,
	} {
		adapter := newTestAdapter(t, routes(t, map[string]string{"": body}, nil))
		_, err := adapter.Fetch(context.Background(), "nasdaq", "META")
		require.ErrorIs(t, err, chain.ErrProvider, body)
	}
}

func TestFetch_AllRecordsInvalid(t *testing.T) {
	bad := `{"optionChain":{"result":[{"expirationDates":[1737072000],
		"options":[{"expirationDate":1737072000,"calls":[{"contractSymbol":"X"}],"puts":[{"strike":1}]}]}],"error":null}}`
	adapter := newTestAdapter(t, routes(t, map[string]string{"": bad, jan17: bad}, nil))

	_, err := adapter.Fetch(context.Background(), "nasdaq", "META")
	require.ErrorIs(t, err, chain.ErrNoValidRecords)
}

func TestExpirationDate(t *testing.T) {
	require.Equal(t, "2025-01-17", expirationDate(1737072000))
	require.Equal(t, "2025-02-21", expirationDate(1740096000))
}
