package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dgnsrekt/optionschain/internal/chain"
)

func writeChain(t *testing.T, dir, name string, contracts []chain.Contract) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, chain.WriteCSV(f, contracts))
}

func sample(id string) chain.Contract {
	return chain.Contract{
		ContractID: id,
		Type:       chain.Put,
		Strike:     decimal.RequireFromString("100"),
		Expiration: "2025-01-17",
		Bid:        decimal.RequireFromString("1.25"),
		Ask:        decimal.RequireFromString("1.3"),
		Source:     chain.SourceAlphaVantage,
	}
}

func TestStore_ListAndLatest(t *testing.T) {
	dir := t.TempDir()
	writeChain(t, dir, "nasdaq_META_options_chain_2025-01-10_as_of_09-30-00.csv", []chain.Contract{sample("A")})
	writeChain(t, dir, "nasdaq_META_options_chain_2025-01-10_as_of_15-59-00.csv", []chain.Contract{sample("B")})
	writeChain(t, dir, "nyse_IBM_options_chain_2025-01-11_as_of_10-00-00.csv", []chain.Contract{sample("C")})
	writeChain(t, dir, "earliest_expiring_contracts.csv", nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".staging"), 0755))

	store := NewStore(dir, time.UTC, zap.NewNop())

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "nasdaq_META_options_chain_2025-01-10_as_of_09-30-00.csv", entries[0].Name)
	require.Equal(t, "IBM", entries[2].Ticker)
	require.Positive(t, entries[0].Size)

	latest, err := store.Latest("NASDAQ", "meta")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 1, 10, 15, 59, 0, 0, time.UTC), latest.CapturedAt)

	contracts, err := Load(latest.Path)
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	require.Equal(t, "B", contracts[0].ContractID)
}

func TestStore_LatestNotFound(t *testing.T) {
	store := NewStore(t.TempDir(), time.UTC, zap.NewNop())
	_, err := store.Latest("nasdaq", "META")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_MissingDirectory(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent"), nil, zap.NewNop())
	entries, err := store.List()
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	require.ErrorIs(t, err, ErrNotFound)
}
