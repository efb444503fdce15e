package chain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the fixed-width ISO date used for expirations. Expirations
// are compared as strings, which only works because of this layout.
const DateLayout = "2006-01-02"

// ContractType is the option right of a contract.
type ContractType string

const (
	Call ContractType = "call"
	Put  ContractType = "put"
)

// ParseContractType accepts "call" or "put" in any case.
func ParseContractType(s string) (ContractType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Call):
		return Call, nil
	case string(Put):
		return Put, nil
	default:
		return "", fmt.Errorf("unknown contract type %q", s)
	}
}

// Source identifies the provider a contract came from.
type Source string

const (
	SourceYahoo        Source = "yfinance"
	SourceAlphaVantage Source = "alphavantage"
)

// Contract is the canonical option contract record shared by every provider.
type Contract struct {
	ContractID        string          `json:"contract_id"`
	Type              ContractType    `json:"type"`
	Strike            decimal.Decimal `json:"strike"`
	Expiration        string          `json:"expiration"`
	Volume            int64           `json:"volume"`
	OpenInterest      int64           `json:"open_interest"`
	ImpliedVolatility decimal.Decimal `json:"implied_volatility"`
	Bid               decimal.Decimal `json:"bid"`
	Ask               decimal.Decimal `json:"ask"`
	Source            Source          `json:"source,omitempty"`
}

// Rounded returns a copy with the decimal fields rounded to two places.
func (c Contract) Rounded() Contract {
	c.Strike = Round2(c.Strike)
	c.ImpliedVolatility = Round2(c.ImpliedVolatility)
	c.Bid = Round2(c.Bid)
	c.Ask = Round2(c.Ask)
	return c
}

// Round2 rounds half away from zero to two fractional digits.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Snapshot is an aggregated, sorted options chain captured at one instant.
type Snapshot struct {
	Exchange   string
	Ticker     string
	CapturedAt time.Time
	Contracts  []Contract
}

// FileName returns the snapshot file name,
// {exchange}_{ticker}_options_chain_{YYYY-MM-DD}_as_of_{HH-MM-SS}.csv.
func (s *Snapshot) FileName() string {
	return SnapshotFileName(s.Exchange, s.Ticker, s.CapturedAt)
}

func SnapshotFileName(exchange, ticker string, at time.Time) string {
	return fmt.Sprintf("%s_%s_options_chain_%s_as_of_%s.csv",
		exchange, ticker, at.Format(DateLayout), at.Format("15-04-05"))
}

// SnapshotName is the parsed form of a snapshot file name.
type SnapshotName struct {
	Exchange   string
	Ticker     string
	CapturedAt time.Time
}

// ParseSnapshotFileName reverses SnapshotFileName. The capture instant is
// interpreted in loc.
func ParseSnapshotFileName(name string, loc *time.Location) (SnapshotName, error) {
	base := strings.TrimSuffix(filepath.Base(name), ".csv")
	head, stamp, ok := strings.Cut(base, "_options_chain_")
	if !ok {
		return SnapshotName{}, fmt.Errorf("not a snapshot file: %s", name)
	}
	exchange, ticker, ok := strings.Cut(head, "_")
	if !ok || exchange == "" || ticker == "" {
		return SnapshotName{}, fmt.Errorf("missing exchange or ticker: %s", name)
	}
	at, err := time.ParseInLocation("2006-01-02_as_of_15-04-05", stamp, loc)
	if err != nil {
		return SnapshotName{}, fmt.Errorf("parsing capture time of %s: %w", name, err)
	}
	return SnapshotName{Exchange: exchange, Ticker: ticker, CapturedAt: at}, nil
}
