package chain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
)

// Columns is the header row of every persisted chain file.
var Columns = []string{
	"contract_id", "type", "strike", "expiration", "volume",
	"open_interest", "implied_volatility", "bid", "ask", "source",
}

// WriteCSV writes a header plus one row per contract. Decimal fields are
// formatted with exactly two fractional digits.
func WriteCSV(w io.Writer, contracts []Contract) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, c := range contracts {
		if err := cw.Write(row(c)); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(c Contract) []string {
	return []string{
		c.ContractID,
		string(c.Type),
		c.Strike.StringFixed(2),
		c.Expiration,
		strconv.FormatInt(c.Volume, 10),
		strconv.FormatInt(c.OpenInterest, 10),
		c.ImpliedVolatility.StringFixed(2),
		c.Bid.StringFixed(2),
		c.Ask.StringFixed(2),
		string(c.Source),
	}
}

// ReadCSV parses a file produced by WriteCSV.
func ReadCSV(r io.Reader) ([]Contract, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i, name := range Columns {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected column %d: got %q, want %q", i, header[i], name)
		}
	}

	var contracts []Contract
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return contracts, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}
		c, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		contracts = append(contracts, c)
	}
}

func parseRow(rec []string) (Contract, error) {
	typ, err := ParseContractType(rec[1])
	if err != nil {
		return Contract{}, err
	}
	c := Contract{
		ContractID: rec[0],
		Type:       typ,
		Expiration: rec[3],
		Source:     Source(rec[9]),
	}
	decimals := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&c.Strike, rec[2]},
		{&c.ImpliedVolatility, rec[6]},
		{&c.Bid, rec[7]},
		{&c.Ask, rec[8]},
	}
	for _, d := range decimals {
		if *d.dst, err = decimal.NewFromString(d.src); err != nil {
			return Contract{}, fmt.Errorf("parsing %q: %w", d.src, err)
		}
	}
	if c.Volume, err = strconv.ParseInt(rec[4], 10, 64); err != nil {
		return Contract{}, fmt.Errorf("parsing volume: %w", err)
	}
	if c.OpenInterest, err = strconv.ParseInt(rec[5], 10, 64); err != nil {
		return Contract{}, fmt.Errorf("parsing open interest: %w", err)
	}
	return c, nil
}
