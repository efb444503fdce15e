package alphavantage

import (
	"encoding/json"
	"fmt"

	"github.com/dgnsrekt/optionschain/internal/chain"
)

// rawContract is one entry of the HISTORICAL_OPTIONS data array. Alpha
// Vantage sends every value as a string.
type rawContract struct {
	ContractID        chain.Flex `json:"contractID"`
	Type              chain.Flex `json:"type"`
	Strike            chain.Flex `json:"strike"`
	Expiration        chain.Flex `json:"expiration"`
	Volume            chain.Flex `json:"volume"`
	OpenInterest      chain.Flex `json:"open_interest"`
	ImpliedVolatility chain.Flex `json:"implied_volatility"`
	Bid               chain.Flex `json:"bid"`
	Ask               chain.Flex `json:"ask"`
}

func normalize(msg json.RawMessage) (chain.Contract, error) {
	var raw rawContract
	if err := json.Unmarshal(msg, &raw); err != nil {
		return chain.Contract{}, &chain.NormalizeError{Err: fmt.Errorf("decoding contract: %w", err)}
	}
	id := raw.ContractID.String()
	fail := func(err error) (chain.Contract, error) {
		return chain.Contract{}, &chain.NormalizeError{ContractID: id, Err: err}
	}

	required := []struct {
		name  string
		field chain.Flex
	}{
		{"contractID", raw.ContractID},
		{"type", raw.Type},
		{"strike", raw.Strike},
		{"expiration", raw.Expiration},
	}
	for _, r := range required {
		if r.field.Empty() {
			return fail(fmt.Errorf("missing field %s", r.name))
		}
	}

	typ, err := chain.ParseContractType(raw.Type.String())
	if err != nil {
		return fail(err)
	}

	c := chain.Contract{
		ContractID: id,
		Type:       typ,
		Expiration: raw.Expiration.String(),
	}
	if c.Strike, err = raw.Strike.Decimal(); err != nil {
		return fail(fmt.Errorf("strike: %w", err))
	}
	if c.ImpliedVolatility, err = raw.ImpliedVolatility.Decimal(); err != nil {
		return fail(fmt.Errorf("implied_volatility: %w", err))
	}
	if c.Bid, err = raw.Bid.Decimal(); err != nil {
		return fail(fmt.Errorf("bid: %w", err))
	}
	if c.Ask, err = raw.Ask.Decimal(); err != nil {
		return fail(fmt.Errorf("ask: %w", err))
	}
	if c.Volume, err = raw.Volume.Count(); err != nil {
		return fail(fmt.Errorf("volume: %w", err))
	}
	if c.OpenInterest, err = raw.OpenInterest.Count(); err != nil {
		return fail(fmt.Errorf("open_interest: %w", err))
	}

	if err := c.Validate(); err != nil {
		return fail(err)
	}
	return c, nil
}
