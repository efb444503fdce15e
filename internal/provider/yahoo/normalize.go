package yahoo

import (
	"encoding/json"
	"fmt"

	"github.com/dgnsrekt/optionschain/internal/chain"
)

// rawContract is one entry of a calls or puts list. Yahoo sends numbers,
// and leaves out fields that have never traded.
type rawContract struct {
	ContractSymbol    chain.Flex `json:"contractSymbol"`
	Strike            chain.Flex `json:"strike"`
	Volume            chain.Flex `json:"volume"`
	OpenInterest      chain.Flex `json:"openInterest"`
	ImpliedVolatility chain.Flex `json:"impliedVolatility"`
	Bid               chain.Flex `json:"bid"`
	Ask               chain.Flex `json:"ask"`
}

// normalizer builds the per-record mapping for one expiration and side.
// Type and expiration come from where the record sits in the response.
func normalizer(typ chain.ContractType, expiration string) func(json.RawMessage) (chain.Contract, error) {
	return func(msg json.RawMessage) (chain.Contract, error) {
		var raw rawContract
		if err := json.Unmarshal(msg, &raw); err != nil {
			return chain.Contract{}, &chain.NormalizeError{Err: fmt.Errorf("decoding contract: %w", err)}
		}
		id := raw.ContractSymbol.String()
		fail := func(err error) (chain.Contract, error) {
			return chain.Contract{}, &chain.NormalizeError{ContractID: id, Err: err}
		}
		if raw.Strike.Empty() {
			return fail(fmt.Errorf("missing field strike"))
		}

		c := chain.Contract{
			ContractID: id,
			Type:       typ,
			Expiration: expiration,
		}
		var err error
		if c.Strike, err = raw.Strike.Decimal(); err != nil {
			return fail(fmt.Errorf("strike: %w", err))
		}
		if c.ImpliedVolatility, err = raw.ImpliedVolatility.Decimal(); err != nil {
			return fail(fmt.Errorf("impliedVolatility: %w", err))
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
			return fail(fmt.Errorf("openInterest: %w", err))
		}

		if err := c.Validate(); err != nil {
			return fail(err)
		}
		return c, nil
	}
}
