package chain

import (
	"errors"
	"fmt"
	"time"
)

// Skip records why one raw record was dropped during normalization.
type Skip struct {
	Index      int
	ContractID string
	Reason     string
}

// Batch is the outcome of normalizing a set of raw records.
type Batch struct {
	Contracts []Contract
	Skipped   []Skip
}

func (b *Batch) Append(other Batch) {
	b.Contracts = append(b.Contracts, other.Contracts...)
	b.Skipped = append(b.Skipped, other.Skipped...)
}

// NormalizeError is returned by a normalizer to drop a single record.
type NormalizeError struct {
	ContractID string
	Err        error
}

func (e *NormalizeError) Error() string {
	if e.ContractID == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.ContractID, e.Err)
}

func (e *NormalizeError) Unwrap() error {
	return e.Err
}

// Collect runs normalize over every raw record. A failing record goes to
// Skipped and never aborts the batch.
func Collect[T any](raw []T, normalize func(T) (Contract, error)) Batch {
	batch := Batch{Contracts: make([]Contract, 0, len(raw))}
	for i, r := range raw {
		c, err := normalize(r)
		if err != nil {
			skip := Skip{Index: i, Reason: err.Error()}
			var ne *NormalizeError
			if errors.As(err, &ne) {
				skip.ContractID = ne.ContractID
				skip.Reason = ne.Err.Error()
			}
			batch.Skipped = append(batch.Skipped, skip)
			continue
		}
		batch.Contracts = append(batch.Contracts, c)
	}
	return batch
}

// Validate checks the invariants every normalized contract must hold.
func (c Contract) Validate() error {
	if c.ContractID == "" {
		return errors.New("missing contract id")
	}
	if c.Type != Call && c.Type != Put {
		return fmt.Errorf("unknown contract type %q", c.Type)
	}
	if _, err := time.Parse(DateLayout, c.Expiration); err != nil {
		return fmt.Errorf("malformed expiration %q", c.Expiration)
	}
	if c.Strike.IsNegative() {
		return fmt.Errorf("negative strike %s", c.Strike)
	}
	if c.Bid.IsNegative() || c.Ask.IsNegative() {
		return fmt.Errorf("negative quote bid=%s ask=%s", c.Bid, c.Ask)
	}
	if c.Volume < 0 || c.OpenInterest < 0 {
		return fmt.Errorf("negative volume %d or open interest %d", c.Volume, c.OpenInterest)
	}
	return nil
}
