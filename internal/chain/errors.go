package chain

import (
	"errors"
	"fmt"
)

var (
	ErrNoDataAvailable   = errors.New("no options data available")
	ErrNoValidRecords    = errors.New("no valid option records")
	ErrTransport         = errors.New("transport failure")
	ErrProvider          = errors.New("provider reported an error")
	ErrNoFutureContracts = errors.New("no contract expires today or later")
	ErrMissingAPIKey     = errors.New("api key is not configured")
)

// SourceError attaches provider and ticker context to an adapter failure.
type SourceError struct {
	Source Source
	Ticker string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Source, e.Ticker, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// WrapSource returns err wrapped in a SourceError, or nil.
func WrapSource(src Source, ticker string, err error) error {
	if err == nil {
		return nil
	}
	var se *SourceError
	if errors.As(err, &se) {
		return err
	}
	return &SourceError{Source: src, Ticker: ticker, Err: err}
}
