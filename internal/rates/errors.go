package rates

import (
	"errors"
	"fmt"
)

// Errors surfaced to callers. Anything else the manager produces is absorbed
// by the service's fallback chain and never escapes GetRates or Convert.
var (
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrUnknownProvider     = errors.New("unknown provider")
	ErrBadRateTable        = errors.New("invalid rate table")
	ErrProviderTimeout     = errors.New("provider attempt timed out")
)

// ProviderError records a single provider's transport, HTTP, or parse
// failure.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ExhaustedError is returned by the manager when every provider in the chain
// has used up its retries. It carries the last observed failure.
type ExhaustedError struct {
	Last error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all providers exhausted: %v", e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }
