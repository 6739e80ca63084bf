package rates

import (
	"fmt"
	"time"
)

// Pivot is the reference currency every RateTable is expressed against:
// one Somali Shilling equals table[code] units of each listed currency.
const Pivot = "SOS"

// RateTable maps a currency code to its rate relative to the pivot.
type RateTable map[string]float64

// Snapshot is a rate table together with the time it was captured.
type Snapshot struct {
	CapturedAt time.Time `json:"captured_at"`
	Rates      RateTable `json:"rates"`
}

// Validate checks the structural invariants of a fetched table: the pivot
// entry must be present and exactly 1.0, and every rate must be positive.
func (t RateTable) Validate() error {
	pivot, ok := t[Pivot]
	if !ok {
		return fmt.Errorf("%w: missing pivot entry %s", ErrBadRateTable, Pivot)
	}
	if pivot != 1.0 {
		return fmt.Errorf("%w: pivot entry %s = %v, want 1", ErrBadRateTable, Pivot, pivot)
	}
	for code, rate := range t {
		if rate <= 0 {
			return fmt.Errorf("%w: non-positive rate %v for %s", ErrBadRateTable, rate, code)
		}
	}
	return nil
}

// Rate returns the pivot rate for a currency code.
func (t RateTable) Rate(code string) (float64, error) {
	r, ok := t[code]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, code)
	}
	return r, nil
}

// Convert converts an amount between two currencies, routing through the
// pivot. A same-currency conversion returns the amount unchanged without
// touching the table.
func (t RateTable) Convert(amount float64, from, to string) (float64, error) {
	if from == to {
		return amount, nil
	}
	if from == Pivot {
		rate, err := t.Rate(to)
		if err != nil {
			return 0, err
		}
		return amount * rate, nil
	}
	if to == Pivot {
		rate, err := t.Rate(from)
		if err != nil {
			return 0, err
		}
		return amount * (1 / rate), nil
	}
	fromRate, err := t.Rate(from)
	if err != nil {
		return 0, err
	}
	toRate, err := t.Rate(to)
	if err != nil {
		return 0, err
	}
	return (amount / fromRate) * toRate, nil
}

// Clone returns a copy so callers cannot mutate a cached table in place.
func (t RateTable) Clone() RateTable {
	out := make(RateTable, len(t))
	for code, rate := range t {
		out[code] = rate
	}
	return out
}
