// Package analysis reconstructs trades and attributes profit/loss from the
// append-only snapshot log. It is a pure batch computation: the same
// snapshot sequence always produces the same ledger, and nothing here
// writes back to the store or logs.
package analysis

import "github.com/shopspring/decimal"

// Config carries the engine thresholds. All of them are overridable from
// the application config; the defaults match the Upbit KRW market.
type Config struct {
	// FeeRate is the fraction of trade notional charged by the exchange.
	FeeRate decimal.Decimal
	// Epsilon absorbs floating point noise in base-asset deltas below the
	// minimum tradable unit.
	Epsilon decimal.Decimal
	// MaterialityThreshold is the minimum cash delta treated as a
	// deliberate deposit or withdrawal rather than noise.
	MaterialityThreshold decimal.Decimal
}

// DefaultConfig returns the Upbit spot-market defaults: 0.05% fee,
// 1e-6 base-asset epsilon, 1,000 KRW cash materiality.
func DefaultConfig() Config {
	return Config{
		FeeRate:              decimal.NewFromFloat(0.0005),
		Epsilon:              decimal.New(1, -6),
		MaterialityThreshold: decimal.NewFromInt(1000),
	}
}
