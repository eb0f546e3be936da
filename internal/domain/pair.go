// Package domain defines the core data structures shared by the trading
// loop, the snapshot store, and the analysis engine.
package domain

import "fmt"

// Pair is a traded market: base asset against quote (cash) currency.
type Pair struct {
	// Base is the traded asset symbol, e.g. BTC.
	Base string
	// Quote is the cash currency symbol, e.g. KRW.
	Quote string
}

// String returns the BASE_QUOTE representation used in configs and logs.
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.Base, p.Quote)
}

// Market returns the Upbit market code, quote first: KRW-BTC.
func (p Pair) Market() string {
	return fmt.Sprintf("%s-%s", p.Quote, p.Base)
}
