package models

// PnL computes profit and loss for a position. entry and price are quoted in
// the account currency; size is the notional amount committed, not a unit
// count, so the dollar P&L is the per-unit percentage applied to the notional.
// A zero entry price yields zero P&L rather than dividing by zero.
func PnL(entry, price float64, direction string, size float64) (dollar, percent float64) {
	if entry == 0 {
		return 0, 0
	}
	var perUnit float64
	if direction == DirectionShort {
		perUnit = (entry - price) / entry
	} else {
		perUnit = (price - entry) / entry
	}
	return perUnit * size, perUnit * 100
}
