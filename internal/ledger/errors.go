// Package ledger persists trades and paper account balances and owns every
// lifecycle transition and balance mutation. Entry and exit are the only
// legitimate writers of the paper balance.
package ledger

import "errors"

// Named precondition violations. They are surfaced to the immediate caller
// and never silently defaulted.
var (
	ErrEntryPriceRequired  = errors.New("entry price required")
	ErrExitPriceRequired   = errors.New("exit price required")
	ErrPauseReasonRequired = errors.New("pause reason required")
	ErrTerminalTrade       = errors.New("trade is already closed")

	// ErrInsufficientPaperBalance rejects an adjustment that would take the
	// account negative. Recoverable: callers skip the entry and move on.
	ErrInsufficientPaperBalance = errors.New("insufficient paper balance")
)
