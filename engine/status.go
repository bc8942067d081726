package engine

import "github.com/Bako-Labs/bako-safe-api/repository/models"

// Tally is the witness ledger count for one transaction.
type Tally struct {
	Done     int
	Rejected int
	Pending  int
}

// Total is the number of witness slots, resolved or not.
func (t Tally) Total() int {
	return t.Done + t.Rejected + t.Pending
}

// NextStatus maps a transaction's current status plus its witness tally to
// the status it should hold after a witness update. It is a pure function:
// the same inputs always produce the same verdict.
//
// The transition rule only applies while the transaction is collecting
// approvals. SUCCESS, FAILED and PROCESS_ON_CHAIN are owned by the settlement
// pipeline and are never recomputed here; PENDING_SENDER and DECLINED are
// sticky once reached.
func NextStatus(current models.TransactionStatus, tally Tally, required int) models.TransactionStatus {
	if current != models.StatusAwaitRequirements {
		return current
	}

	switch {
	case tally.Done >= required:
		return models.StatusPendingSender
	case tally.Total()-tally.Rejected < required:
		// Not enough non-rejecting signers remain to ever reach quorum.
		return models.StatusDeclined
	default:
		return models.StatusAwaitRequirements
	}
}
