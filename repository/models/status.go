package models

// TransactionStatus is the approval/settlement status of a transaction.
// AWAIT_REQUIREMENTS, PENDING_SENDER and DECLINED are derived from the witness
// ledger; SUCCESS, FAILED and PROCESS_ON_CHAIN are terminal or in-flight and
// are never recomputed from witnesses once set.
type TransactionStatus string

const (
	StatusAwaitRequirements TransactionStatus = "await_requirements"
	StatusPendingSender     TransactionStatus = "pending_sender"
	StatusProcessOnChain    TransactionStatus = "process_on_chain"
	StatusSuccess           TransactionStatus = "success"
	StatusFailed            TransactionStatus = "failed"
	StatusDeclined          TransactionStatus = "declined"
)

// Terminal reports whether the status can never change again.
func (s TransactionStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusDeclined
}

// Settled reports whether the status is owned by the settlement pipeline
// rather than the witness ledger.
func (s TransactionStatus) Settled() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusProcessOnChain
}

// WitnessStatus is the state of one signer's response slot.
type WitnessStatus string

const (
	WitnessPending  WitnessStatus = "PENDING"
	WitnessDone     WitnessStatus = "DONE"
	WitnessRejected WitnessStatus = "REJECTED"
)

// TransactionType is the kind of settlement transaction.
type TransactionType string

const (
	TypeTransfer TransactionType = "TRANSACTION_SCRIPT"
	TypeDeploy   TransactionType = "TRANSACTION_CREATE"
	TypeDeposit  TransactionType = "DEPOSIT"
)
