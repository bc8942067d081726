package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Bako-Labs/bako-safe-api/repository/models"
)

// Engine drives the multisig transaction lifecycle: proposal, witness
// responses, status recomputation, chain submission and confirmation.
// Everything it touches goes through collaborator interfaces so every piece
// is testable in isolation.
type Engine struct {
	store    Store
	client   SettlementClient
	notifier Notifier
	mailer   Mailer
	logger   *logrus.Logger
}

// New wires an Engine with its collaborators.
func New(store Store, client SettlementClient, notifier Notifier, mailer Mailer, logger *logrus.Logger) *Engine {
	return &Engine{
		store:    store,
		client:   client,
		notifier: notifier,
		mailer:   mailer,
		logger:   logger,
	}
}

// ProposeParams carries a new transaction proposal.
type ProposeParams struct {
	VaultID   string
	Name      string
	Hash      string
	Kind      models.TransactionType
	TxData    []byte
	Assets    []models.Asset
	CreatedBy string
}

// Propose records a new transaction for a vault and seeds its witness ledger
// with one pending slot per vault member. Members other than the proposer
// are notified that a transaction awaits their signature.
func (e *Engine) Propose(ctx context.Context, p ProposeParams) (*models.Transaction, error) {
	vault, err := e.store.Vault(ctx, p.VaultID)
	if err != nil {
		return nil, err
	}

	witnesses := make([]models.Witness, 0, len(vault.Members))
	for _, member := range vault.Members {
		witnesses = append(witnesses, models.Witness{
			Account: member.Address,
			Status:  models.WitnessPending,
		})
	}

	tx := &models.Transaction{
		Name:        p.Name,
		Hash:        p.Hash,
		VaultID:     vault.ID,
		Kind:        p.Kind,
		Status:      models.StatusAwaitRequirements,
		TxData:      p.TxData,
		CreatedByID: p.CreatedBy,
		Witnesses:   witnesses,
		Assets:      p.Assets,
		Resume: models.Resume{
			Hash:            p.Hash,
			Status:          models.StatusAwaitRequirements,
			Witnesses:       []string{},
			RequiredSigners: vault.MinSigners,
			TotalSigners:    len(vault.Members),
			Vault: models.ResumeVault{
				ID:      vault.ID,
				Address: vault.PredicateAddress,
			},
		},
	}

	if err := e.store.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	tx.Vault = vault

	summary := models.NotificationSummary{
		VaultID:         vault.ID,
		VaultName:       vault.Name,
		TransactionID:   tx.ID,
		TransactionName: tx.Name,
	}
	for _, member := range vault.Members {
		if member.ID == p.CreatedBy {
			continue
		}
		if err := e.notifier.Notify(ctx, member.ID, models.NotificationTransactionCreated, summary); err != nil {
			e.logger.WithError(err).WithField("user", member.ID).Warn("Failed to notify member of new transaction")
		}
	}

	e.logger.WithFields(logrus.Fields{
		"transaction": tx.ID,
		"vault":       vault.ID,
		"witnesses":   len(witnesses),
	}).Info("Transaction proposed")

	return tx, nil
}

// RespondToWitness applies one signer's approval or rejection to its pending
// slot and recomputes the transaction status from the fresh tally. The slot
// write and the status transition are both single conditional updates, so
// concurrent responses from different signers cannot act on a stale tally:
// the losing writer's transition simply does not apply.
func (e *Engine) RespondToWitness(ctx context.Context, transactionID, account string, approve bool, signature *string) (bool, error) {
	tx, err := e.store.Transaction(ctx, transactionID)
	if err != nil {
		return false, err
	}
	if tx.Vault == nil {
		return false, Internalf("Witness response failed", "transaction %s has no vault loaded", transactionID)
	}

	if err := e.store.ResolveWitness(ctx, transactionID, account, signature, approve); err != nil {
		return false, err
	}

	tally, err := e.store.WitnessTally(ctx, transactionID)
	if err != nil {
		return false, err
	}

	// Reload after the slot write: the resume's signature list is rebuilt
	// from the ledger, so a concurrent approver's signature is never lost
	// to a stale in-memory copy.
	fresh, err := e.store.Transaction(ctx, transactionID)
	if err != nil {
		return false, err
	}

	next := NextStatus(fresh.Status, tally, tx.Vault.MinSigners)

	resume := fresh.Resume
	resume.Status = next
	resume.Witnesses = collectedSignatures(fresh.Witnesses)

	applied, err := e.store.TransitionStatus(ctx, transactionID, fresh.Status, next, resume)
	if err != nil {
		return false, err
	}
	if !applied {
		// A concurrent response recomputed from a fresher tally and won.
		e.logger.WithField("transaction", transactionID).Debug("Status transition skipped, row already moved on")
	}

	summary := models.NotificationSummary{
		VaultID:         tx.Vault.ID,
		VaultName:       tx.Vault.Name,
		TransactionID:   tx.ID,
		TransactionName: tx.Name,
	}
	e.notifyAfterResponse(ctx, tx, account, approve, next, summary)

	e.logger.WithFields(logrus.Fields{
		"transaction": transactionID,
		"account":     account,
		"approve":     approve,
		"status":      next,
	}).Info("Witness response recorded")

	return true, nil
}

// collectedSignatures lists the signatures of resolved approvals in ledger
// order.
func collectedSignatures(witnesses []models.Witness) []string {
	out := []string{}
	for _, w := range witnesses {
		if w.Status == models.WitnessDone && w.Signature != nil {
			out = append(out, *w.Signature)
		}
	}
	return out
}

func (e *Engine) notifyAfterResponse(ctx context.Context, tx *models.Transaction, account string, approve bool, next models.TransactionStatus, summary models.NotificationSummary) {
	if approve {
		for _, member := range tx.Vault.Members {
			if member.Address == account {
				continue
			}
			if err := e.notifier.Notify(ctx, member.ID, models.NotificationTransactionSigned, summary); err != nil {
				e.logger.WithError(err).WithField("user", member.ID).Warn("Failed to notify member of signature")
			}
		}
	}

	if next == models.StatusDeclined {
		for _, member := range tx.Vault.Members {
			if err := e.notifier.Notify(ctx, member.ID, models.NotificationTransactionDeclined, summary); err != nil {
				e.logger.WithError(err).WithField("user", member.ID).Warn("Failed to notify member of decline")
			}
		}
	}
}

// FindByID loads one transaction with its vault, witnesses and assets.
func (e *Engine) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	return e.store.Transaction(ctx, id)
}

// FindByHash loads one transaction by its settlement hash.
func (e *Engine) FindByHash(ctx context.Context, hash string) (*models.Transaction, error) {
	return e.store.TransactionByHash(ctx, hash)
}

// Delete soft-deletes a transaction, keeping its history.
func (e *Engine) Delete(ctx context.Context, id string) error {
	return e.store.SoftDeleteTransaction(ctx, id)
}
