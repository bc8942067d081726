package engine

import (
	"context"
	"time"

	"github.com/Bako-Labs/bako-safe-api/repository/models"
)

// ConfirmOnNetwork asks the settlement network for the transaction's
// finality status and reconciles local state with it.
//
// A still-pending answer changes nothing; callers poll again later. A final
// answer persists SUCCESS or FAILED together with the final fee, and on
// success every vault member is notified, with an email for members who
// enabled it. A failing network query persists nothing.
func (e *Engine) ConfirmOnNetwork(ctx context.Context, transactionID string) (*models.Resume, error) {
	tx, err := e.store.Transaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status != models.StatusProcessOnChain && tx.Status != models.StatusPendingSender {
		return nil, InvalidStatef("Transaction not verifiable",
			"transaction %s status is %s, nothing to confirm on chain", transactionID, tx.Status)
	}

	status, err := e.client.FetchStatus(ctx, tx.Hash)
	if err != nil {
		return nil, NetworkFailuref("Finality query failed", "%v", err)
	}

	switch status.State {
	case SettlementSubmitted:
		resume := tx.Resume
		return &resume, nil

	case SettlementSuccess, SettlementFailed:
		final := models.StatusSuccess
		if status.State == SettlementFailed {
			final = models.StatusFailed
		}

		resume := tx.Resume
		resume.Status = final
		resume.GasUsed = status.Fee

		if err := e.store.SettleTransaction(ctx, transactionID, final, resume, status.Fee, time.Now()); err != nil {
			return nil, err
		}

		if final == models.StatusSuccess {
			e.notifyCompleted(ctx, tx)
		}

		e.logger.WithFields(map[string]interface{}{
			"transaction": transactionID,
			"status":      final,
			"fee":         status.Fee,
		}).Info("Transaction settled")

		return &resume, nil

	default:
		return nil, Internalf("Unknown settlement state", "network reported %q for %s", status.State, tx.Hash)
	}
}

func (e *Engine) notifyCompleted(ctx context.Context, tx *models.Transaction) {
	if tx.Vault == nil {
		e.logger.WithField("transaction", tx.ID).Warn("No vault loaded, skipping completion fan-out")
		return
	}

	summary := models.NotificationSummary{
		VaultID:         tx.Vault.ID,
		VaultName:       tx.Vault.Name,
		TransactionID:   tx.ID,
		TransactionName: tx.Name,
	}
	for _, member := range tx.Vault.Members {
		if err := e.notifier.Notify(ctx, member.ID, models.NotificationTransactionCompleted, summary); err != nil {
			e.logger.WithError(err).WithField("user", member.ID).Warn("Failed to notify member of completion")
		}
		if member.Notify && member.Email != "" {
			data := map[string]string{
				"name":             member.Name,
				"vault_name":       tx.Vault.Name,
				"transaction_name": tx.Name,
			}
			if err := e.mailer.Send(ctx, MailTransactionCompleted, member.Email, data); err != nil {
				e.logger.WithError(err).WithField("to", member.Email).Warn("Failed to send completion mail")
			}
		}
	}
}
