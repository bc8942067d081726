package engine

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/Bako-Labs/bako-safe-api/repository/models"
)

// SubmitToNetwork rebuilds the signed wire payload for an approved
// transaction and hands it to the settlement network.
//
// The call is idempotent: a transaction already in PROCESS_ON_CHAIN is a
// logged no-op, and a network answer of "hash already known" means a prior
// attempt landed, so nothing changes. Any other submission error moves the
// transaction to FAILED with the error recorded in its resume.
func (e *Engine) SubmitToNetwork(ctx context.Context, transactionID string) error {
	tx, err := e.store.Transaction(ctx, transactionID)
	if err != nil {
		return err
	}

	if tx.Status == models.StatusProcessOnChain {
		e.logger.WithField("transaction", transactionID).Info("Already submitted, skipping")
		return nil
	}
	if tx.Status != models.StatusPendingSender {
		return InvalidStatef("Transaction not ready for submission",
			"transaction %s status is %s, must be %s", transactionID, tx.Status, models.StatusPendingSender)
	}

	payload, err := buildSignedPayload(tx)
	if err != nil {
		return Internalf("Failed to rebuild signed payload", "%v", err)
	}

	cost, err := e.client.EstimateCost(ctx, payload)
	if err != nil {
		// Not a classified submission outcome: leave the prior status intact.
		return NetworkFailuref("Cost estimation failed", "%v", err)
	}

	resume := tx.Resume
	resume.GasUsed = cost.Fee

	networkHash, err := e.client.Submit(ctx, payload)
	switch {
	case err == nil:
		// The network keys the signed payload under its own hash; finality
		// is queried by it, so it replaces the proposal-time hash.
		if networkHash == "" {
			networkHash = tx.Hash
		}
		resume.Status = models.StatusProcessOnChain
		resume.Hash = networkHash
		if _, err := e.store.MarkSubmitted(ctx, transactionID, networkHash, resume); err != nil {
			return err
		}
		e.logger.WithFields(map[string]interface{}{
			"transaction": transactionID,
			"hash":        networkHash,
			"gas_wanted":  cost.GasWanted,
		}).Info("Transaction submitted to settlement network")
		return nil

	case errors.Is(err, ErrAlreadyKnown):
		e.logger.WithField("transaction", transactionID).Info("Hash already known to the network, treating as submitted")
		return nil

	default:
		resume.Status = models.StatusFailed
		resume.Error = err.Error()
		if _, terr := e.store.TransitionStatus(ctx, transactionID, models.StatusPendingSender, models.StatusFailed, resume); terr != nil {
			return terr
		}
		return NetworkFailuref("Submission rejected by settlement network", "%v", err)
	}
}

// buildSignedPayload reassembles the stored unsigned request with the
// collected witness signatures. Contract-creation transactions get their
// deploy witness back at the front, read from the original wire position,
// before the collected signatures in ledger order.
func buildSignedPayload(tx *models.Transaction) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(tx.TxData, &fields); err != nil {
		return nil, errors.Wrap(err, "decode stored tx data")
	}

	var witnesses []string
	if tx.Kind == models.TypeDeploy {
		deployWitness, err := deployWitnessFor(fields)
		if err != nil {
			return nil, err
		}
		witnesses = append(witnesses, deployWitness)
	}
	for _, w := range tx.Witnesses {
		if w.Status == models.WitnessDone && w.Signature != nil {
			witnesses = append(witnesses, *w.Signature)
		}
	}

	raw, err := json.Marshal(witnesses)
	if err != nil {
		return nil, errors.Wrap(err, "encode witnesses")
	}
	fields["witnesses"] = raw

	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, errors.Wrap(err, "encode signed payload")
	}
	return payload, nil
}

func deployWitnessFor(fields map[string]json.RawMessage) (string, error) {
	rawIdx, ok := fields["bytecode_witness_index"]
	if !ok {
		return "", errors.New("deploy transaction has no bytecode witness index")
	}
	var idx int
	if err := json.Unmarshal(rawIdx, &idx); err != nil {
		return "", errors.Wrap(err, "decode bytecode witness index")
	}

	rawWitnesses, ok := fields["witnesses"]
	if !ok {
		return "", errors.New("deploy transaction has no witnesses field")
	}
	var original []string
	if err := json.Unmarshal(rawWitnesses, &original); err != nil {
		return "", errors.Wrap(err, "decode original witnesses")
	}
	if idx < 0 || idx >= len(original) {
		return "", errors.Errorf("bytecode witness index %d out of range (%d witnesses)", idx, len(original))
	}
	return original[idx], nil
}
