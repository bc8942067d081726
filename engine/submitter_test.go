package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bako-Labs/bako-safe-api/repository/models"
)

func approveToQuorum(t *testing.T, eng *Engine, txID string) {
	t.Helper()
	ctx := context.Background()
	sigA, sigB := "sig-a", "sig-b"
	_, err := eng.RespondToWitness(ctx, txID, "0xaaa", true, &sigA)
	require.NoError(t, err)
	_, err = eng.RespondToWitness(ctx, txID, "0xbbb", true, &sigB)
	require.NoError(t, err)
}

func TestSubmitMovesToProcessOnChain(t *testing.T) {
	eng, store, client, _, _ := newTestEngine(t)
	tx := propose(t, eng)
	approveToQuorum(t, eng, tx.ID)
	ctx := context.Background()

	require.NoError(t, eng.SubmitToNetwork(ctx, tx.ID))

	current, err := store.Transaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessOnChain, current.Status)
	assert.Equal(t, models.StatusProcessOnChain, current.Resume.Status)
	assert.Equal(t, "21000", current.Resume.GasUsed)

	// The hash the network assigned to the broadcast replaces the
	// proposal-time hash on the row and in the resume.
	assert.Equal(t, "abcd", current.Hash)
	assert.Equal(t, "abcd", current.Resume.Hash)

	// The broadcast payload carries the collected signatures in ledger order.
	require.Len(t, client.submitted, 1)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(client.submitted[0], &fields))
	var witnesses []string
	require.NoError(t, json.Unmarshal(fields["witnesses"], &witnesses))
	assert.Equal(t, []string{"sig-a", "sig-b"}, witnesses)
}

func TestSubmitBeforeQuorumIsInvalid(t *testing.T) {
	eng, _, client, _, _ := newTestEngine(t)
	tx := propose(t, eng)

	err := eng.SubmitToNetwork(context.Background(), tx.ID)
	require.Error(t, err)
	assert.True(t, IsInvalidState(err))
	assert.Empty(t, client.submitted)
}

func TestSubmitIsIdempotentOnceInFlight(t *testing.T) {
	eng, _, client, _, _ := newTestEngine(t)
	tx := propose(t, eng)
	approveToQuorum(t, eng, tx.ID)
	ctx := context.Background()

	require.NoError(t, eng.SubmitToNetwork(ctx, tx.ID))
	require.NoError(t, eng.SubmitToNetwork(ctx, tx.ID), "repeat submit is a no-op")
	assert.Len(t, client.submitted, 1)
}

func TestSubmitAlreadyKnownIsSuccess(t *testing.T) {
	eng, store, client, _, _ := newTestEngine(t)
	tx := propose(t, eng)
	approveToQuorum(t, eng, tx.ID)
	client.submitErr = errors.Wrap(ErrAlreadyKnown, "broadcast tx")
	ctx := context.Background()

	require.NoError(t, eng.SubmitToNetwork(ctx, tx.ID))

	// The status is untouched; the earlier submission owns it.
	current, err := store.Transaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingSender, current.Status)
}

func TestSubmitFailureMarksFailed(t *testing.T) {
	eng, store, client, _, _ := newTestEngine(t)
	tx := propose(t, eng)
	approveToQuorum(t, eng, tx.ID)
	client.submitErr = errors.New("out of gas")
	ctx := context.Background()

	err := eng.SubmitToNetwork(ctx, tx.ID)
	require.Error(t, err)
	assert.Equal(t, KindNetworkFailure, KindOf(err))

	current, lerr := store.Transaction(ctx, tx.ID)
	require.NoError(t, lerr)
	assert.Equal(t, models.StatusFailed, current.Status)
	assert.Contains(t, current.Resume.Error, "out of gas")
}

func TestSubmitEstimateFailureKeepsStatus(t *testing.T) {
	eng, store, client, _, _ := newTestEngine(t)
	tx := propose(t, eng)
	approveToQuorum(t, eng, tx.ID)
	client.estimateErr = errors.New("node unreachable")
	ctx := context.Background()

	err := eng.SubmitToNetwork(ctx, tx.ID)
	require.Error(t, err)
	assert.Equal(t, KindNetworkFailure, KindOf(err))

	current, lerr := store.Transaction(ctx, tx.ID)
	require.NoError(t, lerr)
	assert.Equal(t, models.StatusPendingSender, current.Status, "estimation failure is retryable")
}

func TestBuildSignedPayloadPrependsDeployWitness(t *testing.T) {
	sig := "sig-member"
	tx := &models.Transaction{
		Kind:   models.TypeDeploy,
		TxData: []byte(`{"bytecode_witness_index":1,"witnesses":["unused","bytecode-blob"]}`),
		Witnesses: []models.Witness{
			{Account: "0xaaa", Status: models.WitnessDone, Signature: &sig},
			{Account: "0xbbb", Status: models.WitnessRejected},
		},
	}

	payload, err := buildSignedPayload(tx)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &fields))
	var witnesses []string
	require.NoError(t, json.Unmarshal(fields["witnesses"], &witnesses))
	assert.Equal(t, []string{"bytecode-blob", "sig-member"}, witnesses)
}

func TestBuildSignedPayloadRejectsBadDeployIndex(t *testing.T) {
	tx := &models.Transaction{
		Kind:   models.TypeDeploy,
		TxData: []byte(`{"bytecode_witness_index":5,"witnesses":["only-one"]}`),
	}
	_, err := buildSignedPayload(tx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}
