package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bako-Labs/bako-safe-api/repository/models"
)

func seedTransaction(t *testing.T, store *fakeStore, hash string, kind models.TransactionType, updatedAt time.Time) {
	t.Helper()
	tx := &models.Transaction{
		Name:      "seed " + hash,
		Hash:      hash,
		VaultID:   "vault-1",
		Kind:      kind,
		Status:    models.StatusSuccess,
		UpdatedAt: updatedAt,
	}
	require.NoError(t, store.CreateTransaction(context.Background(), tx))
}

func TestListWithIncomingMergesAndTags(t *testing.T) {
	eng, store, client, _, _ := newTestEngine(t)
	seedTransaction(t, store, "0xlocal", models.TypeTransfer, at(10))
	seedTransaction(t, store, "0xingested", models.TypeDeposit, at(20))

	// The network still reports the ingested deposit plus a fresh one.
	client.scanned = []models.Transaction{
		{Hash: "0xingested", VaultID: "vault-1", Kind: models.TypeDeposit, Status: models.StatusSuccess, UpdatedAt: at(20)},
		{Hash: "0xfresh", VaultID: "vault-1", Kind: models.TypeDeposit, Status: models.StatusSuccess, UpdatedAt: at(30)},
	}

	page, err := eng.ListWithIncoming(context.Background(),
		TransactionFilter{VaultIDs: []string{"vault-1"}},
		Ordination{OrderBy: OrderByUpdatedAt, Sort: SortDesc}, nil)
	require.NoError(t, err)

	require.Len(t, page.Data, 3)
	byHash := map[string]Source{}
	for _, tx := range page.Data {
		byHash[tx.Hash] = tx.Source
	}
	assert.Equal(t, SourceLocal, byHash["0xlocal"])
	assert.Equal(t, SourceLocal, byHash["0xingested"], "local record wins over the network copy")
	assert.Equal(t, SourceNetwork, byHash["0xfresh"])

	assert.Equal(t, "0xfresh", page.Data[0].Hash, "newest first")
}

func TestListWithIncomingUnknownVaultFails(t *testing.T) {
	eng, _, _, _, _ := newTestEngine(t)

	_, err := eng.ListWithIncoming(context.Background(),
		TransactionFilter{VaultIDs: []string{"vault-missing"}}, Ordination{}, nil)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestListTransactionsPageShape(t *testing.T) {
	eng, store, _, _, _ := newTestEngine(t)
	for i := 0; i < 5; i++ {
		seedTransaction(t, store, string(rune('a'+i)), models.TypeTransfer, at(i))
	}

	page, err := eng.ListTransactions(context.Background(), TransactionQuery{
		Filter:  TransactionFilter{VaultIDs: []string{"vault-1"}},
		Page:    1,
		PerPage: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.PerPage)
}
