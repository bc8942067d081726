package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bako-Labs/bako-safe-api/repository/models"
)

func localTx(hash string, updatedAt time.Time) SourcedTransaction {
	return SourcedTransaction{
		Transaction: models.Transaction{
			Hash:      hash,
			Kind:      models.TypeTransfer,
			UpdatedAt: updatedAt,
		},
		Source: SourceLocal,
	}
}

func networkTx(hash string, updatedAt time.Time) SourcedTransaction {
	return SourcedTransaction{
		Transaction: models.Transaction{
			Hash:      hash,
			Kind:      models.TypeDeposit,
			UpdatedAt: updatedAt,
		},
		Source: SourceNetwork,
	}
}

func at(minute int) time.Time {
	return time.Date(2024, 5, 1, 12, minute, 0, 0, time.UTC)
}

func TestMergeOrdersAcrossSources(t *testing.T) {
	local := []SourcedTransaction{localTx("a", at(10)), localTx("b", at(30))}
	network := []SourcedTransaction{networkTx("c", at(20)), networkTx("d", at(40))}

	merged := Merge(local, network, Ordination{OrderBy: OrderByUpdatedAt, Sort: SortDesc}, nil)

	require.Len(t, merged.Data, 4)
	hashes := []string{}
	for _, tx := range merged.Data {
		hashes = append(hashes, tx.Hash)
	}
	assert.Equal(t, []string{"d", "b", "c", "a"}, hashes)
}

func TestMergeLocalPageIsAuthoritative(t *testing.T) {
	// The network reports a deposit the local page already holds with the
	// same hash and kind: the duplicate is dropped.
	dup := localTx("shared", at(10))
	dup.Kind = models.TypeDeposit
	local := []SourcedTransaction{dup}
	network := []SourcedTransaction{networkTx("shared", at(20)), networkTx("fresh", at(30))}

	merged := Merge(local, network, Ordination{}, nil)

	require.Len(t, merged.Data, 2)
	sources := map[string]Source{}
	for _, tx := range merged.Data {
		sources[tx.Hash] = tx.Source
	}
	assert.Equal(t, SourceLocal, sources["shared"])
	assert.Equal(t, SourceNetwork, sources["fresh"])
}

func TestMergeSameHashDifferentKindIsKept(t *testing.T) {
	local := []SourcedTransaction{localTx("shared", at(10))}
	network := []SourcedTransaction{networkTx("shared", at(20))}

	merged := Merge(local, network, Ordination{}, nil)
	assert.Len(t, merged.Data, 2)
}

func TestMergeAdvancesCursorsPerSource(t *testing.T) {
	local := []SourcedTransaction{localTx("l1", at(50)), localTx("l2", at(40))}
	network := []SourcedTransaction{networkTx("n1", at(45)), networkTx("n2", at(35))}

	merged := Merge(local, network, Ordination{OrderBy: OrderByUpdatedAt, Sort: SortDesc}, &MergePagination{PerPage: 3})

	require.Len(t, merged.Data, 3)
	assert.Equal(t, "l1", merged.Data[0].Hash)
	assert.Equal(t, "n1", merged.Data[1].Hash)
	assert.Equal(t, "l2", merged.Data[2].Hash)
	assert.Equal(t, 2, merged.OffsetDB)
	assert.Equal(t, 1, merged.OffsetNetwork)
}

// Paging with the returned cursors must visit every item exactly once, no
// matter how the two sources interleave.
func TestMergePaginationIsExactlyOnce(t *testing.T) {
	var local, network []SourcedTransaction
	for i := 0; i < 7; i++ {
		local = append(local, localTx(string(rune('a'+i)), at(i*2)))
	}
	for i := 0; i < 5; i++ {
		network = append(network, networkTx(string(rune('p'+i)), at(i*2+1)))
	}
	ord := Ordination{OrderBy: OrderByUpdatedAt, Sort: SortAsc}

	seen := map[string]int{}
	pag := &MergePagination{PerPage: 3}
	for page := 0; page < 10; page++ {
		// The local source re-windows on every request, the way the
		// persistence layer would with the db cursor.
		localPage := window(local, pag.OffsetDB, pag.PerPage)
		merged := Merge(localPage, network, ord, pag)
		if len(merged.Data) == 0 {
			break
		}
		for _, tx := range merged.Data {
			seen[tx.Hash]++
		}
		pag = &MergePagination{
			PerPage:       merged.PerPage,
			OffsetDB:      merged.OffsetDB,
			OffsetNetwork: merged.OffsetNetwork,
		}
	}

	assert.Len(t, seen, 12, "every item from both sources appears")
	for hash, count := range seen {
		assert.Equalf(t, 1, count, "item %s delivered exactly once", hash)
	}
}

func TestMergeUnpaginatedReturnsEverything(t *testing.T) {
	local := []SourcedTransaction{localTx("a", at(1))}
	network := []SourcedTransaction{networkTx("b", at(2)), networkTx("c", at(3))}

	merged := Merge(local, network, Ordination{}, nil)
	assert.Len(t, merged.Data, 3)
	assert.Zero(t, merged.OffsetDB)
	assert.Zero(t, merged.OffsetNetwork)
}

func TestCompareTransactionsKeys(t *testing.T) {
	early := at(1)
	late := at(2)

	a := &models.Transaction{Name: "alpha", Hash: "1", Status: models.StatusFailed, CreatedAt: early, UpdatedAt: late}
	b := &models.Transaction{Name: "beta", Hash: "2", Status: models.StatusSuccess, CreatedAt: late, UpdatedAt: early}

	assert.Negative(t, compareTransactions(a, b, OrderByCreatedAt))
	assert.Positive(t, compareTransactions(a, b, OrderByUpdatedAt))
	assert.Negative(t, compareTransactions(a, b, OrderByName))
	assert.Negative(t, compareTransactions(a, b, OrderByHash))
	assert.Negative(t, compareTransactions(a, b, OrderByStatus))

	// Unset send times sort before set ones.
	b.SendTime = &late
	assert.Negative(t, compareTransactions(a, b, OrderBySendTime))
}
