package engine

import (
	"context"
	"sync"

	"github.com/Bako-Labs/bako-safe-api/repository/models"
)

// scanLimit caps how many network-side records a single dual-source listing
// pulls per vault.
const scanLimit = 1000

// ListTransactions runs a local-only listing and shapes it into a page.
func (e *Engine) ListTransactions(ctx context.Context, q TransactionQuery) (*Page, error) {
	q.Ordination = q.Ordination.WithDefaults()
	if q.Page > 0 && q.PerPage <= 0 {
		q.PerPage = 10
	}

	txs, total, err := e.store.ListTransactions(ctx, q)
	if err != nil {
		return nil, err
	}

	page := &Page{Data: txs, Total: total}
	if q.Page > 0 {
		page.CurrentPage = q.Page
		page.PerPage = q.PerPage
		page.TotalPages = int((total + int64(q.PerPage) - 1) / int64(q.PerPage))
	}
	return page, nil
}

// ListWithIncoming lists transactions from both the local store and the
// settlement network in one consistently ordered result. The two sources are
// fetched concurrently, every item is tagged with its origin, and the merge
// keeps a cursor per source so follow-up pages skip exactly what earlier
// pages returned.
func (e *Engine) ListWithIncoming(ctx context.Context, filter TransactionFilter, ord Ordination, pag *MergePagination) (*MergedPage, error) {
	ord = ord.WithDefaults()

	q := TransactionQuery{Filter: filter, Ordination: ord}
	if pag != nil {
		q.Offset = pag.OffsetDB
		q.PerPage = pag.PerPage
	}

	var (
		wg       sync.WaitGroup
		local    []models.Transaction
		localErr error
		incoming []models.Transaction
		netErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		local, _, localErr = e.store.ListTransactions(ctx, q)
	}()
	go func() {
		defer wg.Done()
		incoming, netErr = e.scanVaults(ctx, filter.VaultIDs)
	}()
	wg.Wait()

	if localErr != nil {
		return nil, localErr
	}
	if netErr != nil {
		return nil, netErr
	}

	merged := Merge(tagSource(local, SourceLocal), tagSource(incoming, SourceNetwork), ord, pag)
	return &merged, nil
}

func (e *Engine) scanVaults(ctx context.Context, vaultIDs []string) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, id := range vaultIDs {
		vault, err := e.store.Vault(ctx, id)
		if err != nil {
			return nil, err
		}
		txs, err := e.client.ScanVault(ctx, vault, scanLimit)
		if err != nil {
			return nil, NetworkFailuref("Vault scan failed", "vault %s: %v", id, err)
		}
		out = append(out, txs...)
	}
	return out, nil
}

func tagSource(txs []models.Transaction, src Source) []SourcedTransaction {
	tagged := make([]SourcedTransaction, len(txs))
	for i, tx := range txs {
		tagged[i] = SourcedTransaction{Transaction: tx, Source: src}
	}
	return tagged
}
