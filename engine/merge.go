package engine

import (
	"sort"
	"strings"

	"github.com/Bako-Labs/bako-safe-api/repository/models"
)

// Merge unifies a page of locally persisted transactions with transactions
// fetched live from the settlement network under one ordering and one pair
// of per-source cursors.
//
// The local page is authoritative: network entries whose (hash, kind) the
// local page already holds are dropped. Both sides are ordered by the same
// comparator, so for a stable data set, paging with the returned cursors
// visits every item exactly once with no gaps or duplicates across page
// boundaries.
func Merge(local, network []SourcedTransaction, ord Ordination, pag *MergePagination) MergedPage {
	ord = ord.WithDefaults()

	deduped := make([]SourcedTransaction, 0, len(network))
	for _, ntx := range network {
		if !containsHashKind(local, ntx.Hash, ntx.Kind) {
			deduped = append(deduped, ntx)
		}
	}
	sortSourced(deduped, ord)

	networkSlice := deduped
	if pag != nil {
		networkSlice = window(deduped, pag.OffsetNetwork, pag.PerPage)
	}

	merged := make([]SourcedTransaction, 0, len(local)+len(networkSlice))
	merged = append(merged, local...)
	merged = append(merged, networkSlice...)
	sortSourced(merged, ord)

	if pag == nil {
		return MergedPage{Data: merged, PerPage: len(merged)}
	}

	if len(merged) > pag.PerPage {
		merged = merged[:pag.PerPage]
	}

	fromLocal, fromNetwork := 0, 0
	for _, tx := range merged {
		if tx.Source == SourceNetwork {
			fromNetwork++
		} else {
			fromLocal++
		}
	}

	return MergedPage{
		Data:          merged,
		PerPage:       pag.PerPage,
		OffsetDB:      pag.OffsetDB + fromLocal,
		OffsetNetwork: pag.OffsetNetwork + fromNetwork,
	}
}

func containsHashKind(txs []SourcedTransaction, hash string, kind models.TransactionType) bool {
	for _, tx := range txs {
		if tx.Hash == hash && tx.Kind == kind {
			return true
		}
	}
	return false
}

func window(txs []SourcedTransaction, offset, size int) []SourcedTransaction {
	if offset >= len(txs) {
		return nil
	}
	end := offset + size
	if end > len(txs) {
		end = len(txs)
	}
	return txs[offset:end]
}

func sortSourced(txs []SourcedTransaction, ord Ordination) {
	sort.SliceStable(txs, func(i, j int) bool {
		cmp := compareTransactions(&txs[i].Transaction, &txs[j].Transaction, ord.OrderBy)
		if ord.Sort == SortDesc {
			return cmp > 0
		}
		return cmp < 0
	})
}

// compareTransactions orders by the requested key: timestamps numerically,
// everything else lexicographically. Both listing sources must go through
// this comparator so the merged ordering is consistent.
func compareTransactions(a, b *models.Transaction, orderBy string) int {
	switch orderBy {
	case OrderByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case OrderByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case OrderBySendTime:
		switch {
		case a.SendTime == nil && b.SendTime == nil:
			return 0
		case a.SendTime == nil:
			return -1
		case b.SendTime == nil:
			return 1
		default:
			return a.SendTime.Compare(*b.SendTime)
		}
	case OrderByName:
		return strings.Compare(a.Name, b.Name)
	case OrderByStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case OrderByHash:
		return strings.Compare(a.Hash, b.Hash)
	default:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
}
