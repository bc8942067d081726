package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cometbft/cometbft/mempool"
	cmthttp "github.com/cometbft/cometbft/rpc/client/http"
	cmtrpctypes "github.com/cometbft/cometbft/rpc/core/types"
	cmtjsonrpctypes "github.com/cometbft/cometbft/rpc/jsonrpc/types"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Bako-Labs/bako-safe-api/engine"
	"github.com/Bako-Labs/bako-safe-api/repository/models"
)

// TxSearch caps results per page; larger scans walk pages.
const searchPageSize = 100

// Client talks to the settlement network over the node's RPC endpoint. It
// implements engine.SettlementClient.
type Client struct {
	rpc    *cmthttp.HTTP
	cache  *ScanCache
	logger *logrus.Logger
}

// NewClient dials the node RPC at remote. The scan cache is optional; without
// it every vault scan hits the network.
func NewClient(remote string, cache *ScanCache, logger *logrus.Logger) (*Client, error) {
	rpc, err := cmthttp.New(remote, "/websocket")
	if err != nil {
		return nil, errors.Wrapf(err, "dial node rpc at %s", remote)
	}
	return &Client{rpc: rpc, cache: cache, logger: logger}, nil
}

// EstimateCost runs the payload through the node's mempool check without
// committing it, returning the gas the node would want.
func (c *Client) EstimateCost(ctx context.Context, payload []byte) (engine.Cost, error) {
	res, err := c.rpc.CheckTx(ctx, cmttypes.Tx(payload))
	if err != nil {
		return engine.Cost{}, errors.Wrap(err, "check tx")
	}
	if res.Code != 0 {
		return engine.Cost{}, errors.Errorf("node rejected payload: code %d, %s", res.Code, res.Log)
	}
	return engine.Cost{
		GasWanted: res.GasWanted,
		Fee:       strconv.FormatInt(res.GasWanted, 10),
	}, nil
}

// Submit broadcasts the signed payload and returns the network hash. A node
// that already holds the hash yields engine.ErrAlreadyKnown so callers can
// treat the retry as settled.
func (c *Client) Submit(ctx context.Context, payload []byte) (string, error) {
	// The RPC call blocks inside the transport; the channel keeps ctx
	// cancellation authoritative.
	type broadcastResult struct {
		res *cmtrpctypes.ResultBroadcastTx
		err error
	}
	done := make(chan broadcastResult, 1)
	go func() {
		res, err := c.rpc.BroadcastTxSync(ctx, cmttypes.Tx(payload))
		done <- broadcastResult{res, err}
	}()

	select {
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), "broadcast tx")
	case out := <-done:
		if out.err != nil {
			if isAlreadyKnown(out.err) {
				return "", engine.ErrAlreadyKnown
			}
			return "", errors.Wrap(out.err, "broadcast tx")
		}
		if out.res.Code != 0 {
			if strings.Contains(out.res.Log, mempool.ErrTxInCache.Error()) {
				return "", engine.ErrAlreadyKnown
			}
			return "", errors.Errorf("broadcast rejected: code %d, %s", out.res.Code, out.res.Log)
		}
		return hex.EncodeToString(out.res.Hash), nil
	}
}

// isAlreadyKnown recognizes the node's duplicate-hash answer. The sentinel
// comparison covers in-process clients; remote RPC flattens the error to a
// string, so the message is matched here and nowhere else.
func isAlreadyKnown(err error) bool {
	if errors.Is(err, mempool.ErrTxInCache) {
		return true
	}
	return strings.Contains(err.Error(), mempool.ErrTxInCache.Error())
}

// FetchStatus asks the node whether the hash reached a block. A hash the node
// does not know yet is still in flight, not an error.
func (c *Client) FetchStatus(ctx context.Context, hash string) (engine.SettlementStatus, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hash, "0x"))
	if err != nil {
		return engine.SettlementStatus{}, errors.Wrapf(err, "decode hash %s", hash)
	}

	res, err := c.rpc.Tx(ctx, raw, false)
	if err != nil {
		if isTxNotFound(err) {
			return engine.SettlementStatus{State: engine.SettlementSubmitted}, nil
		}
		return engine.SettlementStatus{}, errors.Wrap(err, "query tx")
	}

	status := engine.SettlementStatus{
		State: engine.SettlementSuccess,
		Fee:   strconv.FormatInt(res.TxResult.GasUsed, 10),
	}
	if res.TxResult.Code != 0 {
		status.State = engine.SettlementFailed
	}
	return status, nil
}

// isTxNotFound recognizes the node's answer for a hash it does not hold yet.
// The node has no structured code for it, so the match inspects the Data field
// of the typed RPC error rather than the flattened error string, which would
// also catch unrelated failures that happen to mention "not found".
func isTxNotFound(err error) bool {
	var rpcErr *cmtjsonrpctypes.RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	return strings.Contains(rpcErr.Data, "not found")
}

// ScanVault lists the network's own record of transfers into the vault's
// predicate address, shaped as deposit records. Results are cached briefly so
// listing pages in quick succession reuse one network query.
func (c *Client) ScanVault(ctx context.Context, vault *models.Vault, limit int) ([]models.Transaction, error) {
	if c.cache != nil {
		if txs, ok := c.cache.Get(vault.PredicateAddress); ok {
			return txs, nil
		}
	}

	query := fmt.Sprintf("transfer.recipient='%s'", vault.PredicateAddress)
	blockTimes := map[int64]time.Time{}

	var out []models.Transaction
	perPage := searchPageSize
	for page := 1; len(out) < limit; page++ {
		p := page
		res, err := c.rpc.TxSearch(ctx, query, false, &p, &perPage, "desc")
		if err != nil {
			return nil, errors.Wrapf(err, "search txs for %s", vault.PredicateAddress)
		}
		if len(res.Txs) == 0 {
			break
		}
		for _, item := range res.Txs {
			if len(out) == limit {
				break
			}
			out = append(out, c.depositFrom(ctx, vault, item, blockTimes))
		}
		if len(out) >= res.TotalCount {
			break
		}
	}

	if c.cache != nil {
		if err := c.cache.Put(vault.PredicateAddress, out); err != nil {
			c.logger.WithError(err).WithField("vault", vault.ID).Warn("Failed to cache vault scan")
		}
	}
	return out, nil
}

// depositFrom shapes one network search hit as a deposit transaction for the
// vault. Timestamps come from the containing block, memoized per height.
func (c *Client) depositFrom(ctx context.Context, vault *models.Vault, item *cmtrpctypes.ResultTx, blockTimes map[int64]time.Time) models.Transaction {
	when, ok := blockTimes[item.Height]
	if !ok {
		height := item.Height
		block, err := c.rpc.Block(ctx, &height)
		if err != nil || block.Block == nil {
			c.logger.WithError(err).WithField("height", item.Height).Warn("Failed to load block for deposit timestamp")
			when = time.Now()
		} else {
			when = block.Block.Time
		}
		blockTimes[item.Height] = when
	}

	hash := hex.EncodeToString(item.Hash)
	tx := models.Transaction{
		Name:      "Deposit",
		Hash:      hash,
		VaultID:   vault.ID,
		Kind:      models.TypeDeposit,
		Status:    models.StatusSuccess,
		GasUsed:   strconv.FormatInt(item.TxResult.GasUsed, 10),
		SendTime:  &when,
		CreatedAt: when,
		UpdatedAt: when,
		Resume: models.Resume{
			Hash:   hash,
			Status: models.StatusSuccess,
			Vault: models.ResumeVault{
				ID:      vault.ID,
				Address: vault.PredicateAddress,
			},
			GasUsed: strconv.FormatInt(item.TxResult.GasUsed, 10),
		},
	}

	for _, event := range item.TxResult.Events {
		if event.Type != "transfer" {
			continue
		}
		asset := models.Asset{To: vault.PredicateAddress}
		for _, attr := range event.Attributes {
			switch attr.Key {
			case "recipient":
				asset.To = attr.Value
			case "amount":
				asset.Amount = attr.Value
			case "denom", "asset_id":
				asset.AssetID = attr.Value
			}
		}
		tx.Assets = append(tx.Assets, asset)
	}
	return tx
}
