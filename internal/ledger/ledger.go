// Package ledger defines the external ledger oracle the registry depends on.
// The registry only consumes the query path (confirming a prior transfer by
// block index, balance reads) plus the transfer path for administrative
// withdrawal. Retry and backoff policy beyond the bounded balance wrapper
// belongs to the oracle, not here.
package ledger

//go:generate mockgen -source=ledger.go -destination=mocks/mocks.go -package=mocks Oracle

import (
	"context"
	"time"

	"namemint/pkg/domain"
)

// Transfer is a confirmed ledger transfer, looked up by block index.
type Transfer struct {
	BlockIndex domain.BlockIndex `json:"block_index"`
	From       string            `json:"from"`
	To         string            `json:"to"`
	Amount     uint64            `json:"amount"`
	TxHash     string            `json:"tx_hash,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Balance is a balance observation. Known distinguishes "the oracle told us
// the amount" from "the oracle could not be reached"; an unknown balance is
// never treated as a confirmed zero.
type Balance struct {
	Amount uint64
	Known  bool
}

// Oracle is the external ledger collaborator.
type Oracle interface {
	// ConfirmTransfer resolves a transfer by its block index. Returns
	// sentinel.ErrNotFound (possibly wrapped) when no such transfer exists.
	ConfirmTransfer(ctx context.Context, blockIndex domain.BlockIndex) (Transfer, error)

	// BalanceOf returns the current balance of an account.
	BalanceOf(ctx context.Context, account string) (uint64, error)

	// Transfer moves funds out of the service account and returns the block
	// index of the resulting ledger entry.
	Transfer(ctx context.Context, to string, amount, fee uint64) (domain.BlockIndex, error)
}
