package ledger

import (
	"context"
	"time"
)

// QueryBalance wraps Oracle.BalanceOf with a bounded retry. This is the only
// retried oracle call: confirmations and transfers are never retried here
// because the client recovers from those by resubmitting, which idempotency
// on block index makes safe.
//
// On exhaustion the returned Balance has Known=false. Callers must treat
// that as "balance unknown", never as a confirmed zero.
func QueryBalance(ctx context.Context, oracle Oracle, account string, attempts int) Balance {
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		amount, err := oracle.BalanceOf(ctx, account)
		if err == nil {
			return Balance{Amount: amount, Known: true}
		}
		if ctx.Err() != nil {
			break
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return Balance{}
			case <-time.After(time.Duration(i+1) * 100 * time.Millisecond):
			}
		}
	}
	return Balance{}
}
