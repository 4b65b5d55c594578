package memory

import "context"

// TxRunner satisfies domain.TxRunner without any transactional storage. The
// in-memory stores are mutex-guarded, so fn runs as-is.
type TxRunner struct{}

// NewTxRunner creates a pass-through runner.
func NewTxRunner() *TxRunner { return &TxRunner{} }

// RunInTransaction calls fn directly.
func (r *TxRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
