package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxRunner executes a function inside one MongoDB session transaction. The
// session context flows to fn, so repository calls made with it join the
// transaction.
type TxRunner struct {
	client *mongo.Client
}

// NewTxRunner wraps a connected client.
func NewTxRunner(client *mongo.Client) *TxRunner {
	return &TxRunner{client: client}
}

// RunInTransaction runs fn inside a session transaction; any error aborts it.
func (r *TxRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
