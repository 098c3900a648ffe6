// repositories/tx.go
package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/ridelink_backend/services"
)

// NewTxRunner returns a services.TxRunner backed by a MongoDB session
// transaction. Every collection write made through the session context
// commits or aborts together, so a ride's ledger record, wallet credits and
// point updates never survive partially. Requires a replica set deployment,
// which is also what the change-stream-capable Atlas tiers run.
func NewTxRunner(client *mongo.Client) services.TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		session, err := client.StartSession()
		if err != nil {
			return err
		}
		defer session.EndSession(ctx)

		_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			return nil, fn(sc)
		})
		return err
	}
}
