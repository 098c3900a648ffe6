// services/store.go
package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/ridelink_backend/models"
)

// MemberStore is the persistence surface the engine needs for members.
// Counter updates (wallet, points) must be atomic increments so concurrent
// rides crediting the same ancestor never lose an update. The MongoDB
// implementation lives in the repositories package.
type MemberStore interface {
	GetMember(ctx context.Context, id primitive.ObjectID) (*models.Member, error)
	GetMembers(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Member, error)

	// FindByIdentifier resolves an internal id, a sponsor code, or a display
	// handle to a single member. Returns models.ErrMemberNotFound otherwise.
	FindByIdentifier(ctx context.Context, identifier string) (*models.Member, error)

	SetSponsor(ctx context.Context, id primitive.ObjectID, sponsorID *primitive.ObjectID, sponsorCode string) error
	AddDirectChild(ctx context.Context, sponsorID, childID primitive.ObjectID) error
	RemoveDirectChild(ctx context.Context, sponsorID, childID primitive.ObjectID) error
	SaveLevelSets(ctx context.Context, id primitive.ObjectID, levels [][]primitive.ObjectID) error

	CreditWallet(ctx context.Context, id primitive.ObjectID, amount float64, txn models.WalletTransaction) error
	WalletTransactions(ctx context.Context, id primitive.ObjectID, limit int64) ([]models.WalletTransaction, error)

	AddPoints(ctx context.Context, id primitive.ObjectID, pointType string, points float64, txn models.PointTransaction) error
	ResetMonthlyPoints(ctx context.Context, id primitive.ObjectID, pointType string, resetAt time.Time) error

	SetRank(ctx context.Context, id primitive.ObjectID, status models.RankStatus, entry models.RankAchievement) error
	SetRewardClaimed(ctx context.Context, id primitive.ObjectID) error

	AllMemberIDs(ctx context.Context) ([]primitive.ObjectID, error)
	CleanupDuplicateWalletTransactions(ctx context.Context) (int64, error)
}

// PlanStore is the persistence surface for the compensation plan singleton
// and the distribution ledger.
type PlanStore interface {
	GetPlan(ctx context.Context) (*models.CompensationPlan, error)
	ReplacePlan(ctx context.Context, plan *models.CompensationPlan) error

	// AppendDistribution inserts an immutable ledger record. Returns
	// models.ErrDuplicateRide when a record for the same rideId exists.
	AppendDistribution(ctx context.Context, txn models.DistributionTransaction) error
	HasDistribution(ctx context.Context, rideID string) (bool, error)

	// IncrementPoolBalances atomically adds every leaf allocation to its
	// pool's running balance and the gross to the plan lifetime total.
	IncrementPoolBalances(ctx context.Context, allocs []models.PoolAllocation, gross float64) error
	PoolBalances(ctx context.Context) ([]models.PoolBalance, error)
}

// TxRunner executes fn as one atomic unit: either every store write fn makes
// is committed, or none are. The MongoDB implementation runs fn inside a
// session transaction and may invoke it more than once on transient errors,
// so fn must be safe to re-run from scratch.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// CreditNotifier is the fire-and-forget boundary to push/socket delivery.
// Failures must never affect the credit that triggered them.
type CreditNotifier interface {
	NotifyWalletCredit(memberID primitive.ObjectID, txn models.WalletTransaction)
	NotifyRankAdvance(memberID primitive.ObjectID, advance models.RankAdvance)
}
