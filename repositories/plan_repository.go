// repositories/plan_repository.go
package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HSouheill/ridelink_backend/config"
	"github.com/HSouheill/ridelink_backend/models"
)

// PlanRepository is the MongoDB implementation of services.PlanStore. The
// compensation plan is a singleton document; pool balances live in their
// own collection so they can be bumped with $inc per leaf.
type PlanRepository struct {
	plans         *mongo.Collection
	distributions *mongo.Collection
	poolBalances  *mongo.Collection
}

func NewPlanRepository(client *mongo.Client) *PlanRepository {
	return &PlanRepository{
		plans:         config.GetCollection(client, "compensation_plans"),
		distributions: config.GetCollection(client, "distributions"),
		poolBalances:  config.GetCollection(client, "pool_balances"),
	}
}

func (r *PlanRepository) GetPlan(ctx context.Context) (*models.CompensationPlan, error) {
	var plan models.CompensationPlan
	err := r.plans.FindOne(ctx, bson.M{}).Decode(&plan)
	if err == mongo.ErrNoDocuments {
		return nil, models.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) ReplacePlan(ctx context.Context, plan *models.CompensationPlan) error {
	if plan.ID.IsZero() {
		plan.ID = primitive.NewObjectID()
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.plans.ReplaceOne(ctx, bson.M{"_id": plan.ID}, plan, opts)
	return err
}

// AppendDistribution inserts the immutable ledger record. The unique index
// on rideId turns a replay into models.ErrDuplicateRide.
func (r *PlanRepository) AppendDistribution(ctx context.Context, txn models.DistributionTransaction) error {
	if txn.ID.IsZero() {
		txn.ID = primitive.NewObjectID()
	}
	_, err := r.distributions.InsertOne(ctx, txn)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrDuplicateRide
	}
	return err
}

func (r *PlanRepository) HasDistribution(ctx context.Context, rideID string) (bool, error) {
	count, err := r.distributions.CountDocuments(ctx, bson.M{"rideId": rideID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// IncrementPoolBalances bumps every leaf pool's running balance and the
// plan's lifetime total with atomic increments.
func (r *PlanRepository) IncrementPoolBalances(ctx context.Context, allocs []models.PoolAllocation, gross float64) error {
	now := time.Now()
	for _, alloc := range allocs {
		if !alloc.Leaf {
			continue
		}
		filter := bson.M{"pool": alloc.Pool, "subPool": alloc.SubPool}
		update := bson.M{
			"$inc": bson.M{"balance": alloc.Amount},
			"$set": bson.M{"updatedAt": now},
		}
		opts := options.Update().SetUpsert(true)
		if _, err := r.poolBalances.UpdateOne(ctx, filter, update, opts); err != nil {
			return err
		}
	}
	_, err := r.plans.UpdateOne(ctx, bson.M{}, bson.M{
		"$inc": bson.M{"totalDistributed": gross},
		"$set": bson.M{"updatedAt": now},
	})
	return err
}

func (r *PlanRepository) PoolBalances(ctx context.Context) ([]models.PoolBalance, error) {
	opts := options.Find().SetSort(bson.D{{Key: "pool", Value: 1}, {Key: "subPool", Value: 1}})
	cursor, err := r.poolBalances.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var balances []models.PoolBalance
	if err := cursor.All(ctx, &balances); err != nil {
		return nil, err
	}
	return balances, nil
}
