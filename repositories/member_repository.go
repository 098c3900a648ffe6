// repositories/member_repository.go
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

// MemberRepository is the MongoDB implementation of services.MemberStore.
// Wallet and point counters are updated with $inc so concurrent rides
// crediting the same member never lose an update.
type MemberRepository struct {
	members    *mongo.Collection
	walletTxns *mongo.Collection
	pointTxns  *mongo.Collection
}

func NewMemberRepository(client *mongo.Client) *MemberRepository {
	return &MemberRepository{
		members:    config.GetCollection(client, "members"),
		walletTxns: config.GetCollection(client, "wallet_transactions"),
		pointTxns:  config.GetCollection(client, "point_transactions"),
	}
}

func (r *MemberRepository) GetMember(ctx context.Context, id primitive.ObjectID) (*models.Member, error) {
	var member models.Member
	err := r.members.FindOne(ctx, bson.M{"_id": id}).Decode(&member)
	if err == mongo.ErrNoDocuments {
		return nil, models.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *MemberRepository) GetMembers(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Member, error) {
	result := make(map[primitive.ObjectID]*models.Member, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	cursor, err := r.members.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var member models.Member
		if err := cursor.Decode(&member); err != nil {
			return nil, err
		}
		m := member
		result[member.ID] = &m
	}
	return result, cursor.Err()
}

// FindByIdentifier resolves an internal id, a sponsor code, or a display
// handle, in that order.
func (r *MemberRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.Member, error) {
	if identifier == "" {
		return nil, models.ErrMemberNotFound
	}
	if id, err := primitive.ObjectIDFromHex(identifier); err == nil {
		if member, err := r.GetMember(ctx, id); err == nil {
			return member, nil
		}
	}
	for _, field := range []string{"sponsorCode", "handle"} {
		var member models.Member
		err := r.members.FindOne(ctx, bson.M{field: identifier}).Decode(&member)
		if err == nil {
			return &member, nil
		}
		if err != mongo.ErrNoDocuments {
			return nil, err
		}
	}
	return nil, models.ErrMemberNotFound
}

func (r *MemberRepository) SetSponsor(ctx context.Context, id primitive.ObjectID, sponsorID *primitive.ObjectID, sponsorCode string) error {
	update := bson.M{
		"$set": bson.M{
			"sponsorId": sponsorID,
			"sponsorBy": sponsorCode,
			"updatedAt": time.Now(),
		},
	}
	if sponsorID == nil {
		update = bson.M{
			"$unset": bson.M{"sponsorId": "", "sponsorBy": ""},
			"$set":   bson.M{"updatedAt": time.Now()},
		}
	}
	res, err := r.members.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) AddDirectChild(ctx context.Context, sponsorID, childID primitive.ObjectID) error {
	_, err := r.members.UpdateByID(ctx, sponsorID, bson.M{
		"$addToSet": bson.M{"directChildren": childID},
		"$set":      bson.M{"updatedAt": time.Now()},
	})
	return err
}

func (r *MemberRepository) RemoveDirectChild(ctx context.Context, sponsorID, childID primitive.ObjectID) error {
	_, err := r.members.UpdateByID(ctx, sponsorID, bson.M{
		"$pull": bson.M{"directChildren": childID},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	return err
}

func (r *MemberRepository) SaveLevelSets(ctx context.Context, id primitive.ObjectID, levels [][]primitive.ObjectID) error {
	if levels == nil {
		levels = [][]primitive.ObjectID{}
	}
	_, err := r.members.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"levelSets": levels, "updatedAt": time.Now()},
	})
	return err
}

// CreditWallet appends the wallet ledger entry and atomically increments
// the balance.
func (r *MemberRepository) CreditWallet(ctx context.Context, id primitive.ObjectID, amount float64, txn models.WalletTransaction) error {
	if txn.ID.IsZero() {
		txn.ID = primitive.NewObjectID()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	if _, err := r.walletTxns.InsertOne(ctx, txn); err != nil {
		return err
	}
	res, err := r.members.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"walletBalance": amount},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) WalletTransactions(ctx context.Context, id primitive.ObjectID, limit int64) ([]models.WalletTransaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.walletTxns.Find(ctx, bson.M{"memberId": id}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var txns []models.WalletTransaction
	if err := cursor.All(ctx, &txns); err != nil {
		return nil, err
	}
	return txns, nil
}

// AddPoints appends the point ledger entry and atomically increments both
// the monthly and accumulated counters of the given type.
func (r *MemberRepository) AddPoints(ctx context.Context, id primitive.ObjectID, pointType string, points float64, txn models.PointTransaction) error {
	if txn.ID.IsZero() {
		txn.ID = primitive.NewObjectID()
	}
	if _, err := r.pointTxns.InsertOne(ctx, txn); err != nil {
		return err
	}
	field := pointField(pointType)
	res, err := r.members.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{
			"points." + field + ".monthly":     points,
			"points." + field + ".accumulated": points,
		},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) ResetMonthlyPoints(ctx context.Context, id primitive.ObjectID, pointType string, resetAt time.Time) error {
	field := pointField(pointType)
	_, err := r.members.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"points." + field + ".monthly":   0,
			"points." + field + ".lastReset": resetAt,
			"updatedAt":                      time.Now(),
		},
	})
	return err
}

func (r *MemberRepository) SetRank(ctx context.Context, id primitive.ObjectID, status models.RankStatus, entry models.RankAchievement) error {
	res, err := r.members.UpdateByID(ctx, id, bson.M{
		"$set":  bson.M{"rank": status, "updatedAt": time.Now()},
		"$push": bson.M{"rankHistory": entry},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) SetRewardClaimed(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.members.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"rank.claimed": true, "updatedAt": time.Now()},
	})
	return err
}

func (r *MemberRepository) AllMemberIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.members.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []primitive.ObjectID
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}

// CleanupDuplicateWalletTransactions deduplicates upline credits by
// (rideId, memberId, level, side), keeping the most recent entry and
// reversing the balance of the ones removed. Administrative repair only.
func (r *MemberRepository) CleanupDuplicateWalletTransactions(ctx context.Context) (int64, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.walletTxns.Find(ctx, bson.M{
		"kind":   models.WalletKindUplineCredit,
		"rideId": bson.M{"$ne": ""},
	}, opts)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	type dupKey struct {
		RideID   string
		MemberID primitive.ObjectID
		Level    int
		Side     string
	}
	seen := make(map[dupKey]bool)
	var removed int64
	for cursor.Next(ctx) {
		var txn models.WalletTransaction
		if err := cursor.Decode(&txn); err != nil {
			return removed, err
		}
		key := dupKey{RideID: txn.RideID, MemberID: txn.MemberID, Level: txn.Level, Side: txn.Side}
		if !seen[key] {
			seen[key] = true
			continue
		}
		if _, err := r.walletTxns.DeleteOne(ctx, bson.M{"_id": txn.ID}); err != nil {
			return removed, err
		}
		_, err := r.members.UpdateByID(ctx, txn.MemberID, bson.M{
			"$inc": bson.M{"walletBalance": -txn.Amount},
		})
		if err != nil {
			return removed, err
		}
		removed++
	}
	return removed, cursor.Err()
}

func pointField(pointType string) string {
	if pointType == models.PointTypeTeam {
		return "tgp"
	}
	return "pgp"
}
