// services/ride_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/ridelink_backend/models"
	"github.com/HSouheill/ridelink_backend/utils"
)

// rideLockTTL bounds how long a crashed processor can hold a ride lock.
const rideLockTTL = 5 * time.Minute

// RideEngine orchestrates one ride completion end to end: pool waterfall,
// dual-tree upline credits, PGP/TGP awards, and rank re-evaluation for
// every member who received points. Idempotent per rideId: the distribution
// ledger's unique index is the gate, with a short Redis lock in front so
// concurrent replays short-circuit cheaply. The tx runner binds the ledger
// record, wallet credits and point awards into one atomic unit, so a ride
// is never left half-applied behind its own idempotency gate.
type RideEngine struct {
	members      MemberStore
	plans        PlanStore
	distribution *DistributionEngine
	upline       *UplineCreditor
	ledger       *PointLedger
	ranks        *RankEngine
	locks        *utils.KeyedMutex
	tx           TxRunner      // optional
	redis        *redis.Client // optional
}

func NewRideEngine(members MemberStore, plans PlanStore, distribution *DistributionEngine, upline *UplineCreditor, ledger *PointLedger, ranks *RankEngine, tx TxRunner, redisClient *redis.Client) *RideEngine {
	return &RideEngine{
		members:      members,
		plans:        plans,
		distribution: distribution,
		upline:       upline,
		ledger:       ledger,
		ranks:        ranks,
		locks:        utils.NewKeyedMutex(),
		tx:           tx,
		redis:        redisClient,
	}
}

// ProcessRideCompletion runs the full compensation sequence for one
// completed, paid ride. Replays with the same rideId return a duplicate
// outcome and change nothing. A failure partway through rolls the whole
// ride back, so a retry with the same rideId starts clean rather than
// hitting the duplicate gate over a half-applied ride. Failures affecting
// a single member (a point write, a rank evaluation) are logged and
// reported in the outcome without aborting the rest of the ride.
func (e *RideEngine) ProcessRideCompletion(ctx context.Context, ride models.RideCompletion) (*models.RideOutcome, error) {
	if ride.TotalFare <= 0 {
		return nil, fmt.Errorf("%w: totalFare %.4f", models.ErrInvalidAmount, ride.TotalFare)
	}
	if ride.RideID == "" {
		return nil, errors.New("rideId is required")
	}

	if released, duplicate := e.acquireRideLock(ctx, ride.RideID); duplicate {
		return &models.RideOutcome{RideID: ride.RideID, Duplicate: true}, nil
	} else if released != nil {
		defer released()
	}

	plan, err := e.plans.GetPlan(ctx)
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPlanInvariant, err)
	}

	outcome := &models.RideOutcome{RideID: ride.RideID}

	riderID, riderOK := parseMemberID(ride.RiderID)
	driverID, driverOK := parseMemberID(ride.DriverID)
	if !riderOK {
		outcome.Skipped = append(outcome.Skipped, models.SkippedCredit{Side: models.SideRiderTree, Reason: "invalid rider id"})
	}
	if !driverOK {
		outcome.Skipped = append(outcome.Skipped, models.SkippedCredit{Side: models.SideDriverTree, Reason: "invalid driver id"})
	}

	commission := ride.TotalFare * plan.CommissionPercent / 100
	outcome.Commission = commission

	// The driver's ride is the earning event; fall back to the rider when
	// the driver id cannot be parsed so the ledger still records an owner.
	earner := driverID
	if !driverOK {
		earner = riderID
	}

	// PGP for the ride's own parties (once per distinct member), TGP for
	// every upline credit. On a personal ride the shared ancestors earn
	// team points per side, matching the unmerged dual-tree credits.
	pgp := ride.TotalFare * plan.PGPPerFare
	tgp := ride.TotalFare * plan.TGPPerFare

	baseSkipped := append([]models.SkippedCredit(nil), outcome.Skipped...)
	var touched map[primitive.ObjectID]bool
	err = e.runAtomically(ctx, func(ctx context.Context) error {
		// The runner may re-invoke this body; every attempt starts from
		// the pre-mutation outcome.
		outcome.Distribution = nil
		outcome.Upline = nil
		outcome.PointsAwarded = nil
		outcome.Skipped = append([]models.SkippedCredit(nil), baseSkipped...)
		touched = make(map[primitive.ObjectID]bool)

		dist, err := e.distribution.Distribute(ctx, earner, commission, ride.RideID, ride.RideClassification)
		if err != nil {
			return err
		}
		outcome.Distribution = dist

		dual, err := e.upline.CreditDualTree(ctx, riderID, driverID, commission, ride.RideID, ride.RideClassification)
		if err != nil {
			return err
		}
		outcome.Upline = dual

		for _, id := range distinctIDs(riderID, driverID) {
			if e.awardPoints(ctx, id, pgp, ride, models.PointTypePersonal, outcome) {
				touched[id] = true
			}
		}
		for _, credit := range dual.Credits {
			if e.awardPoints(ctx, credit.MemberID, tgp, ride, models.PointTypeTeam, outcome) {
				touched[credit.MemberID] = true
			}
		}
		return nil
	})
	if errors.Is(err, models.ErrDuplicateRide) {
		outcome.Duplicate = true
		outcome.Distribution = nil
		outcome.Upline = nil
		outcome.PointsAwarded = nil
		outcome.Skipped = baseSkipped
		return outcome, nil
	}
	if err != nil {
		return nil, err
	}

	for id := range touched {
		adv, err := e.ranks.Evaluate(ctx, id)
		if err != nil {
			// One member's rank evaluation must not abort the ride.
			log.Printf("Rank evaluation failed for %s after ride %s: %v", id.Hex(), ride.RideID, err)
			continue
		}
		if adv != nil {
			outcome.RanksAdvanced = append(outcome.RanksAdvanced, *adv)
		}
	}
	return outcome, nil
}

// runAtomically executes fn through the configured transaction runner so
// every write inside commits or rolls back together. Without a runner fn
// runs directly and the ledger's unique index remains the only gate.
func (e *RideEngine) runAtomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if e.tx == nil {
		return fn(ctx)
	}
	return e.tx(ctx, fn)
}

// awardPoints grants one point award under the member's keyed lock,
// recording failures in the outcome. Reports whether the award applied.
func (e *RideEngine) awardPoints(ctx context.Context, memberID primitive.ObjectID, points float64, ride models.RideCompletion, pointType string, outcome *models.RideOutcome) bool {
	if memberID.IsZero() || points <= 0 {
		return false
	}
	key := memberID.Hex()
	e.locks.Lock(key)
	defer e.locks.Unlock(key)

	if err := e.ledger.AddPoints(ctx, memberID, points, ride.RideID, pointType, ride.TotalFare); err != nil {
		log.Printf("Failed to add %s points for %s on ride %s: %v", pointType, key, ride.RideID, err)
		outcome.Skipped = append(outcome.Skipped, models.SkippedCredit{Reason: fmt.Sprintf("%s points for %s: %v", pointType, key, err)})
		return false
	}
	outcome.PointsAwarded = append(outcome.PointsAwarded, models.PointAward{
		MemberID: memberID,
		Type:     pointType,
		Points:   points,
	})
	return true
}

// acquireRideLock takes a short Redis lock per rideId. Returns a release
// func, or duplicate=true when another processor holds the lock. Without
// Redis the unique ledger index still guarantees exactly-once distribution.
func (e *RideEngine) acquireRideLock(ctx context.Context, rideID string) (release func(), duplicate bool) {
	if e.redis == nil {
		return nil, false
	}
	key := "ride:lock:" + rideID
	token := uuid.NewString()
	ok, err := e.redis.SetNX(ctx, key, token, rideLockTTL).Result()
	if err != nil {
		log.Printf("Redis ride lock unavailable for %s: %v", rideID, err)
		return nil, false
	}
	if !ok {
		return nil, true
	}
	return func() {
		if current, err := e.redis.Get(ctx, key).Result(); err == nil && current == token {
			e.redis.Del(ctx, key)
		}
	}, false
}

// CleanupDuplicateWalletTransactions is the administrative repair path:
// dedupe wallet entries by (rideId, memberId, level, side), keeping the
// most recent. Not part of ordinary flow.
func (e *RideEngine) CleanupDuplicateWalletTransactions(ctx context.Context) (int64, error) {
	return e.members.CleanupDuplicateWalletTransactions(ctx)
}

func parseMemberID(hex string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

func distinctIDs(ids ...primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	var out []primitive.ObjectID
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
