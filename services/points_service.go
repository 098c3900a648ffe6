// services/points_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/ridelink_backend/models"
)

// PointLedger accumulates the two point currencies per member. Monthly
// counters are a rolling window zeroed lazily on the first touch after a
// calendar month boundary; accumulated counters are lifetime and never
// shrink.
type PointLedger struct {
	members MemberStore
	now     func() time.Time
}

func NewPointLedger(members MemberStore) *PointLedger {
	return &PointLedger{members: members, now: time.Now}
}

// AddPoints appends a point transaction and increments both the monthly and
// accumulated counters of the given type. The monthly reset check runs
// first so points earned just after a month boundary land in the fresh
// window.
func (l *PointLedger) AddPoints(ctx context.Context, memberID primitive.ObjectID, points float64, rideID, pointType string, rideFare float64) error {
	if pointType != models.PointTypePersonal && pointType != models.PointTypeTeam {
		return fmt.Errorf("unknown point type %q", pointType)
	}
	if err := l.CheckAndResetMonthly(ctx, memberID); err != nil {
		return err
	}

	txn := models.PointTransaction{
		MemberID:  memberID,
		Points:    points,
		Type:      pointType,
		RideID:    rideID,
		RideFare:  rideFare,
		CreatedAt: l.now(),
	}
	return l.members.AddPoints(ctx, memberID, pointType, points, txn)
}

// CheckAndResetMonthly zeroes a type's monthly counter when its stored
// lastReset falls in a different calendar month than now, leaving the
// accumulated counter untouched. Idempotent and safe on every read path:
// within the same month it does nothing.
func (l *PointLedger) CheckAndResetMonthly(ctx context.Context, memberID primitive.ObjectID) error {
	member, err := l.members.GetMember(ctx, memberID)
	if err != nil {
		return err
	}
	now := l.now()

	buckets := map[string]models.PointBucket{
		models.PointTypePersonal: member.Points.PGP,
		models.PointTypeTeam:     member.Points.TGP,
	}
	for pointType, bucket := range buckets {
		if sameMonth(bucket.LastReset, now) {
			continue
		}
		if err := l.members.ResetMonthlyPoints(ctx, memberID, pointType, now); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns the member's monthly/accumulated counters, days until the
// next monthly reset, and the combined lifetime total.
func (l *PointLedger) Stats(ctx context.Context, memberID primitive.ObjectID) (*models.PointStats, error) {
	if err := l.CheckAndResetMonthly(ctx, memberID); err != nil {
		return nil, err
	}
	member, err := l.members.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	days := daysUntilMonthEnd(l.now())
	return &models.PointStats{
		MemberID: memberID,
		PGP: models.PointTypeStats{
			Monthly:        member.Points.PGP.Monthly,
			Accumulated:    member.Points.PGP.Accumulated,
			DaysUntilReset: days,
		},
		TGP: models.PointTypeStats{
			Monthly:        member.Points.TGP.Monthly,
			Accumulated:    member.Points.TGP.Accumulated,
			DaysUntilReset: days,
		},
		Total: member.Points.PGP.Accumulated + member.Points.TGP.Accumulated,
	}, nil
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// daysUntilMonthEnd counts whole days from now to the first day of the
// following month, rounding up so the reset day itself reports 1.
func daysUntilMonthEnd(now time.Time) int {
	firstOfNext := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
	hours := firstOfNext.Sub(now).Hours()
	days := int(hours / 24)
	if hours > float64(days)*24 {
		days++
	}
	return days
}
