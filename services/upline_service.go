// services/upline_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/ridelink_backend/models"
)

// UplineCreditor walks the dual tree of a completed ride: the commission is
// split evenly between the rider side and the driver side, and up to four
// ancestor sponsors per side are credited according to the plan's per-level
// percentages.
type UplineCreditor struct {
	members  MemberStore
	tree     *TreeService
	plans    PlanStore
	notifier CreditNotifier // optional
}

func NewUplineCreditor(members MemberStore, tree *TreeService, plans PlanStore, notifier CreditNotifier) *UplineCreditor {
	return &UplineCreditor{members: members, tree: tree, plans: plans, notifier: notifier}
}

// CreditDualTree credits both sponsor chains for one ride. A side whose
// member cannot be resolved, or whose chain is shorter than four levels,
// simply contributes fewer credits — absence of upline is a normal terminal
// condition, not a fault. A failure crediting one ancestor is logged and
// recorded as skipped; the remaining ancestors are still processed.
//
// When rider and driver are the same member (a personal ride) both sides
// still resolve over the shared upline and each side's percentage is
// credited separately; the two credits are intentionally not merged.
func (u *UplineCreditor) CreditDualTree(ctx context.Context, riderID, driverID primitive.ObjectID, commission float64, rideID, classification string) (*models.DualTreeResult, error) {
	if commission <= 0 {
		return nil, fmt.Errorf("%w: got %.4f", models.ErrInvalidAmount, commission)
	}
	plan, err := u.plans.GetPlan(ctx)
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPlanInvariant, err)
	}

	result := &models.DualTreeResult{
		RideID:     rideID,
		SideAmount: commission / 2,
	}
	u.creditSide(ctx, riderID, models.SideRiderTree, plan, rideID, classification, result)
	u.creditSide(ctx, driverID, models.SideDriverTree, plan, rideID, classification, result)
	return result, nil
}

func (u *UplineCreditor) creditSide(ctx context.Context, memberID primitive.ObjectID, side string, plan *models.CompensationPlan, rideID, classification string, result *models.DualTreeResult) {
	if memberID.IsZero() {
		result.Skipped = append(result.Skipped, models.SkippedCredit{Side: side, Reason: "member not resolved"})
		return
	}
	chain, err := u.tree.SponsorChain(ctx, memberID, len(plan.UplineLevelPercents))
	if err != nil {
		if errors.Is(err, models.ErrMemberNotFound) {
			result.Skipped = append(result.Skipped, models.SkippedCredit{Side: side, Reason: "member not found"})
			return
		}
		log.Printf("Upline walk failed for %s on %s: %v", memberID.Hex(), side, err)
		result.Skipped = append(result.Skipped, models.SkippedCredit{Side: side, Reason: err.Error()})
		return
	}

	for i, ancestor := range chain {
		level := i + 1
		amount := result.SideAmount * plan.UplineLevelPercents[i] / 100
		if amount <= 0 {
			continue
		}

		txn := models.WalletTransaction{
			MemberID:           ancestor.ID,
			Amount:             amount,
			Kind:               models.WalletKindUplineCredit,
			RideID:             rideID,
			Level:              level,
			Side:               side,
			RideClassification: classification,
			CreatedAt:          time.Now(),
		}
		if err := u.members.CreditWallet(ctx, ancestor.ID, amount, txn); err != nil {
			// One failed ancestor must not block the rest of the chain.
			log.Printf("Failed to credit level %d ancestor %s on %s: %v", level, ancestor.ID.Hex(), side, err)
			result.Skipped = append(result.Skipped, models.SkippedCredit{Side: side, Level: level, Reason: err.Error()})
			continue
		}

		result.Credits = append(result.Credits, models.UplineCredit{
			MemberID: ancestor.ID,
			Level:    level,
			Side:     side,
			Amount:   amount,
		})
		if u.notifier != nil {
			u.notifier.NotifyWalletCredit(ancestor.ID, txn)
		}
	}
}
