// services/rank_service.go
package services

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/ridelink_backend/models"
)

// RankEngine advances members through the rank ladder. Transitions are
// strictly forward: once a rank is achieved it is never removed, even if
// the qualifying numbers later regress.
type RankEngine struct {
	members  MemberStore
	plans    PlanStore
	tree     *TreeService
	ledger   *PointLedger
	notifier CreditNotifier // optional
	now      func() time.Time
}

func NewRankEngine(members MemberStore, plans PlanStore, tree *TreeService, ledger *PointLedger, notifier CreditNotifier) *RankEngine {
	return &RankEngine{
		members:  members,
		plans:    plans,
		tree:     tree,
		ledger:   ledger,
		notifier: notifier,
		now:      time.Now,
	}
}

// Evaluate re-checks a member against the rank ladder and advances them to
// the highest rank whose PGP, TGP and leg-distribution requirements all
// hold. Returns nil when nothing changes.
//
// Legs are the member's direct-referral subtrees ranked by total team
// points (the child's own accumulated TGP plus every descendant's). A
// member with fewer than three direct children can never satisfy the leg
// requirements and stays at None regardless of point totals.
func (e *RankEngine) Evaluate(ctx context.Context, memberID primitive.ObjectID) (*models.RankAdvance, error) {
	if err := e.ledger.CheckAndResetMonthly(ctx, memberID); err != nil {
		return nil, err
	}
	member, err := e.members.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	plan, err := e.plans.GetPlan(ctx)
	if err != nil {
		return nil, err
	}

	if len(member.DirectChildren) < 3 {
		return nil, nil
	}

	legs, err := e.legTotals(ctx, member)
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(legs)))

	totalTGP := member.Points.TGP.Accumulated
	var shares [3]float64
	if totalTGP > 0 {
		for i := 0; i < 3 && i < len(legs); i++ {
			shares[i] = legs[i] / totalTGP * 100
		}
	}

	pgp := member.Points.PGP.Accumulated
	candidate := -1
	for i := len(plan.Ranks) - 1; i >= 0; i-- {
		r := plan.Ranks[i]
		if pgp >= r.PGPRequired && totalTGP >= r.TGPRequired &&
			shares[0] >= r.LegAPercent && shares[1] >= r.LegBPercent && shares[2] >= r.LegCPercent {
			candidate = i
			break
		}
	}

	current := plan.RankIndex(member.Rank.Name)
	if candidate < 0 || candidate <= current {
		return nil, nil
	}

	rank := plan.Ranks[candidate]
	now := e.now()
	status := models.RankStatus{
		Name:      rank.Name,
		Reward:    rank.Reward,
		Claimed:   false,
		UpdatedAt: now,
	}
	entry := models.RankAchievement{
		Rank:             rank.Name,
		AchievedAt:       now,
		PGPAtAchievement: pgp,
		TGPAtAchievement: totalTGP,
		Reward:           rank.Reward,
		Claimed:          false,
	}
	if err := e.members.SetRank(ctx, memberID, status, entry); err != nil {
		return nil, err
	}

	advance := &models.RankAdvance{
		MemberID: memberID,
		From:     member.RankName(),
		To:       rank.Name,
		Reward:   rank.Reward,
	}
	if e.notifier != nil {
		e.notifier.NotifyRankAdvance(memberID, *advance)
	}
	return advance, nil
}

// ClaimReward pays the member's current rank reward into their wallet,
// once. Claimed state is tracked on both the current status and the
// matching history entry.
func (e *RankEngine) ClaimReward(ctx context.Context, memberID primitive.ObjectID) (*models.WalletTransaction, error) {
	member, err := e.members.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member.Rank.Name == "" {
		return nil, models.ErrNoRankAchieved
	}
	if member.Rank.Claimed {
		return nil, models.ErrRewardAlreadyClaimed
	}

	txn := models.WalletTransaction{
		MemberID:  memberID,
		Amount:    member.Rank.Reward,
		Kind:      models.WalletKindRankReward,
		CreatedAt: e.now(),
	}
	if err := e.members.CreditWallet(ctx, memberID, member.Rank.Reward, txn); err != nil {
		return nil, err
	}
	if err := e.members.SetRewardClaimed(ctx, memberID); err != nil {
		return nil, err
	}
	if e.notifier != nil {
		e.notifier.NotifyWalletCredit(memberID, txn)
	}
	return &txn, nil
}

// legTotals sums, per direct child, the child's own accumulated TGP plus
// every descendant's. Requires the full descendant closure, not just the
// first levels.
func (e *RankEngine) legTotals(ctx context.Context, member *models.Member) ([]float64, error) {
	legs := make([]float64, 0, len(member.DirectChildren))
	for _, childID := range member.DirectChildren {
		child, err := e.members.GetMember(ctx, childID)
		if err != nil {
			// A dangling child edge contributes an empty leg.
			legs = append(legs, 0)
			continue
		}
		total := child.Points.TGP.Accumulated

		descendants, err := e.tree.DescendantSet(ctx, childID)
		if err == nil && len(descendants) > 0 {
			ids := make([]primitive.ObjectID, 0, len(descendants))
			for id := range descendants {
				ids = append(ids, id)
			}
			nodes, err := e.members.GetMembers(ctx, ids)
			if err == nil {
				for _, node := range nodes {
					total += node.Points.TGP.Accumulated
				}
			}
		}
		legs = append(legs, total)
	}
	return legs, nil
}
