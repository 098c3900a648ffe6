// models/compensation_plan.go
package models

import (
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PercentTolerance is the rounding epsilon for percentage reconciliation.
const PercentTolerance = 0.01

// UplineLevels is how many ancestor levels receive money per tree side.
const UplineLevels = 4

// SubPool is a nested percentage bucket. Its percent is expressed against
// the gross, and must sum with its siblings to the parent pool's percent.
type SubPool struct {
	Name    string  `json:"name" bson:"name" validate:"required"`
	Percent float64 `json:"percent" bson:"percent" validate:"gte=0"`
}

// Pool is a named percentage bucket of the commission waterfall.
type Pool struct {
	Name     string    `json:"name" bson:"name" validate:"required"`
	Percent  float64   `json:"percent" bson:"percent" validate:"gte=0"`
	SubPools []SubPool `json:"subPools,omitempty" bson:"subPools,omitempty"`
}

// Rank defines one step of the career ladder. Leg requirements are minimum
// TGP shares (percent of the member's own accumulated TGP) for the three
// largest downline branches, largest first.
type Rank struct {
	Name        string  `json:"name" bson:"name" validate:"required"`
	PGPRequired float64 `json:"pgpRequired" bson:"pgpRequired" validate:"gte=0"`
	TGPRequired float64 `json:"tgpRequired" bson:"tgpRequired" validate:"gte=0"`
	LegAPercent float64 `json:"legAPercent" bson:"legAPercent" validate:"gte=0"`
	LegBPercent float64 `json:"legBPercent" bson:"legBPercent" validate:"gte=0"`
	LegCPercent float64 `json:"legCPercent" bson:"legCPercent" validate:"gte=0"`
	Reward      float64 `json:"reward" bson:"reward" validate:"gte=0"`
}

// CompensationPlan is the singleton configuration of the engine: the pool
// waterfall, the per-level upline percentages, the rank ladder and the
// fare-to-commission and fare-to-point rates. Mutated only through the
// admin surface, which re-validates before persisting.
type CompensationPlan struct {
	ID                  primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name                string             `json:"name" bson:"name"`
	MainPools           []Pool             `json:"mainPools" bson:"mainPools" validate:"required,dive"`
	UplineLevelPercents []float64          `json:"uplineLevelPercents" bson:"uplineLevelPercents" validate:"required"`
	Ranks               []Rank             `json:"ranks" bson:"ranks" validate:"dive"`
	CommissionPercent   float64            `json:"commissionPercent" bson:"commissionPercent" validate:"gt=0,lte=100"`
	PGPPerFare          float64            `json:"pgpPerFare" bson:"pgpPerFare" validate:"gte=0"`
	TGPPerFare          float64            `json:"tgpPerFare" bson:"tgpPerFare" validate:"gte=0"`
	TotalDistributed    float64            `json:"totalDistributed" bson:"totalDistributed"`
	CreatedAt           time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Validate checks the reconciliation invariants: main pools sum to 100 and
// every pool's sub-pools sum to the pool's own percent, both within
// PercentTolerance. Violations block distribution entirely.
func (p *CompensationPlan) Validate() error {
	var total float64
	for _, pool := range p.MainPools {
		if pool.Percent < 0 {
			return fmt.Errorf("pool %q has negative percent %.4f", pool.Name, pool.Percent)
		}
		total += pool.Percent

		if len(pool.SubPools) == 0 {
			continue
		}
		var subTotal float64
		for _, sub := range pool.SubPools {
			if sub.Percent < 0 {
				return fmt.Errorf("sub-pool %q of %q has negative percent %.4f", sub.Name, pool.Name, sub.Percent)
			}
			subTotal += sub.Percent
		}
		if math.Abs(subTotal-pool.Percent) > PercentTolerance {
			return fmt.Errorf("sub-pools of %q sum to %.4f, want %.4f", pool.Name, subTotal, pool.Percent)
		}
	}
	if math.Abs(total-100) > PercentTolerance {
		return fmt.Errorf("main pools sum to %.4f, want 100", total)
	}

	if len(p.UplineLevelPercents) != UplineLevels {
		return fmt.Errorf("uplineLevelPercents has %d entries, want %d", len(p.UplineLevelPercents), UplineLevels)
	}
	for i, pct := range p.UplineLevelPercents {
		if pct < 0 {
			return fmt.Errorf("upline level %d has negative percent %.4f", i+1, pct)
		}
	}

	seen := make(map[string]bool, len(p.Ranks))
	for _, r := range p.Ranks {
		if r.Name == "" || r.Name == RankNone {
			return fmt.Errorf("rank name %q is reserved", r.Name)
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate rank name %q", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// Normalize proportionally rescales main pools to sum to exactly 100 and
// every sub-pool group to its parent percent. This is the explicit admin
// remediation for a plan knocked out of balance by a partial update; it is
// never applied silently on the distribution path.
func (p *CompensationPlan) Normalize() {
	var total float64
	for _, pool := range p.MainPools {
		total += pool.Percent
	}
	if total > 0 {
		factor := 100 / total
		for i := range p.MainPools {
			p.MainPools[i].Percent *= factor
		}
	}
	for i := range p.MainPools {
		pool := &p.MainPools[i]
		if len(pool.SubPools) == 0 {
			continue
		}
		var subTotal float64
		for _, sub := range pool.SubPools {
			subTotal += sub.Percent
		}
		if subTotal > 0 {
			factor := pool.Percent / subTotal
			for j := range pool.SubPools {
				pool.SubPools[j].Percent *= factor
			}
		} else if len(pool.SubPools) > 0 {
			even := pool.Percent / float64(len(pool.SubPools))
			for j := range pool.SubPools {
				pool.SubPools[j].Percent = even
			}
		}
	}
}

// RankIndex returns the position of a rank name in the ladder, or -1 for
// RankNone, the empty string, or an unknown name.
func (p *CompensationPlan) RankIndex(name string) int {
	if name == "" || name == RankNone {
		return -1
	}
	for i, r := range p.Ranks {
		if r.Name == name {
			return i
		}
	}
	return -1
}

// DefaultCompensationPlan returns the seed plan applied when no plan
// document exists yet.
func DefaultCompensationPlan() *CompensationPlan {
	now := time.Now()
	return &CompensationPlan{
		Name: "default",
		MainPools: []Pool{
			{
				Name:    "directDownline",
				Percent: 24.6,
				SubPools: []SubPool{
					{Name: "level1", Percent: 14},
					{Name: "level2", Percent: 6},
					{Name: "level3", Percent: 3.6},
					{Name: "level4", Percent: 1},
				},
			},
			{
				Name:    "careerRank",
				Percent: 15,
				SubPools: []SubPool{
					{Name: "rankReward", Percent: 10},
					{Name: "rankBonus", Percent: 5},
				},
			},
			{
				Name:    "booster",
				Percent: 20,
				SubPools: []SubPool{
					{Name: "boosterMonthly", Percent: 12},
					{Name: "boosterAnnual", Percent: 8},
				},
			},
			{Name: "loyalty", Percent: 10},
			{Name: "ambassador", Percent: 10},
			{Name: "team", Percent: 20.4},
		},
		UplineLevelPercents: []float64{14, 6, 3.6, 1},
		Ranks: []Rank{
			{Name: "Achiever", PGPRequired: 500, TGPRequired: 2500, LegAPercent: 40, LegBPercent: 30, LegCPercent: 20, Reward: 50},
			{Name: "Pacesetter", PGPRequired: 1500, TGPRequired: 10000, LegAPercent: 40, LegBPercent: 30, LegCPercent: 20, Reward: 200},
			{Name: "Champion", PGPRequired: 4000, TGPRequired: 40000, LegAPercent: 40, LegBPercent: 30, LegCPercent: 20, Reward: 750},
			{Name: "Tycoon", PGPRequired: 10000, TGPRequired: 150000, LegAPercent: 35, LegBPercent: 30, LegCPercent: 25, Reward: 2500},
			{Name: "Ambassador", PGPRequired: 25000, TGPRequired: 500000, LegAPercent: 35, LegBPercent: 30, LegCPercent: 25, Reward: 10000},
		},
		CommissionPercent: 20,
		PGPPerFare:        1,
		TGPPerFare:        1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
