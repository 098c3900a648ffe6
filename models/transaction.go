// models/transaction.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PoolAllocation is one line of a computed waterfall. A parent pool with
// sub-pools appears once with Leaf=false followed by one Leaf=true line per
// sub-pool; pools without sub-pools are their own leaf.
type PoolAllocation struct {
	Pool    string  `json:"pool" bson:"pool"`
	SubPool string  `json:"subPool,omitempty" bson:"subPool,omitempty"`
	Percent float64 `json:"percent" bson:"percent"`
	Amount  float64 `json:"amount" bson:"amount"`
	Leaf    bool    `json:"leaf" bson:"leaf"`
}

// DistributionTransaction is the immutable ledger record of one ride's
// waterfall. Never mutated after insert; the unique index on rideId makes
// re-processing a detectable no-op.
type DistributionTransaction struct {
	ID                 primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	MemberID           primitive.ObjectID `json:"memberId" bson:"memberId"`
	RideID             string             `json:"rideId" bson:"rideId"`
	RideClassification string             `json:"rideClassification,omitempty" bson:"rideClassification,omitempty"`
	GrossAmount        float64            `json:"grossAmount" bson:"grossAmount"`
	Allocations        []PoolAllocation   `json:"allocations" bson:"allocations"`
	CreatedAt          time.Time          `json:"createdAt" bson:"createdAt"`
}

// DistributionResult reports the waterfall applied for one ride.
type DistributionResult struct {
	RideID      string           `json:"rideId"`
	GrossAmount float64          `json:"grossAmount"`
	Allocations []PoolAllocation `json:"allocations"`
	LeafTotal   float64          `json:"leafTotal"`
}

// PoolBalance is the running balance of one leaf pool.
type PoolBalance struct {
	Pool    string  `json:"pool" bson:"pool"`
	SubPool string  `json:"subPool,omitempty" bson:"subPool,omitempty"`
	Balance float64 `json:"balance" bson:"balance"`
}

// Wallet transaction kinds.
const (
	WalletKindUplineCredit = "upline_credit"
	WalletKindRankReward   = "rank_reward"
)

// Tree sides for upline credits.
const (
	SideRiderTree  = "rider-tree"
	SideDriverTree = "driver-tree"
)

// WalletTransaction is an immutable wallet ledger entry.
type WalletTransaction struct {
	ID                 primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	MemberID           primitive.ObjectID `json:"memberId" bson:"memberId"`
	Amount             float64            `json:"amount" bson:"amount"`
	Kind               string             `json:"kind" bson:"kind"`
	RideID             string             `json:"rideId,omitempty" bson:"rideId,omitempty"`
	Level              int                `json:"level,omitempty" bson:"level,omitempty"`
	Side               string             `json:"side,omitempty" bson:"side,omitempty"`
	RideClassification string             `json:"rideClassification,omitempty" bson:"rideClassification,omitempty"`
	CreatedAt          time.Time          `json:"createdAt" bson:"createdAt"`
}
