// models/member.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Point type tags used on point transactions.
const (
	PointTypePersonal = "personal" // PGP: earned by the member's own rides
	PointTypeTeam     = "team"     // TGP: earned from downline activity
)

// RankNone is the implicit initial rank before any qualification.
const RankNone = "None"

// PointBucket tracks one point currency for a member. Monthly is a rolling
// window zeroed on the first touch after a calendar month boundary;
// Accumulated is a lifetime counter and never decreases.
type PointBucket struct {
	Monthly     float64   `json:"monthly" bson:"monthly"`
	Accumulated float64   `json:"accumulated" bson:"accumulated"`
	LastReset   time.Time `json:"lastReset" bson:"lastReset"`
}

// MemberPoints holds the two parallel point currencies.
type MemberPoints struct {
	PGP PointBucket `json:"pgp" bson:"pgp"`
	TGP PointBucket `json:"tgp" bson:"tgp"`
}

// RankStatus is the member's current rank.
type RankStatus struct {
	Name      string    `json:"name" bson:"name"`
	Reward    float64   `json:"reward" bson:"reward"`
	Claimed   bool      `json:"claimed" bson:"claimed"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// RankAchievement is an append-only rank history entry.
type RankAchievement struct {
	Rank             string    `json:"rank" bson:"rank"`
	AchievedAt       time.Time `json:"achievedAt" bson:"achievedAt"`
	PGPAtAchievement float64   `json:"pgpAtAchievement" bson:"pgpAtAchievement"`
	TGPAtAchievement float64   `json:"tgpAtAchievement" bson:"tgpAtAchievement"`
	Reward           float64   `json:"reward" bson:"reward"`
	Claimed          bool      `json:"claimed" bson:"claimed"`
}

// Member model. A member may ride, drive, and sponsor other members.
// SponsorBy is a weak reference (the sponsor's code, not an owning pointer);
// SponsorID caches the resolved id. LevelSets caches descendants by referral
// level: LevelSets[k-1] holds the members exactly k direct-child hops away,
// each id appearing at its shallowest level only.
type Member struct {
	ID             primitive.ObjectID     `json:"id,omitempty" bson:"_id,omitempty"`
	Email          string                 `json:"email" bson:"email"`
	FullName       string                 `json:"fullName" bson:"fullName"`
	Phone          string                 `json:"phone,omitempty" bson:"phone,omitempty"`
	Handle         string                 `json:"handle,omitempty" bson:"handle,omitempty"`
	SponsorCode    string                 `json:"sponsorCode,omitempty" bson:"sponsorCode,omitempty"`
	SponsorBy      string                 `json:"sponsorBy,omitempty" bson:"sponsorBy,omitempty"`
	SponsorID      *primitive.ObjectID    `json:"sponsorId,omitempty" bson:"sponsorId,omitempty"`
	DirectChildren []primitive.ObjectID   `json:"directChildren,omitempty" bson:"directChildren,omitempty"`
	LevelSets      [][]primitive.ObjectID `json:"levelSets,omitempty" bson:"levelSets,omitempty"`
	Rank           RankStatus             `json:"rank" bson:"rank"`
	RankHistory    []RankAchievement      `json:"rankHistory,omitempty" bson:"rankHistory,omitempty"`
	Points         MemberPoints           `json:"points" bson:"points"`
	WalletBalance  float64                `json:"walletBalance" bson:"walletBalance"`
	FCMToken       string                 `json:"fcmToken,omitempty" bson:"fcmToken,omitempty"`
	IsActive       bool                   `json:"isActive" bson:"isActive"`
	CreatedAt      time.Time              `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt" bson:"updatedAt"`
}

// RankName returns the current rank, or RankNone before any advancement.
func (m *Member) RankName() string {
	if m.Rank.Name == "" {
		return RankNone
	}
	return m.Rank.Name
}

// PointTransaction is an immutable point ledger entry.
type PointTransaction struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	MemberID  primitive.ObjectID `json:"memberId" bson:"memberId"`
	Points    float64            `json:"points" bson:"points"`
	Type      string             `json:"type" bson:"type"` // "personal" or "team"
	RideID    string             `json:"rideId,omitempty" bson:"rideId,omitempty"`
	RideFare  float64            `json:"rideFare,omitempty" bson:"rideFare,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// PointTypeStats is the per-currency slice of a member's point statistics.
type PointTypeStats struct {
	Monthly        float64 `json:"monthly"`
	Accumulated    float64 `json:"accumulated"`
	DaysUntilReset int     `json:"daysUntilReset"`
}

// PointStats is the response payload for a member's point statistics.
type PointStats struct {
	MemberID primitive.ObjectID `json:"memberId"`
	PGP      PointTypeStats     `json:"pgp"`
	TGP      PointTypeStats     `json:"tgp"`
	Total    float64            `json:"total"` // combined accumulated PGP + TGP
}

// AttachSponsorRequest links the calling member under a sponsor. The
// identifier may be a member id, a sponsor code, or a display handle.
type AttachSponsorRequest struct {
	MemberID          string `json:"memberId,omitempty"`
	SponsorIdentifier string `json:"sponsorIdentifier" validate:"required"`
}

// DetachSponsorRequest removes the member from its sponsor's child list.
type DetachSponsorRequest struct {
	MemberID string `json:"memberId,omitempty"`
}

// Response is the standard API envelope.
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
