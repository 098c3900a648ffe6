// models/ride.go
package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Ride classifications as reported by the booking subsystem.
const (
	RideClassStandard = "standard"
	RideClassPersonal = "personal" // rider and driver are the same member
)

// RideCompletion is the trigger payload the booking/payment subsystem sends
// once per completed, paid ride.
type RideCompletion struct {
	RiderID            string  `json:"riderId" validate:"required"`
	DriverID           string  `json:"driverId" validate:"required"`
	RideID             string  `json:"rideId" validate:"required"`
	TotalFare          float64 `json:"totalFare" validate:"gt=0"`
	RideClassification string  `json:"rideClassification,omitempty"`
}

// UplineCredit is one ancestor wallet credit applied by the dual-tree walk.
type UplineCredit struct {
	MemberID primitive.ObjectID `json:"memberId"`
	Level    int                `json:"level"`
	Side     string             `json:"side"`
	Amount   float64            `json:"amount"`
}

// SkippedCredit explains why a level (or an entire side) was not credited.
type SkippedCredit struct {
	Side   string `json:"side"`
	Level  int    `json:"level,omitempty"` // 0 when the whole side was skipped
	Reason string `json:"reason"`
}

// DualTreeResult reports the upline credits of one ride, per side.
type DualTreeResult struct {
	RideID     string         `json:"rideId"`
	SideAmount float64        `json:"sideAmount"`
	Credits    []UplineCredit `json:"credits"`
	Skipped    []SkippedCredit `json:"skipped,omitempty"`
}

// PointAward is one PGP/TGP grant recorded during ride processing.
type PointAward struct {
	MemberID primitive.ObjectID `json:"memberId"`
	Type     string             `json:"type"`
	Points   float64            `json:"points"`
}

// RankAdvance records one member's rank moving forward.
type RankAdvance struct {
	MemberID primitive.ObjectID `json:"memberId"`
	From     string             `json:"from"`
	To       string             `json:"to"`
	Reward   float64            `json:"reward"`
}

// RideOutcome is the structured result of processing one ride completion:
// exactly which pools, levels and members were credited, and which were
// skipped and why.
type RideOutcome struct {
	RideID        string              `json:"rideId"`
	Duplicate     bool                `json:"duplicate,omitempty"`
	Commission    float64             `json:"commission,omitempty"`
	Distribution  *DistributionResult `json:"distribution,omitempty"`
	Upline        *DualTreeResult     `json:"upline,omitempty"`
	PointsAwarded []PointAward        `json:"pointsAwarded,omitempty"`
	RanksAdvanced []RankAdvance       `json:"ranksAdvanced,omitempty"`
	Skipped       []SkippedCredit     `json:"skipped,omitempty"`
}
