package models

import "errors"

// Sentinel errors shared by the engine services and repositories.
// Repositories translate driver errors (mongo.ErrNoDocuments, duplicate key)
// into these so callers never depend on storage details.
var (
	// ErrMemberNotFound means no member resolved for an id, sponsor code or handle.
	ErrMemberNotFound = errors.New("member not found")

	// ErrSponsorNotFound is returned by tree mutations when the sponsor
	// identifier resolves to nothing.
	ErrSponsorNotFound = errors.New("sponsor not found")

	// ErrCircularReference is returned when attaching a member under itself
	// or under one of its own descendants.
	ErrCircularReference = errors.New("circular sponsor reference")

	// ErrInvalidAmount is returned for non-positive fares or commissions.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrDuplicateRide means a distribution for this rideId already exists.
	// Callers treat it as a no-op, not a failure.
	ErrDuplicateRide = errors.New("ride already distributed")

	// ErrPlanInvariant means the compensation plan percentages do not
	// reconcile. Fatal for distribution until an admin corrects the plan.
	ErrPlanInvariant = errors.New("compensation plan invariant violated")

	// ErrPlanNotFound means no compensation plan document exists yet.
	ErrPlanNotFound = errors.New("compensation plan not found")

	// ErrRewardAlreadyClaimed means the current rank reward was paid out before.
	ErrRewardAlreadyClaimed = errors.New("rank reward already claimed")

	// ErrNoRankAchieved means the member has not reached any rank yet.
	ErrNoRankAchieved = errors.New("no rank achieved")
)
