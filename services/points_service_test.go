// services/points_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSouheill/ridelink_backend/models"
)

func ledgerAt(store *fakeMemberStore, at time.Time) *PointLedger {
	l := NewPointLedger(store)
	l.now = func() time.Time { return at }
	return l
}

func TestAddPointsBothCounters(t *testing.T) {
	store := newFakeMemberStore()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	id := store.add(&models.Member{Points: models.MemberPoints{
		PGP: models.PointBucket{LastReset: now},
		TGP: models.PointBucket{LastReset: now},
	}})
	ledger := ledgerAt(store, now)

	require.NoError(t, ledger.AddPoints(context.Background(), id, 25, "ride-1", models.PointTypePersonal, 25))
	require.NoError(t, ledger.AddPoints(context.Background(), id, 10, "ride-2", models.PointTypeTeam, 10))

	m, err := store.GetMember(context.Background(), id)
	require.NoError(t, err)
	assert.InDelta(t, 25, m.Points.PGP.Monthly, 1e-9)
	assert.InDelta(t, 25, m.Points.PGP.Accumulated, 1e-9)
	assert.InDelta(t, 10, m.Points.TGP.Monthly, 1e-9)
	assert.InDelta(t, 10, m.Points.TGP.Accumulated, 1e-9)
}

func TestAddPointsRejectsUnknownType(t *testing.T) {
	store := newFakeMemberStore()
	id := store.add(&models.Member{})
	ledger := NewPointLedger(store)

	err := ledger.AddPoints(context.Background(), id, 5, "ride-1", "bonus", 5)
	assert.Error(t, err)
}

func TestMonthlyResetAcrossBoundary(t *testing.T) {
	store := newFakeMemberStore()
	february := time.Date(2026, time.February, 20, 9, 0, 0, 0, time.UTC)
	id := store.add(&models.Member{Points: models.MemberPoints{
		PGP: models.PointBucket{Monthly: 300, Accumulated: 1200, LastReset: february},
		TGP: models.PointBucket{Monthly: 900, Accumulated: 5000, LastReset: february},
	}})

	march := time.Date(2026, time.March, 1, 0, 5, 0, 0, time.UTC)
	ledger := ledgerAt(store, march)

	require.NoError(t, ledger.CheckAndResetMonthly(context.Background(), id))

	m, err := store.GetMember(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, m.Points.PGP.Monthly)
	assert.Zero(t, m.Points.TGP.Monthly)
	assert.InDelta(t, 1200, m.Points.PGP.Accumulated, 1e-9, "accumulated never resets")
	assert.InDelta(t, 5000, m.Points.TGP.Accumulated, 1e-9)
	assert.Equal(t, march, m.Points.PGP.LastReset)
}

func TestMonthlyResetIdempotentWithinMonth(t *testing.T) {
	store := newFakeMemberStore()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	id := store.add(&models.Member{Points: models.MemberPoints{
		PGP: models.PointBucket{Monthly: 40, Accumulated: 40, LastReset: now.AddDate(0, 0, -5)},
		TGP: models.PointBucket{Monthly: 70, Accumulated: 70, LastReset: now.AddDate(0, 0, -5)},
	}})
	ledger := ledgerAt(store, now)

	require.NoError(t, ledger.CheckAndResetMonthly(context.Background(), id))
	require.NoError(t, ledger.CheckAndResetMonthly(context.Background(), id))

	m, err := store.GetMember(context.Background(), id)
	require.NoError(t, err)
	assert.InDelta(t, 40, m.Points.PGP.Monthly, 1e-9, "same-month checks must not reset")
	assert.InDelta(t, 70, m.Points.TGP.Monthly, 1e-9)
}

func TestAddPointsAfterBoundaryLandsInFreshWindow(t *testing.T) {
	store := newFakeMemberStore()
	february := time.Date(2026, time.February, 27, 9, 0, 0, 0, time.UTC)
	id := store.add(&models.Member{Points: models.MemberPoints{
		PGP: models.PointBucket{Monthly: 500, Accumulated: 500, LastReset: february},
		TGP: models.PointBucket{LastReset: february},
	}})

	march := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	ledger := ledgerAt(store, march)

	require.NoError(t, ledger.AddPoints(context.Background(), id, 30, "ride-1", models.PointTypePersonal, 30))

	m, err := store.GetMember(context.Background(), id)
	require.NoError(t, err)
	assert.InDelta(t, 30, m.Points.PGP.Monthly, 1e-9, "reset must run before crediting the new month")
	assert.InDelta(t, 530, m.Points.PGP.Accumulated, 1e-9)
}

func TestStats(t *testing.T) {
	store := newFakeMemberStore()
	now := time.Date(2026, time.March, 30, 12, 0, 0, 0, time.UTC)
	id := store.add(&models.Member{Points: models.MemberPoints{
		PGP: models.PointBucket{Monthly: 120, Accumulated: 980, LastReset: now},
		TGP: models.PointBucket{Monthly: 300, Accumulated: 4200, LastReset: now},
	}})
	ledger := ledgerAt(store, now)

	stats, err := ledger.Stats(context.Background(), id)
	require.NoError(t, err)
	assert.InDelta(t, 120, stats.PGP.Monthly, 1e-9)
	assert.InDelta(t, 980, stats.PGP.Accumulated, 1e-9)
	assert.InDelta(t, 4200+980, stats.Total, 1e-9)
	// March 30 noon to April 1 midnight is 1.5 days, reported as 2.
	assert.Equal(t, 2, stats.PGP.DaysUntilReset)
	assert.Equal(t, stats.PGP.DaysUntilReset, stats.TGP.DaysUntilReset)
}

func TestDaysUntilMonthEnd(t *testing.T) {
	loc := time.UTC
	assert.Equal(t, 1, daysUntilMonthEnd(time.Date(2026, time.March, 31, 12, 0, 0, 0, loc)))
	assert.Equal(t, 31, daysUntilMonthEnd(time.Date(2026, time.March, 1, 0, 0, 0, 0, loc)))
	// Leap-year February.
	assert.Equal(t, 29, daysUntilMonthEnd(time.Date(2028, time.February, 1, 0, 0, 0, 0, loc)))
}
