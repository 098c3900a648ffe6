// services/plan_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSouheill/ridelink_backend/models"
)

func TestPlanServiceSeedsDefault(t *testing.T) {
	plans := newFakePlanStore(nil)
	svc := NewPlanService(plans)

	plan, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "default", plan.Name)
	assert.NoError(t, plan.Validate())

	// Seeded once, then served from the store.
	again, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, plan.Name, again.Name)
}

func TestPlanServiceReplaceRejectsInvalid(t *testing.T) {
	plans := newFakePlanStore(models.DefaultCompensationPlan())
	svc := NewPlanService(plans)

	bad := models.DefaultCompensationPlan()
	bad.MainPools[0].Percent = 99
	err := svc.Replace(context.Background(), bad)
	assert.ErrorIs(t, err, models.ErrPlanInvariant)

	// The stored plan is untouched.
	current, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.NoError(t, current.Validate())
}

func TestPlanServiceNormalize(t *testing.T) {
	drifted := models.DefaultCompensationPlan()
	for i := range drifted.MainPools {
		drifted.MainPools[i].Percent *= 2
		for j := range drifted.MainPools[i].SubPools {
			drifted.MainPools[i].SubPools[j].Percent *= 2
		}
	}
	plans := newFakePlanStore(drifted)
	svc := NewPlanService(plans)

	plan, err := svc.Normalize(context.Background())
	require.NoError(t, err)
	assert.NoError(t, plan.Validate())
	assert.InDelta(t, 24.6, plan.MainPools[0].Percent, 1e-9)
}
