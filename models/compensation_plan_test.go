// models/compensation_plan_test.go
package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPlanIsValid(t *testing.T) {
	plan := DefaultCompensationPlan()
	assert.NoError(t, plan.Validate())
}

func TestValidateMainPoolSum(t *testing.T) {
	plan := DefaultCompensationPlan()
	plan.MainPools = append(plan.MainPools, Pool{Name: "extra", Percent: 5})
	assert.Error(t, plan.Validate())
}

func TestValidateToleratesRounding(t *testing.T) {
	plan := DefaultCompensationPlan()
	plan.MainPools[5].Percent += 0.009 // within PercentTolerance
	assert.NoError(t, plan.Validate())

	plan.MainPools[5].Percent += 0.01 // now beyond it
	assert.Error(t, plan.Validate())
}

func TestValidateSubPoolSum(t *testing.T) {
	plan := DefaultCompensationPlan()
	plan.MainPools[0].SubPools[0].Percent = 15 // level1: 14 -> 15, subtotal 25.6 vs 24.6
	assert.Error(t, plan.Validate())
}

func TestValidateNegativePercents(t *testing.T) {
	plan := DefaultCompensationPlan()
	plan.MainPools[3].Percent = -10
	assert.Error(t, plan.Validate())

	plan = DefaultCompensationPlan()
	plan.UplineLevelPercents[2] = -1
	assert.Error(t, plan.Validate())
}

func TestValidateUplineLevelCount(t *testing.T) {
	plan := DefaultCompensationPlan()
	plan.UplineLevelPercents = []float64{14, 6, 3.6}
	assert.Error(t, plan.Validate())
}

func TestValidateRankNames(t *testing.T) {
	plan := DefaultCompensationPlan()
	plan.Ranks[1].Name = plan.Ranks[0].Name
	assert.Error(t, plan.Validate(), "duplicate rank names")

	plan = DefaultCompensationPlan()
	plan.Ranks[0].Name = RankNone
	assert.Error(t, plan.Validate(), "None is reserved")

	plan = DefaultCompensationPlan()
	plan.Ranks[0].Name = ""
	assert.Error(t, plan.Validate())
}

func TestNormalizeRescalesProportionally(t *testing.T) {
	plan := DefaultCompensationPlan()
	// Drift every main pool by the same factor; relative weights survive.
	for i := range plan.MainPools {
		plan.MainPools[i].Percent *= 1.2
	}
	for i := range plan.MainPools {
		for j := range plan.MainPools[i].SubPools {
			plan.MainPools[i].SubPools[j].Percent *= 1.2
		}
	}
	require.Error(t, plan.Validate())

	plan.Normalize()
	require.NoError(t, plan.Validate())
	assert.InDelta(t, 24.6, plan.MainPools[0].Percent, 1e-9)
	assert.InDelta(t, 14, plan.MainPools[0].SubPools[0].Percent, 1e-9)
}

func TestNormalizeEvenSplitForZeroSubTotal(t *testing.T) {
	plan := &CompensationPlan{
		MainPools: []Pool{
			{Name: "a", Percent: 60, SubPools: []SubPool{
				{Name: "x", Percent: 0},
				{Name: "y", Percent: 0},
			}},
			{Name: "b", Percent: 40},
		},
		UplineLevelPercents: []float64{14, 6, 3.6, 1},
	}

	plan.Normalize()
	require.NoError(t, plan.Validate())
	assert.InDelta(t, 30, plan.MainPools[0].SubPools[0].Percent, 1e-9)
	assert.InDelta(t, 30, plan.MainPools[0].SubPools[1].Percent, 1e-9)
}

func TestNormalizeExactHundred(t *testing.T) {
	plan := DefaultCompensationPlan()
	plan.MainPools[0].Percent = 30 // 24.6 -> 30, total 105.4
	plan.Normalize()

	var total float64
	for _, pool := range plan.MainPools {
		total += pool.Percent
	}
	assert.True(t, math.Abs(total-100) <= 1e-9)
}

func TestRankIndex(t *testing.T) {
	plan := DefaultCompensationPlan()
	assert.Equal(t, -1, plan.RankIndex(""))
	assert.Equal(t, -1, plan.RankIndex(RankNone))
	assert.Equal(t, -1, plan.RankIndex("Unknown"))
	assert.Equal(t, 0, plan.RankIndex("Achiever"))
	assert.Equal(t, 4, plan.RankIndex("Ambassador"))
}

func TestRankNameDefault(t *testing.T) {
	m := &Member{}
	assert.Equal(t, RankNone, m.RankName())
	m.Rank.Name = "Champion"
	assert.Equal(t, "Champion", m.RankName())
}
