package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/drewmudry/shootplan-api/complexity"
)

func TestSequence_SetFactorsRescores(t *testing.T) {
	var s Sequence
	s.SetFactors(complexity.Factors{Stunts: true, SpecialEffects: true, NumCharacters: 4})

	assert.Equal(t, 24, s.ComplexityScore)
	assert.Equal(t, string(complexity.CategoryMedium), s.ComplexityCategory)
	assert.True(t, s.Factors().Stunts)
}

func TestSequence_PlannedEighths(t *testing.T) {
	s := Sequence{Eighths: 6}
	assert.Equal(t, 6, s.PlannedEighths())

	override := 10
	s.EffectiveEighths = &override
	assert.Equal(t, 10, s.PlannedEighths())
}

func TestUser_CanAnalyze(t *testing.T) {
	u := User{SubscriptionStatus: "free", FreeAnalysesRemaining: 1}
	assert.True(t, u.CanAnalyze())

	u.FreeAnalysesRemaining = 0
	assert.False(t, u.CanAnalyze())

	u.SubscriptionStatus = "active"
	assert.True(t, u.CanAnalyze())

	past := time.Now().Add(-time.Hour)
	u.SubscriptionEndsAt = &past
	assert.False(t, u.CanAnalyze())
}

func TestFestivalApplication_IsOpen(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tomorrow := now.Add(24 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)

	assert.True(t, (&FestivalApplication{Status: FestivalPlanned}).IsOpen(now))
	assert.True(t, (&FestivalApplication{Status: FestivalPlanned, Deadline: &tomorrow}).IsOpen(now))
	assert.False(t, (&FestivalApplication{Status: FestivalPlanned, Deadline: &yesterday}).IsOpen(now))
	assert.False(t, (&FestivalApplication{Status: FestivalSubmitted, Deadline: &tomorrow}).IsOpen(now))
}
