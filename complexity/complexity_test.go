package complexity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_ZeroFactors(t *testing.T) {
	var f Factors
	assert.Equal(t, 0, Score(f))
	assert.Equal(t, CategoryLow, CategoryOf(Score(f)))
}

func TestScore_SingleFactors(t *testing.T) {
	tests := []struct {
		name     string
		factors  Factors
		score    int
		category Category
	}{
		{"stunts only", Factors{Stunts: true}, 12, CategoryMedium},
		{"camera movement only", Factors{CameraMovement: true}, 4, CategoryLow},
		{"dialogue only", Factors{ExtensiveDialogue: true}, 2, CategoryLow},
		{"seven characters", Factors{NumCharacters: 7}, 10, CategoryMedium},
		{"two characters are free", Factors{NumCharacters: 2}, 0, CategoryLow},
		{"27 extras", Factors{NumExtras: 27}, 5, CategoryLow},
		{"4 extras", Factors{NumExtras: 4}, 0, CategoryLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := Score(tt.factors)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.category, CategoryOf(score))
		})
	}
}

func TestScore_AllFlags(t *testing.T) {
	f := Factors{
		CameraMovement: true, PhysicalAction: true, Stunts: true, SpecialEffects: true,
		Children: true, Animals: true, MovingVehicles: true, ComplexLighting: true,
		NightScene: true, ExteriorWeather: true, ExtensiveDialogue: true, CraneRequired: true,
		SpecialShots: true,
	}
	// 4+6+12+8+5+5+8+4+3+3+2+5+4
	assert.Equal(t, 69, Score(f))
	assert.Equal(t, CategoryExtreme, CategoryOf(Score(f)))
}

func TestScore_ClampedAt100(t *testing.T) {
	assert.Equal(t, MaxScore, Score(Factors{NumCharacters: 1000}))
	assert.Equal(t, MaxScore, Score(Factors{Stunts: true, NumExtras: 100000}))
}

func TestScore_NegativeCountsIgnored(t *testing.T) {
	assert.Equal(t, 0, Score(Factors{NumCharacters: -4, NumExtras: -20}))
}

func TestScore_Monotonic(t *testing.T) {
	base := Factors{NumCharacters: 3, NumExtras: 6}
	before := Score(base)

	for _, factor := range AllFactors() {
		flipped := withFactor(base, factor)
		assert.GreaterOrEqual(t, Score(flipped), before, "flipping %s lowered the score", factor)
	}

	prev := 0
	for n := 0; n < 200; n++ {
		s := Score(Factors{NumCharacters: n, NumExtras: n})
		assert.GreaterOrEqual(t, s, prev)
		assert.LessOrEqual(t, s, MaxScore)
		prev = s
	}
}

func TestCategoryOf_Boundaries(t *testing.T) {
	assert.Equal(t, CategoryLow, CategoryOf(9))
	assert.Equal(t, CategoryMedium, CategoryOf(10))
	assert.Equal(t, CategoryMedium, CategoryOf(24))
	assert.Equal(t, CategoryHigh, CategoryOf(25))
	assert.Equal(t, CategoryHigh, CategoryOf(49))
	assert.Equal(t, CategoryExtreme, CategoryOf(50))
	assert.Equal(t, CategoryExtreme, CategoryOf(100))
}

func TestExtraMinutes(t *testing.T) {
	assert.Equal(t, 0, ExtraMinutes(Factors{}))
	assert.Equal(t, 45, ExtraMinutes(Factors{Stunts: true}))
	// 3 characters over the threshold, 2 groups of five extras
	assert.Equal(t, 15+10, ExtraMinutes(Factors{NumCharacters: 5, NumExtras: 12}))
}

func TestEvaluate(t *testing.T) {
	ev := Evaluate(Factors{Stunts: true, Animals: true, NumCharacters: 4, NumExtras: 10})

	assert.Equal(t, 12+5+4+2, ev.Score)
	assert.Equal(t, CategoryMedium, ev.Category)
	assert.Equal(t, []Contribution{
		{Factor: "stunts", Points: 12},
		{Factor: "animals", Points: 5},
		{Factor: "num_characters", Points: 4},
		{Factor: "num_extras", Points: 2},
	}, ev.Contributions)
}

func withFactor(f Factors, factor Factor) Factors {
	switch factor {
	case FactorCameraMovement:
		f.CameraMovement = true
	case FactorPhysicalAction:
		f.PhysicalAction = true
	case FactorStunts:
		f.Stunts = true
	case FactorSpecialEffects:
		f.SpecialEffects = true
	case FactorChildren:
		f.Children = true
	case FactorAnimals:
		f.Animals = true
	case FactorMovingVehicles:
		f.MovingVehicles = true
	case FactorComplexLighting:
		f.ComplexLighting = true
	case FactorNightScene:
		f.NightScene = true
	case FactorExteriorWeather:
		f.ExteriorWeather = true
	case FactorExtensiveDialogue:
		f.ExtensiveDialogue = true
	case FactorCraneRequired:
		f.CraneRequired = true
	case FactorSpecialShots:
		f.SpecialShots = true
	}
	return f
}
