package complexity

// Factors is the full set of production factors recorded for a sequence.
// Every field is always present; a factor that was never set is false or zero.
type Factors struct {
	CameraMovement    bool `json:"camera_movement"`
	PhysicalAction    bool `json:"physical_action"`
	Stunts            bool `json:"stunts"`
	SpecialEffects    bool `json:"special_effects"`
	Children          bool `json:"children"`
	Animals           bool `json:"animals"`
	MovingVehicles    bool `json:"moving_vehicles"`
	ComplexLighting   bool `json:"complex_lighting"`
	NightScene        bool `json:"night_scene"`
	ExteriorWeather   bool `json:"exterior_weather"`
	ExtensiveDialogue bool `json:"extensive_dialogue"`
	CraneRequired     bool `json:"crane_required"`
	SpecialShots      bool `json:"special_shots"`

	NumCharacters int `json:"num_characters"`
	NumExtras     int `json:"num_extras"`
}

// Category is the discrete complexity band of a score.
type Category string

const (
	CategoryLow     Category = "baja"
	CategoryMedium  Category = "media"
	CategoryHigh    Category = "alta"
	CategoryExtreme Category = "extrema"
)

const (
	MaxScore = 100

	// characters up to this count carry no surcharge
	includedCharacters = 2
	extrasPerPoint     = 5

	minutesPerExtraCharacter = 5
	minutesPerExtrasGroup    = 5
)

// Factor identifies one of the boolean factors.
type Factor string

const (
	FactorCameraMovement    Factor = "camera_movement"
	FactorPhysicalAction    Factor = "physical_action"
	FactorStunts            Factor = "stunts"
	FactorSpecialEffects    Factor = "special_effects"
	FactorChildren          Factor = "children"
	FactorAnimals           Factor = "animals"
	FactorMovingVehicles    Factor = "moving_vehicles"
	FactorComplexLighting   Factor = "complex_lighting"
	FactorNightScene        Factor = "night_scene"
	FactorExteriorWeather   Factor = "exterior_weather"
	FactorExtensiveDialogue Factor = "extensive_dialogue"
	FactorCraneRequired     Factor = "crane_required"
	FactorSpecialShots      Factor = "special_shots"
)

// factorOrder fixes the iteration order used for contributions.
var factorOrder = []Factor{
	FactorCameraMovement,
	FactorPhysicalAction,
	FactorStunts,
	FactorSpecialEffects,
	FactorChildren,
	FactorAnimals,
	FactorMovingVehicles,
	FactorComplexLighting,
	FactorNightScene,
	FactorExteriorWeather,
	FactorExtensiveDialogue,
	FactorCraneRequired,
	FactorSpecialShots,
}

// Score weights. These must not change: stored scores depend on them.
var weights = map[Factor]int{
	FactorCameraMovement:    4,
	FactorPhysicalAction:    6,
	FactorStunts:            12,
	FactorSpecialEffects:    8,
	FactorChildren:          5,
	FactorAnimals:           5,
	FactorMovingVehicles:    8,
	FactorComplexLighting:   4,
	FactorNightScene:        3,
	FactorExteriorWeather:   3,
	FactorExtensiveDialogue: 2,
	FactorCraneRequired:     5,
	FactorSpecialShots:      4,
}

// Additional shooting minutes per factor, used for schedule estimates only.
var extraMinutes = map[Factor]int{
	FactorCameraMovement:    15,
	FactorPhysicalAction:    20,
	FactorStunts:            45,
	FactorSpecialEffects:    30,
	FactorChildren:          20,
	FactorAnimals:           25,
	FactorMovingVehicles:    30,
	FactorComplexLighting:   20,
	FactorNightScene:        15,
	FactorExteriorWeather:   15,
	FactorExtensiveDialogue: 10,
	FactorCraneRequired:     30,
	FactorSpecialShots:      20,
}

// Enabled reports whether the given boolean factor is set.
func (f Factors) Enabled(factor Factor) bool {
	switch factor {
	case FactorCameraMovement:
		return f.CameraMovement
	case FactorPhysicalAction:
		return f.PhysicalAction
	case FactorStunts:
		return f.Stunts
	case FactorSpecialEffects:
		return f.SpecialEffects
	case FactorChildren:
		return f.Children
	case FactorAnimals:
		return f.Animals
	case FactorMovingVehicles:
		return f.MovingVehicles
	case FactorComplexLighting:
		return f.ComplexLighting
	case FactorNightScene:
		return f.NightScene
	case FactorExteriorWeather:
		return f.ExteriorWeather
	case FactorExtensiveDialogue:
		return f.ExtensiveDialogue
	case FactorCraneRequired:
		return f.CraneRequired
	case FactorSpecialShots:
		return f.SpecialShots
	}
	return false
}

// Score maps factors to an integer in [0, 100]. It is pure and total.
func Score(f Factors) int {
	total := 0
	for _, factor := range factorOrder {
		if f.Enabled(factor) {
			total += weights[factor]
		}
	}
	total += characterSurcharge(f.NumCharacters)
	total += extrasSurcharge(f.NumExtras)
	if total > MaxScore {
		return MaxScore
	}
	return total
}

// CategoryOf bands a score. Boundaries are exclusive on the upper side:
// exactly 10 is media, exactly 25 is alta, exactly 50 is extrema.
func CategoryOf(score int) Category {
	switch {
	case score < 10:
		return CategoryLow
	case score < 25:
		return CategoryMedium
	case score < 50:
		return CategoryHigh
	default:
		return CategoryExtreme
	}
}

// ExtraMinutes estimates the additional shooting time the factors add to a sequence.
func ExtraMinutes(f Factors) int {
	total := 0
	for _, factor := range factorOrder {
		if f.Enabled(factor) {
			total += extraMinutes[factor]
		}
	}
	total += excess(f.NumCharacters) * minutesPerExtraCharacter
	total += nonNegative(f.NumExtras) / extrasPerPoint * minutesPerExtrasGroup
	return total
}

// Contribution is the share of the score one factor is responsible for.
type Contribution struct {
	Factor string `json:"factor"`
	Points int    `json:"points"`
}

// Evaluation bundles everything derived from a set of factors.
type Evaluation struct {
	Score         int            `json:"score"`
	Category      Category       `json:"category"`
	ExtraMinutes  int            `json:"extra_minutes"`
	Contributions []Contribution `json:"contributions"`
}

// Evaluate scores the factors and lists every non-zero contribution before clamping.
func Evaluate(f Factors) Evaluation {
	var contributions []Contribution
	for _, factor := range factorOrder {
		if f.Enabled(factor) {
			contributions = append(contributions, Contribution{Factor: string(factor), Points: weights[factor]})
		}
	}
	if p := characterSurcharge(f.NumCharacters); p > 0 {
		contributions = append(contributions, Contribution{Factor: "num_characters", Points: p})
	}
	if p := extrasSurcharge(f.NumExtras); p > 0 {
		contributions = append(contributions, Contribution{Factor: "num_extras", Points: p})
	}

	score := Score(f)
	return Evaluation{
		Score:         score,
		Category:      CategoryOf(score),
		ExtraMinutes:  ExtraMinutes(f),
		Contributions: contributions,
	}
}

// Weight returns the fixed score weight of a boolean factor.
func Weight(factor Factor) int {
	return weights[factor]
}

// AllFactors returns the boolean factors in display order.
func AllFactors() []Factor {
	out := make([]Factor, len(factorOrder))
	copy(out, factorOrder)
	return out
}

func characterSurcharge(n int) int {
	return excess(n) * 2
}

func extrasSurcharge(n int) int {
	return nonNegative(n) / extrasPerPoint
}

func excess(n int) int {
	if n <= includedCharacters {
		return 0
	}
	return n - includedCharacters
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
