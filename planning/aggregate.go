package planning

import (
	"github.com/drewmudry/shootplan-api/complexity"
)

// Scene is the planning view of a sequence.
type Scene struct {
	ID               uint                `json:"id"`
	Number           int                 `json:"number"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	TimeOfDay        string              `json:"time_of_day"`
	Eighths          int                 `json:"eighths"`
	EffectiveEighths *int                `json:"effective_eighths,omitempty"`
	LocationID       *uint               `json:"location_id,omitempty"`
	CharacterIDs     []uint              `json:"character_ids"`
	CharacterNames   []string            `json:"character_names"`
	Category         complexity.Category `json:"complexity_category"`
	ExtraMinutes     int                 `json:"extra_minutes"`
}

// PlannedEighths is the override when set, else the script length.
func (s Scene) PlannedEighths() int {
	if s.EffectiveEighths != nil {
		return *s.EffectiveEighths
	}
	return s.Eighths
}

// Day is a proposed shooting day holding an ordered list of scene ids.
type Day struct {
	ID        uint   `json:"id"`
	DayNumber int    `json:"day_number"`
	TimeOfDay string `json:"time_of_day"`
	SceneIDs  []uint `json:"scene_ids"`
}

type DaySummary struct {
	DayID           uint                `json:"day_id"`
	DayNumber       int                 `json:"day_number"`
	Scenes          int                 `json:"scenes"`
	Eighths         int                 `json:"eighths"`
	Pages           string              `json:"pages"`
	ExtraMinutes    int                 `json:"extra_minutes"`
	HighestCategory complexity.Category `json:"highest_category,omitempty"`
}

// Stats are the plan-level figures shown next to the schedule. Eighths,
// locations and characters count scheduled scenes only.
type Stats struct {
	TotalScenes       int          `json:"total_scenes"`
	ScheduledScenes   int          `json:"scheduled_scenes"`
	UnassignedScenes  int          `json:"unassigned_scenes"`
	TotalEighths      int          `json:"total_eighths"`
	ScriptEighths     int          `json:"script_eighths"`
	TotalDays         int          `json:"total_days"`
	UniqueLocations   int          `json:"unique_locations"`
	DayCount          int          `json:"day_count"`
	NightCount        int          `json:"night_count"`
	TotalCharacters   int          `json:"total_characters"`
	AvgEighthsPerDay  float64      `json:"avg_eighths_per_day"`
	TotalExtraMinutes int          `json:"total_extra_minutes"`
	Days              []DaySummary `json:"days"`
}

var categoryRank = map[complexity.Category]int{
	complexity.CategoryLow:     1,
	complexity.CategoryMedium:  2,
	complexity.CategoryHigh:    3,
	complexity.CategoryExtreme: 4,
}

// Aggregate computes the plan statistics. Scene ids in a day that do not
// match any scene are ignored, and a scene listed in several days is
// counted once.
func Aggregate(scenes []Scene, days []Day) Stats {
	byID := make(map[uint]Scene, len(scenes))
	stats := Stats{TotalScenes: len(scenes), TotalDays: len(days)}
	for _, s := range scenes {
		byID[s.ID] = s
		stats.ScriptEighths += s.PlannedEighths()
	}

	scheduled := make(map[uint]struct{})
	locations := make(map[uint]struct{})
	characters := make(map[uint]struct{})

	for _, d := range days {
		switch d.TimeOfDay {
		case TimeOfDayDay:
			stats.DayCount++
		case TimeOfDayNight:
			stats.NightCount++
		}

		summary := DaySummary{DayID: d.ID, DayNumber: d.DayNumber}
		for _, id := range d.SceneIDs {
			s, ok := byID[id]
			if !ok {
				continue
			}
			summary.Scenes++
			summary.Eighths += s.PlannedEighths()
			summary.ExtraMinutes += s.ExtraMinutes
			if categoryRank[s.Category] > categoryRank[summary.HighestCategory] {
				summary.HighestCategory = s.Category
			}

			if _, seen := scheduled[id]; seen {
				continue
			}
			scheduled[id] = struct{}{}
			stats.TotalEighths += s.PlannedEighths()
			stats.TotalExtraMinutes += s.ExtraMinutes
			if s.LocationID != nil {
				locations[*s.LocationID] = struct{}{}
			}
			for _, c := range s.CharacterIDs {
				characters[c] = struct{}{}
			}
		}
		summary.Pages = FormatEighths(summary.Eighths)
		stats.Days = append(stats.Days, summary)
	}

	stats.ScheduledScenes = len(scheduled)
	stats.UnassignedScenes = stats.TotalScenes - stats.ScheduledScenes
	stats.UniqueLocations = len(locations)
	stats.TotalCharacters = len(characters)
	if stats.TotalDays > 0 {
		stats.AvgEighthsPerDay = float64(stats.TotalEighths) / float64(stats.TotalDays)
	}
	if stats.Days == nil {
		stats.Days = []DaySummary{}
	}
	return stats
}
