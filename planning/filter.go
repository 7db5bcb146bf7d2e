package planning

import (
	"fmt"
	"strings"
)

const (
	TimeOfDayDay   = "DÍA"
	TimeOfDayNight = "NOCHE"
	TimeOfDayDusk  = "ATARDECER"
	TimeOfDayDawn  = "AMANECER"

	// FilterAll disables a filter.
	FilterAll = "all"
)

// Filter narrows the unassigned pool. Empty or "all" fields match everything.
type Filter struct {
	Location  string `form:"location"`
	TimeOfDay string `form:"time_of_day"`
}

// Unassigned returns the scenes that no day holds, in input order, narrowed
// by f. Location matches as a case-insensitive substring of the title or
// description.
func Unassigned(scenes []Scene, days []Day, f Filter) []Scene {
	assigned := make(map[uint]struct{})
	for _, d := range days {
		for _, id := range d.SceneIDs {
			assigned[id] = struct{}{}
		}
	}

	location := strings.ToLower(strings.TrimSpace(f.Location))
	if location == FilterAll {
		location = ""
	}
	timeOfDay := strings.TrimSpace(f.TimeOfDay)
	if strings.EqualFold(timeOfDay, FilterAll) {
		timeOfDay = ""
	}

	out := []Scene{}
	for _, s := range scenes {
		if _, ok := assigned[s.ID]; ok {
			continue
		}
		if location != "" &&
			!strings.Contains(strings.ToLower(s.Title), location) &&
			!strings.Contains(strings.ToLower(s.Description), location) {
			continue
		}
		if timeOfDay != "" && !strings.EqualFold(SceneTimeOfDay(s), timeOfDay) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// SceneTimeOfDay is the recorded time of day, or the one inferred from the
// title when none was recorded.
func SceneTimeOfDay(s Scene) string {
	if s.TimeOfDay != "" {
		return s.TimeOfDay
	}
	return InferTimeOfDay(s.Title)
}

// InferTimeOfDay reads the time of day from a scene heading. NOCHE wins over
// ATARDECER, which wins over AMANECER; anything else is DÍA.
func InferTimeOfDay(title string) string {
	upper := strings.ToUpper(title)
	switch {
	case strings.Contains(upper, "NOCHE"):
		return TimeOfDayNight
	case strings.Contains(upper, "ATARDECER"):
		return TimeOfDayDusk
	case strings.Contains(upper, "AMANECER"):
		return TimeOfDayDawn
	default:
		return TimeOfDayDay
	}
}

// FormatEighths renders a length in eighths as pages, e.g. 19 -> "2 3/8".
func FormatEighths(n int) string {
	if n <= 0 {
		return "0"
	}
	pages, rest := n/8, n%8
	switch {
	case rest == 0:
		return fmt.Sprintf("%d", pages)
	case pages == 0:
		return fmt.Sprintf("%d/8", rest)
	default:
		return fmt.Sprintf("%d %d/8", pages, rest)
	}
}

// ValidTimeOfDay reports whether v is one of the four recognised values.
func ValidTimeOfDay(v string) bool {
	switch v {
	case TimeOfDayDay, TimeOfDayNight, TimeOfDayDusk, TimeOfDayDawn:
		return true
	}
	return false
}
