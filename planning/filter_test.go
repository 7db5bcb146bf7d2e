package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sceneIDs(scenes []Scene) []uint {
	ids := make([]uint, 0, len(scenes))
	for _, s := range scenes {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestUnassigned(t *testing.T) {
	days := []Day{{ID: 1, SceneIDs: []uint{2}}}

	tests := []struct {
		name   string
		filter Filter
		want   []uint
	}{
		{"no filter", Filter{}, []uint{1, 3, 4}},
		{"all keyword", Filter{Location: "all", TimeOfDay: "ALL"}, []uint{1, 3, 4}},
		{"location substring", Filter{Location: "faro"}, []uint{1}},
		{"location is case insensitive", Filter{Location: "PLAYA"}, []uint{3}},
		{"time of day inferred from title", Filter{TimeOfDay: TimeOfDayDusk}, []uint{3}},
		{"both filters", Filter{Location: "coche", TimeOfDay: TimeOfDayDawn}, []uint{4}},
		{"no match", Filter{Location: "castillo"}, []uint{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Unassigned(testScenes(), days, tt.filter)
			assert.Equal(t, tt.want, sceneIDs(got))
		})
	}
}

func TestUnassigned_RecordedTimeOfDayWins(t *testing.T) {
	scenes := []Scene{{ID: 1, Title: "EXT. BOSQUE - NOCHE", TimeOfDay: TimeOfDayDay}}

	assert.Len(t, Unassigned(scenes, nil, Filter{TimeOfDay: TimeOfDayDay}), 1)
	assert.Empty(t, Unassigned(scenes, nil, Filter{TimeOfDay: TimeOfDayNight}))
}

func TestInferTimeOfDay(t *testing.T) {
	assert.Equal(t, TimeOfDayNight, InferTimeOfDay("EXT. FARO - NOCHE"))
	assert.Equal(t, TimeOfDayNight, InferTimeOfDay("ext. faro - del atardecer a la noche"))
	assert.Equal(t, TimeOfDayDusk, InferTimeOfDay("EXT. PLAYA - ATARDECER"))
	assert.Equal(t, TimeOfDayDawn, InferTimeOfDay("INT. COCHE - AMANECER"))
	assert.Equal(t, TimeOfDayDay, InferTimeOfDay("INT. COCINA"))
}

func TestFormatEighths(t *testing.T) {
	assert.Equal(t, "0", FormatEighths(0))
	assert.Equal(t, "0", FormatEighths(-3))
	assert.Equal(t, "3/8", FormatEighths(3))
	assert.Equal(t, "1", FormatEighths(8))
	assert.Equal(t, "2 3/8", FormatEighths(19))
}

func TestValidTimeOfDay(t *testing.T) {
	assert.True(t, ValidTimeOfDay(TimeOfDayDawn))
	assert.False(t, ValidTimeOfDay("DIA"))
	assert.False(t, ValidTimeOfDay(""))
}
