package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
)

func TestSortRoster_GradeThenFirstThenLast(t *testing.T) {
	students := []model.Student{
		{ID: "1", FirstName: "zoe", LastName: "Adams", Grade: "5"},
		{ID: "2", FirstName: "Ben", LastName: "Young", Grade: "TK"},
		{ID: "3", FirstName: "Amy", LastName: "cole", Grade: "K"},
		{ID: "4", FirstName: "amy", LastName: "Brown", Grade: "K"},
		{ID: "5", FirstName: "Cal", LastName: "Diaz", Grade: "1"},
	}

	SortRoster(students)

	got := make([]string, len(students))
	for i, s := range students {
		got[i] = s.ID
	}
	// TK first, then K (Amy Brown before Amy Cole by last name,
	// case-insensitive), then 1, then 5.
	assert.Equal(t, []string{"2", "4", "3", "5", "1"}, got)
}

func TestSortRoster_UnknownGradeSortsLast(t *testing.T) {
	students := []model.Student{
		{ID: "1", FirstName: "A", Grade: "6"},
		{ID: "2", FirstName: "B", Grade: "5"},
	}
	SortRoster(students)
	assert.Equal(t, "2", students[0].ID)
	assert.Equal(t, "1", students[1].ID)
}
