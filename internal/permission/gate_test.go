package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
)

func TestCanCheckIn_LeadAlwaysAllowed(t *testing.T) {
	lead := model.Staff{Role: model.RoleLead}
	st := model.Student{Grade: "3"}

	d := CanCheckIn(lead, st)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonAllowed, d.Reason)
}

func TestCanCheckIn_GrantWithEmptyGradesMeansAllGrades(t *testing.T) {
	coach := model.Staff{Role: model.RoleCoach, CanCheckIn: true}

	d := CanCheckIn(coach, model.Student{Grade: "TK"})
	assert.True(t, d.Allowed)
}

func TestCanCheckIn_GradeAssignment(t *testing.T) {
	assistant := model.Staff{
		Role:           model.RoleAssistant,
		CanCheckIn:     true,
		AssignedGrades: []string{"K", "1"},
	}

	assert.True(t, CanCheckIn(assistant, model.Student{Grade: "K"}).Allowed)

	d := CanCheckIn(assistant, model.Student{Grade: "4"})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonGradeNotAssigned, d.Reason)
}

func TestCanCheckIn_NoGrant(t *testing.T) {
	d := CanCheckIn(model.Staff{Role: model.RoleAssistant}, model.Student{Grade: "2"})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonMissingGrant, d.Reason)
}

func TestCanAdminister(t *testing.T) {
	assert.True(t, CanAdminister(model.Staff{Role: model.RoleLead}).Allowed)
	assert.True(t, CanAdminister(model.Staff{Role: model.RoleCoach, CanAdminTasks: true}).Allowed)

	d := CanAdminister(model.Staff{Role: model.RoleCoach})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotAdmin, d.Reason)
}

func TestCanCheckOut_GatedBehindAdmin(t *testing.T) {
	// The checkout grant alone is not enough without the admin grant.
	d := CanCheckOut(model.Staff{Role: model.RoleAssistant, CanCheckOut: true})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotAdmin, d.Reason)

	assert.True(t, CanCheckOut(model.Staff{
		Role:          model.RoleAssistant,
		CanAdminTasks: true,
		CanCheckOut:   true,
	}).Allowed)
	assert.True(t, CanCheckOut(model.Staff{Role: model.RoleLead}).Allowed)
}

func TestCanRecordHIR(t *testing.T) {
	d := CanRecordHIR(model.Staff{Role: model.RoleAssistant, CanAdminTasks: true})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonMissingGrant, d.Reason)

	assert.True(t, CanRecordHIR(model.Staff{
		Role:          model.RoleAssistant,
		CanAdminTasks: true,
		CanHIR:        true,
	}).Allowed)
	assert.True(t, CanRecordHIR(model.Staff{Role: model.RoleLead}).Allowed)
}
