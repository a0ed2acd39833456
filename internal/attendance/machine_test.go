package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/clock"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/roster"
)

var testStart = time.Date(2024, time.March, 5, 7, 30, 0, 0, time.UTC)

func newTestMachine(t *testing.T) (*Machine, *roster.Memory, *clock.Mock, *[]model.Event) {
	t.Helper()
	repo := roster.NewMemory()
	mock := clock.NewMock(testStart)
	var events []model.Event
	sink := model.SinkFunc(func(e model.Event) { events = append(events, e) })
	m := NewMachine(repo, mock, sink, 5*time.Second)
	t.Cleanup(m.Stop)
	return m, repo, mock, &events
}

func seedStudent(t *testing.T, repo *roster.Memory, id, grade string) {
	t.Helper()
	_, err := repo.Create(context.Background(), model.Student{
		ID:        id,
		FirstName: "Student",
		LastName:  id,
		Grade:     grade,
		Sunrise:   model.SessionRecord{Status: model.StatusAbsent},
		Sunset:    model.SessionRecord{Status: model.StatusAbsent},
	})
	require.NoError(t, err)
}

func lead() model.Staff {
	return model.Staff{ID: "lead-1", Name: "Site Lead", Role: model.RoleLead}
}

func TestCheckIn_Succeeds(t *testing.T) {
	m, repo, _, events := newTestMachine(t)
	seedStudent(t, repo, "s1", "2")

	actor := model.Staff{ID: "a1", Name: "Aide", Role: model.RoleAssistant, CanCheckIn: true}
	st, err := m.CheckIn(context.Background(), "s1", model.SessionSunrise, actor, CheckInInput{})
	require.NoError(t, err)

	assert.Equal(t, model.StatusPresent, st.Sunrise.Status)
	assert.Equal(t, "Aide", st.Sunrise.CheckInBy)
	require.NotNil(t, st.Sunrise.CheckInAt)
	assert.Equal(t, testStart, *st.Sunrise.CheckInAt)
	// The sunset session is untouched.
	assert.Equal(t, model.StatusAbsent, st.Sunset.Status)
	// Plain check-ins raise no events and create no reports.
	assert.Empty(t, *events)
}

func TestCheckIn_PermissionDeniedBeforeBlockCheck(t *testing.T) {
	m, repo, _, _ := newTestMachine(t)
	seedStudent(t, repo, "s1", "2")
	_, err := repo.Update(context.Background(), "s1", func(st *model.Student) error {
		st.CheckInBlocked = true
		return nil
	})
	require.NoError(t, err)

	// First failure wins: an unpermitted actor sees PermissionDenied,
	// not CheckInBlocked.
	noGrant := model.Staff{ID: "a2", Name: "Coach", Role: model.RoleCoach}
	_, err = m.CheckIn(context.Background(), "s1", model.SessionSunrise, noGrant, CheckInInput{})
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
}

func TestCheckIn_BlockedOverridesAnyPermission(t *testing.T) {
	m, repo, _, _ := newTestMachine(t)
	seedStudent(t, repo, "s1", "2")
	_, err := repo.Update(context.Background(), "s1", func(st *model.Student) error {
		st.CheckInBlocked = true
		return nil
	})
	require.NoError(t, err)

	_, err = m.CheckIn(context.Background(), "s1", model.SessionSunrise, lead(), CheckInInput{})
	assert.ErrorIs(t, err, model.ErrCheckInBlocked)

	st, err := repo.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAbsent, st.Sunrise.Status)
}

func TestCheckIn_OnlyFromAbsent(t *testing.T) {
	m, repo, _, _ := newTestMachine(t)
	seedStudent(t, repo, "s1", "2")

	_, err := m.CheckIn(context.Background(), "s1", model.SessionSunrise, lead(), CheckInInput{})
	require.NoError(t, err)

	_, err = m.CheckIn(context.Background(), "s1", model.SessionSunrise, lead(), CheckInInput{})
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestCheckIn_StoresBiometricSideDataAndRaisesAnomaly(t *testing.T) {
	m, repo, _, events := newTestMachine(t)
	seedStudent(t, repo, "s1", "2")

	bio := &BiometricResult{MatchScore: 0.42, AnomalyScore: 0.91, AnomalyDetected: true}
	st, err := m.CheckIn(context.Background(), "s1", model.SessionSunrise, lead(), CheckInInput{
		PhotoURL:  "https://cdn/photo.jpg",
		Biometric: bio,
	})
	require.NoError(t, err)

	require.NotNil(t, st.Sunrise.MatchScore)
	assert.Equal(t, 0.42, *st.Sunrise.MatchScore)
	require.NotNil(t, st.Sunrise.AnomalyScore)
	assert.Equal(t, 0.91, *st.Sunrise.AnomalyScore)
	assert.True(t, st.Sunrise.AnomalyDetected)

	require.Len(t, *events, 1)
	assert.Equal(t, model.EventVisualAnomaly, (*events)[0].Type)
	assert.Equal(t, "s1", (*events)[0].StudentID)
}

func TestRequestCheckOut_AutoAdvancesAfterDelay(t *testing.T) {
	m, repo, mock, events := newTestMachine(t)
	seedStudent(t, repo, "s1", "2")

	_, err := m.CheckIn(context.Background(), "s1", model.SessionSunrise, lead(), CheckInInput{})
	require.NoError(t, err)

	st, err := m.RequestCheckOut(context.Background(), "s1", model.SessionSunrise, lead())
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingParent, st.Sunrise.Status)
	require.NotNil(t, st.Sunrise.SMSSentAt)

	mock.Advance(4 * time.Second)
	st, err = repo.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingParent, st.Sunrise.Status)

	mock.Advance(time.Second)
	st, err = repo.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedOut, st.Sunrise.Status)
	assert.Equal(t, "SMS Confirmed", st.Sunrise.CheckOutBy)

	require.Len(t, *events, 1)
	assert.Equal(t, model.EventCheckedOut, (*events)[0].Type)
	assert.Equal(t, model.ModeSMSConfirmed, (*events)[0].Mode)
}

func TestRequestCheckOut_RequiresPresent(t *testing.T) {
	m, repo, _, _ := newTestMachine(t)
	seedStudent(t, repo, "s1", "2")

	_, err := m.RequestCheckOut(context.Background(), "s1", model.SessionSunrise, lead())
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestRequestCheckOut_PermissionGate(t *testing.T) {
	m, repo, _, _ := newTestMachine(t)
	seedStudent(t, repo, "s1", "2")
	_, err := m.CheckIn(context.Background(), "s1", model.SessionSunrise, lead(), CheckInInput{})
	require.NoError(t, err)

	noGrant := model.Staff{ID: "a1", Name: "Aide", Role: model.RoleAssistant, CanCheckIn: true}
	_, err = m.RequestCheckOut(context.Background(), "s1", model.SessionSunrise, noGrant)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
}

func TestForceBatchCheckOut_FirstTransitionWins(t *testing.T) {
	m, repo, mock, events := newTestMachine(t)
	seedStudent(t, repo, "s1", "2")

	_, err := m.CheckIn(context.Background(), "s1", model.SessionSunrise, lead(), CheckInInput{})
	require.NoError(t, err)
	_, err = m.RequestCheckOut(context.Background(), "s1", model.SessionSunrise, lead())
	require.NoError(t, err)

	// Batch fires before the 5s auto-advance.
	n, err := m.ForceBatchCheckOut(context.Background(), model.SessionSunrise, "18:00", "Auto Checkout")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	st, err := repo.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedOut, st.Sunrise.Status)
	assert.Equal(t, "Auto Checkout (18:00)", st.Sunrise.CheckOutBy)

	// The deferred transition must not overwrite the batch label.
	mock.Advance(10 * time.Second)
	st, err = repo.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Auto Checkout (18:00)", st.Sunrise.CheckOutBy)
	assert.Equal(t, 0, mock.Pending())

	// Exactly one checkout event, attributed to the batch.
	require.Len(t, *events, 1)
	assert.Equal(t, model.EventCheckedOut, (*events)[0].Type)
	assert.Equal(t, model.ModeBatch, (*events)[0].Mode)
}

func TestForceBatchCheckOut_SkipsAbsentAndCheckedOut(t *testing.T) {
	m, repo, _, _ := newTestMachine(t)
	seedStudent(t, repo, "present", "2")
	seedStudent(t, repo, "absent", "2")
	seedStudent(t, repo, "done", "2")

	_, err := m.CheckIn(context.Background(), "present", model.SessionSunrise, lead(), CheckInInput{})
	require.NoError(t, err)
	_, err = repo.Update(context.Background(), "done", func(st *model.Student) error {
		st.Sunrise.Status = model.StatusCheckedOut
		return nil
	})
	require.NoError(t, err)

	n, err := m.ForceBatchCheckOut(context.Background(), model.SessionSunrise, "18:00", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	st, _ := repo.Get(context.Background(), "absent")
	assert.Equal(t, model.StatusAbsent, st.Sunrise.Status)
	st, _ = repo.Get(context.Background(), "present")
	assert.Equal(t, model.StatusCheckedOut, st.Sunrise.Status)
	assert.Equal(t, "Auto Checkout (18:00)", st.Sunrise.CheckOutBy)
}

func TestForceBatchCheckOut_Idempotent(t *testing.T) {
	m, repo, _, _ := newTestMachine(t)
	seedStudent(t, repo, "s1", "2")
	_, err := m.CheckIn(context.Background(), "s1", model.SessionSunrise, lead(), CheckInInput{})
	require.NoError(t, err)

	n, err := m.ForceBatchCheckOut(context.Background(), model.SessionSunrise, "18:00", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = m.ForceBatchCheckOut(context.Background(), model.SessionSunrise, "18:00", "")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSessionsAdvanceIndependently(t *testing.T) {
	m, repo, _, _ := newTestMachine(t)
	seedStudent(t, repo, "s1", "2")

	_, err := m.CheckIn(context.Background(), "s1", model.SessionSunrise, lead(), CheckInInput{})
	require.NoError(t, err)
	st, err := m.CheckIn(context.Background(), "s1", model.SessionSunset, lead(), CheckInInput{})
	require.NoError(t, err)

	n, err := m.ForceBatchCheckOut(context.Background(), model.SessionSunrise, "18:00", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	st, err = repo.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedOut, st.Sunrise.Status)
	assert.Equal(t, model.StatusPresent, st.Sunset.Status)
}
