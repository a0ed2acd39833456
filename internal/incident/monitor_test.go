package incident

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

var t0 = time.Date(2024, time.March, 5, 15, 0, 0, 0, time.UTC)

func newTestMonitor(t *testing.T) (*Monitor, *roster.Memory, *clock.Mock) {
	t.Helper()
	repo := roster.NewMemory()
	mock := clock.NewMock(t0)
	_, err := repo.Create(context.Background(), model.Student{ID: "s1", FirstName: "Ava", Grade: "3"})
	require.NoError(t, err)
	return NewMonitor(repo, mock), repo, mock
}

func TestOpen_RequiresWitnessStatement(t *testing.T) {
	m, _, _ := newTestMonitor(t)

	_, err := m.Open(context.Background(), "s1", "   ", "fell off the swing", "Coach Rivera")
	assert.ErrorIs(t, err, model.ErrValidation)

	st, err := m.Open(context.Background(), "s1", "Coach Rivera", "fell off the swing", "Coach Rivera")
	require.NoError(t, err)
	assert.True(t, st.HeadInjury.Active)
	assert.Equal(t, "Coach Rivera", st.HeadInjury.Witness)
	assert.Nil(t, st.HeadInjury.StartTime)
}

func TestOpen_RejectsDoubleOpen(t *testing.T) {
	m, _, _ := newTestMonitor(t)
	_, err := m.Open(context.Background(), "s1", "w", "", "staff")
	require.NoError(t, err)

	_, err = m.Open(context.Background(), "s1", "w2", "", "staff")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestRecordStage_EnforcesOrder(t *testing.T) {
	m, _, _ := newTestMonitor(t)
	_, err := m.Open(context.Background(), "s1", "w", "", "staff")
	require.NoError(t, err)

	// 15min before 0min is a skip.
	_, err = m.RecordStage(context.Background(), "s1", model.Stage15, nil, "", "staff")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	st, err := m.RecordStage(context.Background(), "s1", model.Stage0, map[string]bool{"Headache": false}, "", "staff")
	require.NoError(t, err)
	require.NotNil(t, st.HeadInjury.StartTime)
	assert.Equal(t, t0, *st.HeadInjury.StartTime)

	// Duplicate 0min is rejected.
	_, err = m.RecordStage(context.Background(), "s1", model.Stage0, nil, "", "staff")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	// 30min cannot skip past 15min.
	_, err = m.RecordStage(context.Background(), "s1", model.Stage30, nil, "", "staff")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	st, err = m.RecordStage(context.Background(), "s1", model.Stage15, nil, "", "staff")
	require.NoError(t, err)
	st, err = m.RecordStage(context.Background(), "s1", model.Stage30, nil, "", "staff")
	require.NoError(t, err)
	assert.True(t, st.HeadInjury.Complete())

	// Nothing left to record.
	_, err = m.RecordStage(context.Background(), "s1", model.Stage30, nil, "", "staff")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestRecordStage_ExplicitNoSymptomsIsPreserved(t *testing.T) {
	m, _, _ := newTestMonitor(t)
	_, err := m.Open(context.Background(), "s1", "w", "", "staff")
	require.NoError(t, err)

	sym := map[string]bool{"Headache": false, "Dizziness": false, "Nausea": false}
	st, err := m.RecordStage(context.Background(), "s1", model.Stage0, sym, "looked fine", "staff")
	require.NoError(t, err)

	log := st.HeadInjury.Log(model.Stage0)
	require.NotNil(t, log)
	// All-false is a real assessment, distinct from an absent map.
	assert.Len(t, log.Symptoms, 3)
	for name, seen := range log.Symptoms {
		assert.False(t, seen, "symptom %s", name)
	}
}

func TestNextDeadline_Progression(t *testing.T) {
	m, repo, mock := newTestMonitor(t)
	_, err := m.Open(context.Background(), "s1", "w", "", "staff")
	require.NoError(t, err)

	st, _ := repo.Get(context.Background(), "s1")
	_, _, ok := NextDeadline(st)
	assert.False(t, ok, "no deadline before the 0min log sets the origin")

	st, err = m.RecordStage(context.Background(), "s1", model.Stage0, nil, "", "staff")
	require.NoError(t, err)

	deadline, stage, ok := NextDeadline(st)
	require.True(t, ok)
	assert.Equal(t, model.Stage15, stage)
	assert.Equal(t, t0.Add(15*time.Minute), deadline)

	left, ok := TimeLeft(st, mock.Now().Add(10*time.Minute))
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, left)

	st, err = m.RecordStage(context.Background(), "s1", model.Stage15, nil, "", "staff")
	require.NoError(t, err)
	deadline, stage, ok = NextDeadline(st)
	require.True(t, ok)
	assert.Equal(t, model.Stage30, stage)
	assert.Equal(t, t0.Add(30*time.Minute), deadline)

	st, err = m.RecordStage(context.Background(), "s1", model.Stage30, nil, "", "staff")
	require.NoError(t, err)
	_, _, ok = NextDeadline(st)
	assert.False(t, ok, "monitoring finished, countdown must stop")
	_, ok = TimeLeft(st, mock.Now())
	assert.False(t, ok)
}

func TestCancel_FullReset(t *testing.T) {
	m, _, _ := newTestMonitor(t)
	_, err := m.Open(context.Background(), "s1", "w", "desc", "staff")
	require.NoError(t, err)
	_, err = m.RecordStage(context.Background(), "s1", model.Stage0, map[string]bool{"Headache": true}, "", "staff")
	require.NoError(t, err)

	st, err := m.Cancel(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, st.HeadInjury.Active)
	assert.Empty(t, st.HeadInjury.Logs)
	assert.Nil(t, st.HeadInjury.StartTime)
	assert.Empty(t, st.HeadInjury.Witness)
	assert.Empty(t, st.HeadInjury.Alerted)
}
