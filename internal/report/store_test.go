package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	r, err := s.Create(ctx, model.ParentReport{StudentID: "s1", Type: model.ReportBehavior, Message: "m", Method: model.MethodBoth})
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, model.ReportDraft, r.Status)

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)

	sent, err := s.MarkSent(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportSent, sent.Status)

	// Draft -> sent is the only move; a second send is invalid.
	_, err = s.MarkSent(ctx, r.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.MarkSent(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemoryStore_ListByStudentOrdered(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.Create(ctx, model.ParentReport{StudentID: "s1", Type: model.ReportInjury})
	require.NoError(t, err)
	_, err = s.Create(ctx, model.ParentReport{StudentID: "other", Type: model.ReportInjury})
	require.NoError(t, err)
	second, err := s.Create(ctx, model.ParentReport{StudentID: "s1", Type: model.ReportBehavior})
	require.NoError(t, err)

	got, err := s.ListByStudent(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
}
