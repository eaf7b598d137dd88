package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSeedStudentsDisabled(t *testing.T) {
	svc := NewSeedService(&stubStudentRepo{}, false, "token", zerolog.Nop())

	_, err := svc.SeedStudents(context.Background(), "token", []string{"Kim Minji"})
	require.ErrorIs(t, err, ErrSeedDisabled)
}

func TestSeedStudentsRejectsBadToken(t *testing.T) {
	svc := NewSeedService(&stubStudentRepo{}, true, "expected", zerolog.Nop())

	_, err := svc.SeedStudents(context.Background(), "wrong", []string{"Kim Minji"})
	require.ErrorIs(t, err, ErrSeedUnauthorized)
}

func TestSeedStudentsRejectsEmptyConfiguredToken(t *testing.T) {
	svc := NewSeedService(&stubStudentRepo{}, true, "", zerolog.Nop())

	_, err := svc.SeedStudents(context.Background(), "", []string{"Kim Minji"})
	require.ErrorIs(t, err, ErrSeedUnauthorized)
}

func TestSeedStudentsTrimsAndUpserts(t *testing.T) {
	students := &stubStudentRepo{affected: 2}
	svc := NewSeedService(students, true, "token", zerolog.Nop())

	affected, err := svc.SeedStudents(context.Background(), "token", []string{" Kim Minji ", "", "Lee Jun"})
	require.NoError(t, err)
	require.Equal(t, int64(2), affected)

	require.Len(t, students.upserted, 1)
	require.Len(t, students.upserted[0], 2)
	require.Equal(t, "Kim Minji", students.upserted[0][0].Name)
	require.Equal(t, "Lee Jun", students.upserted[0][1].Name)
}
