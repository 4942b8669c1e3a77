package dal

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestAdvanceCyclesThroughList(t *testing.T) {
	repo := newInitedRepo(t)
	mustAddAccounts(t, repo, 1)
	require.NoError(t, repo.SaveScheduleList(1, "09:00,18:00", []string{"a", "b", "c"}))

	ss, err := repo.GetActiveSchedule(1)
	require.NoError(t, err)
	assert.Equal(t, 0, ss.Cursor)
	assert.Equal(t, "a", ss.PrimaryContent)
	assert.Equal(t, "a", ss.CurrentContent())

	var cursors []int
	for i := 0; i < 3; i++ {
		ss, err = repo.AdvanceSchedule(1)
		require.NoError(t, err)
		cursors = append(cursors, ss.Cursor)
	}
	assert.Equal(t, []int{1, 2, 0}, cursors)

	ss, err = repo.AdvanceSchedule(1)
	require.NoError(t, err)
	assert.Equal(t, 1, ss.Cursor)
	assert.Equal(t, "b", ss.CurrentContent())

	stored, err := repo.GetActiveSchedule(1)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Cursor)
}

func TestRotationPeriodEqualsListLength(t *testing.T) {
	repo := newInitedRepo(t)
	mustAddAccounts(t, repo, 1)
	list := []string{"p", "q", "r", "s", "t"}
	require.NoError(t, repo.SaveScheduleList(1, "12:00", list))

	for i := 0; i < len(list); i++ {
		_, err := repo.AdvanceSchedule(1)
		require.NoError(t, err)
	}
	ss, err := repo.GetActiveSchedule(1)
	require.NoError(t, err)
	assert.Equal(t, 0, ss.Cursor)

	ss, err = repo.AdvanceSchedule(1)
	require.NoError(t, err)
	assert.Equal(t, 1, ss.Cursor)
}

func TestSaveScheduleSupersedes(t *testing.T) {
	repo := newInitedRepo(t)
	mustAddAccounts(t, repo, 1)
	require.NoError(t, repo.SaveScheduleList(1, "09:00", []string{"a", "b"}))
	_, err := repo.AdvanceSchedule(1)
	require.NoError(t, err)
	require.NoError(t, repo.SaveScheduleList(1, "10:00", []string{"x", "y", "z"}))

	ss, err := repo.GetActiveSchedule(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, ss.ContentList)
	assert.Equal(t, 0, ss.Cursor)
	assert.Equal(t, "10:00", ss.TimesSpec)

	history, err := repo.GetScheduleHistory(1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[1].Active)
	assert.Equal(t, 1, history[1].Cursor)
}

func TestEmptyInputClearsSchedule(t *testing.T) {
	repo := newInitedRepo(t)
	mustAddAccounts(t, repo, 1)

	require.NoError(t, repo.SaveScheduleList(1, "09:00", []string{"a"}))
	require.NoError(t, repo.SaveScheduleList(1, "09:00", nil))
	_, err := repo.GetActiveSchedule(1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.SaveScheduleSingle(1, "09:00", "solo"))
	require.NoError(t, repo.SaveScheduleSingle(1, " ", "solo"))
	_, err = repo.GetActiveSchedule(1)
	assert.ErrorIs(t, err, ErrNotFound)

	history, err := repo.GetScheduleHistory(1)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSingleContentScheduleDoesNotRotate(t *testing.T) {
	repo := newInitedRepo(t)
	mustAddAccounts(t, repo, 1)
	require.NoError(t, repo.SaveScheduleSingle(1, "08:15", "only this"))

	ss, err := repo.AdvanceSchedule(1)
	require.NoError(t, err)
	assert.Equal(t, 0, ss.Cursor)
	assert.Nil(t, ss.ContentList)
	assert.Equal(t, "only this", ss.CurrentContent())
}

func TestCorruptContentListIsTreatedAsAbsent(t *testing.T) {
	repo := newInitedRepo(t)
	mustAddAccounts(t, repo, 1)
	require.NoError(t, repo.SaveScheduleList(1, "09:00", []string{"a", "b"}))
	mustExec(t, repo, `UPDATE schedule_sets SET content_list='[oops' WHERE account_id=1`)

	ss, err := repo.AdvanceSchedule(1)
	require.NoError(t, err)
	assert.Equal(t, 0, ss.Cursor)
	assert.Equal(t, "a", ss.CurrentContent())
}

func TestOutOfRangeCursorRestartsRotation(t *testing.T) {
	repo := newInitedRepo(t)
	mustAddAccounts(t, repo, 1)
	require.NoError(t, repo.SaveScheduleList(1, "09:00", []string{"a", "b", "c"}))

	for _, stored := range []int{-5, 7} {
		mustExec(t, repo, `UPDATE schedule_sets SET cursor=? WHERE account_id=1 AND active=1`, stored)
		ss, err := repo.GetActiveSchedule(1)
		require.NoError(t, err)
		assert.Equal(t, "a", ss.CurrentContent())

		ss, err = repo.AdvanceSchedule(1)
		require.NoError(t, err)
		assert.Equal(t, 1, ss.Cursor, "stored cursor %d", stored)
		ss, err = repo.GetActiveSchedule(1)
		require.NoError(t, err)
		assert.Equal(t, 1, ss.Cursor)
	}
}

func TestScheduleErrors(t *testing.T) {
	repo := newInitedRepo(t)
	mustAddAccounts(t, repo, 1)

	_, err := repo.AdvanceSchedule(1)
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.SaveScheduleList(5, "09:00", []string{"a"})
	assert.Equal(t, VeScheduleAcctMissing, validationCode(err))
	err = repo.SaveScheduleSingle(5, "09:00", "a")
	assert.Equal(t, VeScheduleAcctMissing, validationCode(err))
}

func TestActiveSchedulesFilter(t *testing.T) {
	repo := newInitedRepo(t)
	mustAddAccounts(t, repo, 2)
	require.NoError(t, repo.SaveScheduleSingle(1, "09:00", "one"))
	require.NoError(t, repo.SaveScheduleSingle(2, "09:00", "two"))

	all, err := repo.GetActiveSchedules(nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[0].AccountId)

	acctId := int64(1)
	some, err := repo.GetActiveSchedules(&acctId)
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "one", some[0].PrimaryContent)
}
