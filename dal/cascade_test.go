package dal

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestDeletingOnlyTargetDeletesRelationship(t *testing.T) {
	repo := newInitedRepo(t)
	mustAddAccounts(t, repo, 2)

	_, err := repo.SaveReply(1, []int64{2}, "hi")
	require.NoError(t, err)
	active, err := repo.GetActiveReplies()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, []int64{2}, active[0].Targets)

	require.NoError(t, repo.DeleteAccount(2))

	active, err = repo.GetActiveReplies()
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Empty(t, allReplyRows(t, repo))
}

func TestDeleteAccountCascade(t *testing.T) {
	repo := newInitedRepo(t)
	mustAddAccounts(t, repo, 4)

	_, err := repo.SaveReply(1, []int64{2}, "old, owned by 1")
	require.NoError(t, err)
	_, err = repo.SaveReply(1, []int64{3}, "owned by 1")
	require.NoError(t, err)
	_, err = repo.SaveReply(2, []int64{1, 3}, "loses target 1")
	require.NoError(t, err)
	_, err = repo.SaveReply(3, []int64{1}, "loses only target")
	require.NoError(t, err)
	_, err = repo.SaveReply(4, []int64{2}, "unrelated")
	require.NoError(t, err)
	require.NoError(t, repo.SaveScheduleList(1, "09:00", []string{"a", "b"}))
	require.NoError(t, repo.SaveScheduleSingle(2, "10:00", "c"))
	_, err = repo.AddExecutionLog(&ExecutionLog{AccountId: 1, LogType: LogTypePost, Status: LogStatusSuccess})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteAccount(1))

	ok, err := repo.DoesAccountExist(1)
	require.NoError(t, err)
	assert.False(t, ok)

	rows := allReplyRows(t, repo)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[0].Replier)
	assert.Equal(t, "[3]", rows[0].targetsRaw)
	assert.Equal(t, int64(4), rows[1].Replier)

	history, err := repo.GetScheduleHistory(1)
	require.NoError(t, err)
	assert.Empty(t, history)
	schedules, err := repo.GetActiveSchedules(nil)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, int64(2), schedules[0].AccountId)

	acctId := int64(1)
	logs, err := repo.GetExecutionLogs(&acctId, 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestDeleteMissingAccountChangesNothing(t *testing.T) {
	repo := newInitedRepo(t)
	mustAddAccounts(t, repo, 2)
	_, err := repo.SaveReply(1, []int64{2}, "hi")
	require.NoError(t, err)
	// Orphan that a sweep would remove
	mustExec(t, repo, `INSERT INTO reply_relationships (targets, replier, content, active, last_seen, created_at, updated_at)
		VALUES('[2]', 77, 'orphan', 1, NULL, 'x', 'x')`)

	assert.ErrorIs(t, repo.DeleteAccount(42), ErrNotFound)
	assert.Len(t, allReplyRows(t, repo), 2)
}

func TestDeleteAccountRunsSweep(t *testing.T) {
	repo := newInitedRepo(t)
	mustAddAccounts(t, repo, 3)
	_, err := repo.SaveReply(2, []int64{3}, "orphaned earlier")
	require.NoError(t, err)
	dropAccount(t, repo, 2)

	require.NoError(t, repo.DeleteAccount(1))
	assert.Empty(t, allReplyRows(t, repo))
}
