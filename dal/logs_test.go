package dal

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func TestExecutionLogs(t *testing.T) {
	repo := newInitedRepo(t)
	mustAddAccounts(t, repo, 2)

	long := strings.Repeat("word ", 60)
	entry := &ExecutionLog{AccountId: 1, LogType: LogTypePost, Message: "posted", PostId: "p1",
		PostContent: long, Status: LogStatusSuccess}
	id, err := repo.AddExecutionLog(entry)
	require.NoError(t, err)
	assert.Equal(t, id, entry.Id)
	assert.True(t, strings.HasSuffix(entry.PostContent, "…"))

	for i := 0; i < 3; i++ {
		_, err = repo.AddExecutionLog(&ExecutionLog{AccountId: 2, LogType: LogTypeError, Message: "boom",
			Status: LogStatusError})
		require.NoError(t, err)
	}

	_, err = repo.AddExecutionLog(&ExecutionLog{AccountId: 9, LogType: LogTypePost, Status: LogStatusSuccess})
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := repo.GetExecutionLogs(nil, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, int64(2), all[0].AccountId)
	assert.Equal(t, "p1", all[3].PostId)

	acctId := int64(2)
	limited, err := repo.GetExecutionLogs(&acctId, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestDashboardStats(t *testing.T) {
	repo := newInitedRepo(t)
	ids := mustAddAccounts(t, repo, 3)
	acct, err := repo.GetAccount(ids[0])
	require.NoError(t, err)
	acct.Status = StatusActive
	require.NoError(t, repo.UpdateAccount(acct))

	for _, lt := range []string{LogTypePost, LogTypePost, LogTypeError} {
		_, err = repo.AddExecutionLog(&ExecutionLog{AccountId: ids[1], LogType: lt, Status: LogStatusSuccess})
		require.NoError(t, err)
	}
	mustExec(t, repo, `INSERT INTO execution_logs (account_id, log_type, status, created_at)
		VALUES(?, ?, ?, '2026-02-27T10:00:00.000000Z')`, ids[1], LogTypePost, LogStatusSuccess)

	stats, err := repo.GetDashboardStats(testDay.Format("2006-01-02"))
	require.NoError(t, err)
	assert.Equal(t, DashboardStats{
		TotalAccounts:  3,
		ActiveAccounts: 1,
		TodayPosts:     2,
		TotalPosts:     3,
		TodayErrors:    1,
	}, *stats)
}
