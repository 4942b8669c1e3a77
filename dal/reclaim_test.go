package dal

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestReclaimCounts(t *testing.T) {
	repo := newInitedRepo(t)
	mustAddAccounts(t, repo, 5)

	_, err := repo.SaveReply(1, []int64{2, 3}, "old version of 1")
	require.NoError(t, err)
	_, err = repo.SaveReply(1, []int64{2}, "owner goes away")
	require.NoError(t, err)
	_, err = repo.SaveReply(2, []int64{3, 4}, "shrinks")
	require.NoError(t, err)
	_, err = repo.SaveReply(4, []int64{3}, "empties")
	require.NoError(t, err)
	_, err = repo.SaveReply(5, []int64{2}, "untouched")
	require.NoError(t, err)
	mustExec(t, repo, `INSERT INTO reply_relationships (targets, replier, content, active, last_seen, created_at, updated_at)
		VALUES('[2', 5, 'corrupt', 1, NULL, 'x', 'x')`)

	dropAccount(t, repo, 1)
	dropAccount(t, repo, 3)

	stats, err := repo.Reclaim()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DeletedByOwner)
	assert.Equal(t, 2, stats.DeletedByTargets)
	assert.Equal(t, 1, stats.Shrunk)
	assert.Equal(t, 4, stats.Total())

	rows := allReplyRows(t, repo)
	require.Len(t, rows, 2)
	assert.Equal(t, "[4]", rows[0].targetsRaw)
	assert.Equal(t, "untouched", rows[1].Content)
}

func TestReclaimLeavesIntegrityAndIsIdempotent(t *testing.T) {
	repo := newInitedRepo(t)
	ids := mustAddAccounts(t, repo, 8)

	for _, replier := range ids {
		var targets []int64
		for _, target := range ids {
			if target != replier && (target+replier)%3 != 0 {
				targets = append(targets, target)
			}
		}
		_, err := repo.SaveReply(replier, targets, "hi")
		require.NoError(t, err)
	}
	for _, gone := range []int64{2, 3, 5, 7} {
		dropAccount(t, repo, gone)
	}

	_, err := repo.Reclaim()
	require.NoError(t, err)

	existing, err := allAccountIds(repo.db)
	require.NoError(t, err)
	for _, rr := range allReplyRows(t, repo) {
		assert.True(t, existing[rr.Replier], "replier %d", rr.Replier)
		if !rr.Active {
			continue
		}
		targets, err := DecodeIds(rr.targetsRaw)
		require.NoError(t, err)
		assert.NotEmpty(t, targets)
		for _, target := range targets {
			assert.True(t, existing[target], "target %d of row %d", target, rr.Id)
		}
	}

	again, err := repo.Reclaim()
	require.NoError(t, err)
	assert.Equal(t, 0, again.Total())
	assert.Equal(t, 0, again.Shrunk)
}

func TestReclaimIgnoresTargetsOfInactiveRows(t *testing.T) {
	repo := newInitedRepo(t)
	mustAddAccounts(t, repo, 3)
	_, err := repo.SaveReply(1, []int64{3}, "superseded")
	require.NoError(t, err)
	_, err = repo.SaveReply(1, []int64{2}, "current")
	require.NoError(t, err)
	dropAccount(t, repo, 3)

	stats, err := repo.Reclaim()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total())
	assert.Len(t, allReplyRows(t, repo), 2)
}
