package test

import (
	"bot_manager/logic"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"testing"
)

func asCommandError(t *testing.T, err error) *logic.CommandError {
	t.Helper()
	var cmdErr *logic.CommandError
	require.True(t, errors.As(err, &cmdErr), "not a command error: %v", err)
	return cmdErr
}

func TestReclaimOrphansReportsActiveDelta(t *testing.T) {
	ctrl, h := setupHarness(t)
	defer ctrl.Finish()
	for _, name := range []string{"a1", "a2", "a3", "a4"} {
		h.addAccount(t, name)
	}
	_, err := h.cmds.SaveReply(1, []int64{2}, "stays")
	require.NoError(t, err)
	_, err = h.cmds.SaveReply(3, []int64{4}, "loses its only target")
	require.NoError(t, err)
	_, err = h.cmds.SaveReply(2, []int64{3, 4}, "shrinks")
	require.NoError(t, err)

	h.dropAccountExternally(t, 4)

	removed, err := h.cmds.ReclaimOrphans()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = h.cmds.ReclaimOrphans()
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	rels, err := h.cmds.ListReplies()
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, []int64{3}, rels[0].Targets)
}

func TestCommandErrorsCarryUserText(t *testing.T) {
	ctrl, h := setupHarness(t)
	defer ctrl.Finish()
	h.addAccount(t, "a1")

	_, err := h.cmds.SaveReply(1, []int64{99}, "hi")
	cmdErr := asCommandError(t, err)
	assert.Equal(t, logic.KindInvalid, cmdErr.Kind)
	assert.Equal(t, "Target account 99 does not exist.", cmdErr.Error())

	err = h.cmds.DeleteAccount(5)
	cmdErr = asCommandError(t, err)
	assert.Equal(t, logic.KindNotFound, cmdErr.Kind)
	assert.Equal(t, "The requested account was not found.", cmdErr.Msg)

	err = h.cmds.RecordLastSeen(1, 2, "x")
	assert.Equal(t, logic.KindNotFound, asCommandError(t, err).Kind)

	_, err = h.cmds.AdvanceSchedule(1)
	assert.Equal(t, "The requested active schedule was not found.", asCommandError(t, err).Msg)
}

func TestDeleteAccountThroughCommands(t *testing.T) {
	ctrl, h := setupHarness(t)
	defer ctrl.Finish()
	h.addAccount(t, "a1")
	h.addAccount(t, "a2")

	_, err := h.cmds.SaveReply(1, []int64{2}, "hi")
	require.NoError(t, err)
	require.NoError(t, h.cmds.DeleteAccount(2))

	rels, err := h.cmds.ListReplies()
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestDashboardCountsToday(t *testing.T) {
	ctrl, h := setupHarness(t)
	defer ctrl.Finish()
	id := h.addAccount(t, "a1")
	h.addAccount(t, "a2")

	h.mockPublisher.EXPECT().Publish(gomock.Any(), "one").Return("p1", nil)
	h.mockPublisher.EXPECT().Publish(gomock.Any(), "two").Return("", errors.New("nope"))
	_, err := h.cmds.PostNow(id, "one")
	require.NoError(t, err)
	_, err = h.cmds.PostNow(id, "two")
	require.NoError(t, err)

	stats, err := h.cmds.GetDashboard()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalAccounts)
	assert.Equal(t, 0, stats.ActiveAccounts)
	assert.Equal(t, 1, stats.TodayPosts)
	assert.Equal(t, 1, stats.TotalPosts)
	assert.Equal(t, 1, stats.TodayErrors)
}
