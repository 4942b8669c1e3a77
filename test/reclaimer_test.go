package test

import (
	"bot_manager/logic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestReclaimerSweepsPeriodically(t *testing.T) {
	ctrl, h := setupHarness(t)
	defer ctrl.Finish()
	h.addAccount(t, "a1")
	h.addAccount(t, "a2")
	_, err := h.cmds.SaveReply(1, []int64{2}, "hi")
	require.NoError(t, err)

	h.cfg.ReclaimIntervalSec = 1
	rec := logic.NewReclaimer(h.cfg, h.logger, h.cmds)
	rec.Start()
	defer rec.Stop()

	h.dropAccountExternally(t, 2)

	assert.Eventually(t, func() bool {
		count, err := h.repo.CountActiveReplies()
		return err == nil && count == 0
	}, 5*time.Second, 100*time.Millisecond)
}

func TestReclaimerDisabled(t *testing.T) {
	ctrl, h := setupHarness(t)
	defer ctrl.Finish()

	rec := logic.NewReclaimer(h.cfg, h.logger, h.cmds)
	rec.Start()
	// Stopping a loop that never started returns at once
	rec.Stop()
	rec.Stop()
}
