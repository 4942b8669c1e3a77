package test

import (
	"bot_manager/dal"
	"bot_manager/logic"
	"bot_manager/shared"
	"bot_manager/test/fakes"
	"bot_manager/test/mocks"
	"bot_manager/texts"
	"database/sql"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"io"
	"path/filepath"
	"testing"
	"time"
)

// Collectors register with the default prometheus registry, so one instance
// serves every test in the package.
var testMetrics = logic.NewMetrics()

var testDay = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type harness struct {
	cfg           *shared.Config
	logger        shared.ILogger
	clock         *fakes.StepClock
	repo          dal.IRepo
	mockPublisher *mocks.MockIPublisher
	poster        logic.IPoster
	cmds          logic.ICommands
}

func setupHarness(t *testing.T) (*gomock.Controller, *harness) {

	ctrl := gomock.NewController(t)

	h := &harness{
		cfg: &shared.Config{
			DbFile: filepath.Join(t.TempDir(), "bots.db"),
			Secrets: shared.Secrets{
				ApiKeys:     []string{"test-api-key"},
				MetricsAuth: "test-metrics-secret",
			},
		},
		logger:        log.New(io.Discard),
		clock:         fakes.NewStepClock(testDay),
		mockPublisher: mocks.NewMockIPublisher(ctrl),
	}

	repo, err := dal.NewRepo(h.cfg, h.logger, h.clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.InitUpdateDb())
	h.repo = repo

	h.poster = logic.NewPoster(h.logger, h.repo, h.mockPublisher, testMetrics)
	h.cmds = logic.NewCommands(h.logger, h.clock, texts.NewTexts(), h.repo, h.poster, testMetrics)

	return ctrl, h
}

func (h *harness) addAccount(t *testing.T, name string) int64 {
	t.Helper()
	id, err := h.repo.AddAccount(&dal.Account{
		Name:              name,
		ApiKey:            "k",
		ApiKeySecret:      "ks",
		AccessToken:       "t",
		AccessTokenSecret: "ts",
	})
	require.NoError(t, err)
	return id
}

// dropAccountExternally deletes an account row through a separate connection,
// the way another tool writing to the same file would, bypassing the cascade.
func (h *harness) dropAccountExternally(t *testing.T, id int64) {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+h.cfg.DbFile+"?_busy_timeout=5000")
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`DELETE FROM accounts WHERE id=?`, id)
	require.NoError(t, err)
}
