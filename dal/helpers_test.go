package dal

import (
	"bot_manager/shared"
	"bot_manager/test/fakes"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
	"io"
	"path/filepath"
	"testing"
	"time"
)

var testDay = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	cfg := &shared.Config{DbFile: filepath.Join(t.TempDir(), "bots.db")}
	repo, err := NewRepo(cfg, log.New(io.Discard), fakes.NewStepClock(testDay))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo.(*Repo)
}

func newInitedRepo(t *testing.T) *Repo {
	t.Helper()
	repo := newTestRepo(t)
	require.NoError(t, repo.InitUpdateDb())
	return repo
}

func mustAddAccount(t *testing.T, repo *Repo, name string) int64 {
	t.Helper()
	id, err := repo.AddAccount(&Account{
		Name:              name,
		ApiKey:            "key-" + name,
		ApiKeySecret:      "key-secret-" + name,
		AccessToken:       "token-" + name,
		AccessTokenSecret: "token-secret-" + name,
	})
	require.NoError(t, err)
	return id
}

// mustAddAccounts creates accounts a1..aN; on a fresh database their ids are 1..N.
func mustAddAccounts(t *testing.T, repo *Repo, n int) []int64 {
	t.Helper()
	var res []int64
	for i := 1; i <= n; i++ {
		res = append(res, mustAddAccount(t, repo, "a"+idStr(int64(i))))
	}
	return res
}

// dropAccount deletes the account row only, as an outside writer would.
func dropAccount(t *testing.T, repo *Repo, id int64) {
	t.Helper()
	_, err := repo.db.Exec(`DELETE FROM accounts WHERE id=?`, id)
	require.NoError(t, err)
}

func mustExec(t *testing.T, repo *Repo, query string, args ...any) {
	t.Helper()
	_, err := repo.db.Exec(query, args...)
	require.NoError(t, err)
}

func allReplyRows(t *testing.T, repo *Repo) []*replyRow {
	t.Helper()
	rows, err := readReplyRows(repo.db, `ORDER BY id`)
	require.NoError(t, err)
	return rows
}

func validationCode(err error) string {
	if ve, ok := AsValidationError(err); ok {
		return ve.Code
	}
	return ""
}
