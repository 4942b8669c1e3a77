package dal

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestInitUpdateDbOnEmptyFile(t *testing.T) {
	repo := newInitedRepo(t)

	var ver int
	require.NoError(t, repo.db.QueryRow(`SELECT val FROM sys_params WHERE name='schema_ver'`).Scan(&ver))
	assert.Equal(t, schemaVer, ver)
	for _, table := range []string{"accounts", "reply_relationships", "schedule_sets", "execution_logs",
		"bot_configs", "user_settings"} {
		ok, err := hasTable(repo.db, table)
		assert.NoError(t, err)
		assert.True(t, ok, table)
	}

	// Second run finds everything in place
	assert.NoError(t, repo.InitUpdateDb())
}

func TestAddAccountAppliesDefaults(t *testing.T) {
	repo := newInitedRepo(t)

	id := mustAddAccount(t, repo, "bot one")
	acct, err := repo.GetAccount(id)
	require.NoError(t, err)
	assert.Equal(t, "bot one", acct.Name)
	assert.Equal(t, DefaultCategory, acct.Category)
	assert.Equal(t, StatusInactive, acct.Status)
	assert.Equal(t, "token-secret-bot one", acct.AccessTokenSecret)
	assert.NotEmpty(t, acct.CreatedAt)
}

func TestAddAccountRejectsBadInput(t *testing.T) {
	repo := newInitedRepo(t)
	mustAddAccount(t, repo, "taken")

	cases := []struct {
		acct Account
		code string
	}{
		{Account{Name: "  ", ApiKey: "k", ApiKeySecret: "s", AccessToken: "t", AccessTokenSecret: "u"}, VeAccountNameInvalid},
		{Account{Name: "x", ApiKey: "k", ApiKeySecret: "", AccessToken: "t", AccessTokenSecret: "u"}, VeAccountSecretEmpty},
		{Account{Name: "x", ApiKey: "k", ApiKeySecret: "s", AccessToken: "t", AccessTokenSecret: "u", Status: "zombie"}, VeAccountStatusBad},
		{Account{Name: "taken", ApiKey: "k", ApiKeySecret: "s", AccessToken: "t", AccessTokenSecret: "u"}, VeAccountNameTaken},
	}
	for _, c := range cases {
		_, err := repo.AddAccount(&c.acct)
		assert.Equal(t, c.code, validationCode(err))
	}

	accts, err := repo.GetAccounts()
	assert.NoError(t, err)
	assert.Len(t, accts, 1)
}

func TestUpdateAccount(t *testing.T) {
	repo := newInitedRepo(t)
	id := mustAddAccount(t, repo, "first")
	mustAddAccount(t, repo, "second")

	acct, err := repo.GetAccount(id)
	require.NoError(t, err)
	acct.Status = StatusActive
	acct.Category = "Basic"
	assert.NoError(t, repo.UpdateAccount(acct))

	acct, err = repo.GetAccount(id)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, acct.Status)
	assert.Equal(t, "Basic", acct.Category)

	acct.Name = "second"
	assert.Equal(t, VeAccountNameTaken, validationCode(repo.UpdateAccount(acct)))

	acct.Id = 0
	assert.Equal(t, VeAccountIdMissing, validationCode(repo.UpdateAccount(acct)))

	acct.Id = 99
	acct.Name = "ghost"
	assert.ErrorIs(t, repo.UpdateAccount(acct), ErrNotFound)
}

func TestGetAccounts(t *testing.T) {
	repo := newInitedRepo(t)

	_, err := repo.GetAccount(1)
	assert.ErrorIs(t, err, ErrNotFound)

	mustAddAccounts(t, repo, 3)
	accts, err := repo.GetAccounts()
	require.NoError(t, err)
	require.Len(t, accts, 3)
	assert.Equal(t, "a3", accts[0].Name)
	assert.Equal(t, "a1", accts[2].Name)

	ok, err := repo.DoesAccountExist(2)
	assert.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.DoesAccountExist(42)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateAccountKeepsBlankSecrets(t *testing.T) {
	repo := newInitedRepo(t)
	id := mustAddAccount(t, repo, "herald")

	update := &Account{Id: id, Name: "renamed", Status: StatusActive}
	require.NoError(t, repo.UpdateAccount(update))

	acct, err := repo.GetAccount(id)
	require.NoError(t, err)
	assert.Equal(t, "renamed", acct.Name)
	assert.Equal(t, StatusActive, acct.Status)
	assert.Equal(t, "key-herald", acct.ApiKey)
	assert.Equal(t, "key-secret-herald", acct.ApiKeySecret)
	assert.Equal(t, "token-herald", acct.AccessToken)
	assert.Equal(t, "token-secret-herald", acct.AccessTokenSecret)

	update = &Account{Id: id, Name: "renamed", ApiKeySecret: "rotated"}
	require.NoError(t, repo.UpdateAccount(update))
	acct, err = repo.GetAccount(id)
	require.NoError(t, err)
	assert.Equal(t, "rotated", acct.ApiKeySecret)
	assert.Equal(t, "key-herald", acct.ApiKey)
	assert.Equal(t, StatusActive, acct.Status)
	assert.Equal(t, DefaultCategory, acct.Category)
}
