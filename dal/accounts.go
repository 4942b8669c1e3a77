package dal

import (
	"bot_manager/shared"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

const accountCols = `id, name, api_key, api_key_secret, access_token, access_token_secret,
	category, status, created_at, updated_at`

func validateAccount(acct *Account) error {
	if err := shared.ValidateAccountName(acct.Name); err != nil {
		return NewValidationError(VeAccountNameInvalid, "name", acct.Name, "reason", err.Error())
	}
	secrets := []struct{ field, val string }{
		{"api_key", acct.ApiKey},
		{"api_key_secret", acct.ApiKeySecret},
		{"access_token", acct.AccessToken},
		{"access_token_secret", acct.AccessTokenSecret},
	}
	for _, s := range secrets {
		if shared.IsBlank(s.val) {
			return NewValidationError(VeAccountSecretEmpty, "field", s.field)
		}
	}
	if acct.Status != StatusActive && acct.Status != StatusInactive {
		return NewValidationError(VeAccountStatusBad, "status", acct.Status)
	}
	return nil
}

func applyAccountDefaults(acct *Account) {
	if shared.IsBlank(acct.Category) {
		acct.Category = DefaultCategory
	}
	if acct.Status == "" {
		acct.Status = StatusInactive
	}
}

// AddAccount inserts acct with a default bot config and fills in its id and
// timestamps. The plan's account limit is enforced here.
func (repo *Repo) AddAccount(acct *Account) (int64, error) {

	applyAccountDefaults(acct)
	if err := validateAccount(acct); err != nil {
		return 0, err
	}

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	now := repo.clock.Now()
	var id int64
	err := repo.inTx(func(tx *sql.Tx) error {
		if err := checkAccountLimit(tx); err != nil {
			return err
		}
		res, err := tx.Exec(`INSERT INTO accounts
			(name, api_key, api_key_secret, access_token, access_token_secret, category, status, created_at, updated_at)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			acct.Name, acct.ApiKey, acct.ApiKeySecret, acct.AccessToken, acct.AccessTokenSecret,
			acct.Category, acct.Status, now, now)
		if err != nil {
			if isUniqueViolation(err) {
				return NewValidationError(VeAccountNameTaken, "name", acct.Name)
			}
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return insertBotConfig(tx, id, now)
	})
	if err != nil {
		if IsValidationError(err) {
			return 0, err
		}
		return 0, fmt.Errorf("add account: %w", err)
	}
	acct.Id = id
	acct.CreatedAt = now
	acct.UpdatedAt = now
	return id, nil
}

// UpdateAccount overwrites the account's fields. Blank credentials, category and
// status keep their stored values, so callers that never saw the secrets can still
// rename an account or change its status.
func (repo *Repo) UpdateAccount(acct *Account) error {

	if acct.Id <= 0 {
		return NewValidationError(VeAccountIdMissing)
	}

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	stored, err := getAccount(repo.db, acct.Id)
	if err != nil {
		return err
	}
	keepStoredValues(acct, stored)
	applyAccountDefaults(acct)
	if err = validateAccount(acct); err != nil {
		return err
	}

	now := repo.clock.Now()
	res, err := repo.db.Exec(`UPDATE accounts SET name=?, api_key=?, api_key_secret=?, access_token=?,
		access_token_secret=?, category=?, status=?, updated_at=? WHERE id=?`,
		acct.Name, acct.ApiKey, acct.ApiKeySecret, acct.AccessToken, acct.AccessTokenSecret,
		acct.Category, acct.Status, now, acct.Id)
	if err != nil {
		if isUniqueViolation(err) {
			return NewValidationError(VeAccountNameTaken, "name", acct.Name)
		}
		return fmt.Errorf("update account %d: %w", acct.Id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	acct.CreatedAt = stored.CreatedAt
	acct.UpdatedAt = now
	return nil
}

func keepStoredValues(acct, stored *Account) {
	fields := []struct {
		dst *string
		src string
	}{
		{&acct.ApiKey, stored.ApiKey},
		{&acct.ApiKeySecret, stored.ApiKeySecret},
		{&acct.AccessToken, stored.AccessToken},
		{&acct.AccessTokenSecret, stored.AccessTokenSecret},
		{&acct.Category, stored.Category},
		{&acct.Status, stored.Status},
	}
	for _, f := range fields {
		if shared.IsBlank(*f.dst) {
			*f.dst = f.src
		}
	}
}

func (repo *Repo) GetAccount(id int64) (*Account, error) {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	return getAccount(repo.db, id)
}

func getAccount(q dbtx, id int64) (*Account, error) {
	row := q.QueryRow(`SELECT `+accountCols+` FROM accounts WHERE id=?`, id)
	var a Account
	err := row.Scan(&a.Id, &a.Name, &a.ApiKey, &a.ApiKeySecret, &a.AccessToken, &a.AccessTokenSecret,
		&a.Category, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account %d: %w", id, err)
	}
	return &a, nil
}

// GetAccounts returns all accounts, newest first.
func (repo *Repo) GetAccounts() ([]*Account, error) {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	rows, err := repo.db.Query(`SELECT ` + accountCols + ` FROM accounts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var res []*Account
	for rows.Next() {
		a := Account{}
		err = rows.Scan(&a.Id, &a.Name, &a.ApiKey, &a.ApiKeySecret, &a.AccessToken, &a.AccessTokenSecret,
			&a.Category, &a.Status, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		res = append(res, &a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return res, nil
}

func (repo *Repo) DoesAccountExist(id int64) (bool, error) {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	return accountExists(repo.db, id)
}

// The two functions below are the account existence oracle the relationship
// code consults. Called with a *sql.Tx they see the transaction's own writes.

func accountExists(q dbtx, id int64) (bool, error) {
	row := q.QueryRow(`SELECT COUNT(*) FROM accounts WHERE id=?`, id)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count != 0, nil
}

func allAccountIds(q dbtx) (map[int64]bool, error) {
	rows, err := q.Query(`SELECT id FROM accounts`)
	if err != nil {
		return nil, err
	}
	ids, err := collectIds(rows)
	if err != nil {
		return nil, err
	}
	res := make(map[int64]bool, len(ids))
	for _, id := range ids {
		res[id] = true
	}
	return res, nil
}

func idStr(id int64) string {
	return strconv.FormatInt(id, 10)
}
