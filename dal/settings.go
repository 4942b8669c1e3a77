package dal

import (
	"database/sql"
	"errors"
	"fmt"
)

const botConfigCols = `id, account_id, is_enabled, auto_post_enabled, post_interval_minutes,
	post_templates, hashtags, created_at, updated_at`

const defaultPostIntervalMinutes = 60

func insertBotConfig(q dbtx, accountId int64, now string) error {
	_, err := q.Exec(`INSERT OR IGNORE INTO bot_configs (account_id, created_at, updated_at) VALUES(?, ?, ?)`,
		accountId, now, now)
	return err
}

// ensureSettingsRows gives every account a bot config and creates the default
// user settings row. Databases from before these tables existed get theirs here.
func (repo *Repo) ensureSettingsRows() error {
	now := repo.clock.Now()
	return repo.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`INSERT INTO bot_configs (account_id, created_at, updated_at)
			SELECT id, ?, ? FROM accounts WHERE id NOT IN (SELECT account_id FROM bot_configs)`, now, now)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n != 0 {
			repo.logger.Infof("Created default bot config for %d accounts", n)
		}
		_, err = tx.Exec(`INSERT OR IGNORE INTO user_settings (user_id, created_at, updated_at) VALUES(?, ?, ?)`,
			DefaultUserId, now, now)
		return err
	})
}

func getBotConfig(q dbtx, accountId int64) (*BotConfig, error) {
	row := q.QueryRow(`SELECT `+botConfigCols+` FROM bot_configs WHERE account_id=?`, accountId)
	var bc BotConfig
	err := row.Scan(&bc.Id, &bc.AccountId, &bc.Enabled, &bc.AutoPostEnabled, &bc.PostIntervalMinutes,
		&bc.PostTemplates, &bc.Hashtags, &bc.CreatedAt, &bc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &bc, nil
}

// GetBotConfig returns the account's bot config. An account written by another
// tool without one gets the defaults on first access.
func (repo *Repo) GetBotConfig(accountId int64) (*BotConfig, error) {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	var res *BotConfig
	err := repo.inTx(func(tx *sql.Tx) error {
		ok, err := accountExists(tx, accountId)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		res, err = getBotConfig(tx, accountId)
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if err = insertBotConfig(tx, accountId, repo.clock.Now()); err != nil {
			return err
		}
		res, err = getBotConfig(tx, accountId)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get bot config for %d: %w", accountId, err)
	}
	return res, nil
}

// UpdateBotConfig stores the switches of bc, selected by bc.AccountId.
func (repo *Repo) UpdateBotConfig(bc *BotConfig) error {

	if bc.AccountId <= 0 {
		return NewValidationError(VeAccountIdMissing)
	}
	if bc.PostIntervalMinutes == 0 {
		bc.PostIntervalMinutes = defaultPostIntervalMinutes
	}
	if bc.PostIntervalMinutes < 0 {
		return NewValidationError(VeBotIntervalBad, "minutes", fmt.Sprint(bc.PostIntervalMinutes))
	}

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	err := repo.inTx(func(tx *sql.Tx) error {
		ok, err := accountExists(tx, bc.AccountId)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		now := repo.clock.Now()
		if err = insertBotConfig(tx, bc.AccountId, now); err != nil {
			return err
		}
		_, err = tx.Exec(`UPDATE bot_configs SET is_enabled=?, auto_post_enabled=?, post_interval_minutes=?,
			post_templates=?, hashtags=?, updated_at=? WHERE account_id=?`,
			bc.Enabled, bc.AutoPostEnabled, bc.PostIntervalMinutes, bc.PostTemplates, bc.Hashtags, now, bc.AccountId)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("update bot config for %d: %w", bc.AccountId, err)
	}
	return nil
}

func getUserSettings(q dbtx) (*UserSettings, error) {
	row := q.QueryRow(`SELECT id, user_id, plan_type, max_accounts, created_at, updated_at
		FROM user_settings WHERE user_id=?`, DefaultUserId)
	var us UserSettings
	err := row.Scan(&us.Id, &us.UserId, &us.PlanType, &us.MaxAccounts, &us.CreatedAt, &us.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &us, nil
}

func (repo *Repo) GetUserSettings() (*UserSettings, error) {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	us, err := getUserSettings(repo.db)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user settings: %w", err)
	}
	return us, err
}

func (repo *Repo) UpdateUserSettings(us *UserSettings) error {

	switch us.PlanType {
	case PlanStarter, PlanBasic, PlanPro:
	default:
		return NewValidationError(VePlanBad, "plan", us.PlanType)
	}
	if us.MaxAccounts < 0 {
		return NewValidationError(VeMaxAccountsBad, "max", fmt.Sprint(us.MaxAccounts))
	}

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	now := repo.clock.Now()
	res, err := repo.db.Exec(`UPDATE user_settings SET plan_type=?, max_accounts=?, updated_at=? WHERE user_id=?`,
		us.PlanType, us.MaxAccounts, now, DefaultUserId)
	if err != nil {
		return fmt.Errorf("update user settings: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	us.UserId = DefaultUserId
	us.UpdatedAt = now
	return nil
}

// checkAccountLimit fails when adding one more account would exceed the plan.
// Without a settings row there is no limit.
func checkAccountLimit(q dbtx) error {
	us, err := getUserSettings(q)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var count int
	if err = q.QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return err
	}
	if count >= us.MaxAccounts {
		return NewValidationError(VeAccountLimit, "max", fmt.Sprint(us.MaxAccounts), "plan", us.PlanType)
	}
	return nil
}
