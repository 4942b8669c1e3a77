package dal

import (
	"bot_manager/shared"
	"database/sql"
	"errors"
	"fmt"
)

const scheduleCols = `id, account_id, primary_content, content_list, cursor, times_spec, active, created_at, updated_at`

type scheduleRow struct {
	ScheduleSet
	listRaw sql.NullString
}

func readScheduleRows(q dbtx, where string, args ...any) ([]*scheduleRow, error) {
	rows, err := q.Query(`SELECT `+scheduleCols+` FROM schedule_sets `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []*scheduleRow
	for rows.Next() {
		sr := scheduleRow{}
		err = rows.Scan(&sr.Id, &sr.AccountId, &sr.PrimaryContent, &sr.listRaw, &sr.Cursor, &sr.TimesSpec,
			&sr.Active, &sr.CreatedAt, &sr.UpdatedAt)
		if err != nil {
			return nil, err
		}
		res = append(res, &sr)
	}
	return res, rows.Err()
}

// toSchedule decodes the content list; an unreadable list is treated as absent.
func (repo *Repo) toSchedule(sr *scheduleRow) *ScheduleSet {
	ss := sr.ScheduleSet
	list, err := DecodeStrings(sr.listRaw.String)
	if err != nil {
		repo.logger.Warnf("Schedule %d: unreadable content list, using primary content: %v", sr.Id, err)
		list = nil
	}
	if len(list) == 0 {
		list = nil
	}
	ss.ContentList = list
	return &ss
}

func (repo *Repo) SaveScheduleList(accountId int64, timesSpec string, contentList []string) error {
	var toInsert []string
	if !shared.IsBlank(timesSpec) && len(contentList) != 0 {
		toInsert = contentList
	}
	return repo.saveSchedule(accountId, timesSpec, toInsert, "")
}

func (repo *Repo) SaveScheduleSingle(accountId int64, timesSpec, content string) error {
	if shared.IsBlank(timesSpec) || shared.IsBlank(content) {
		content = ""
	}
	return repo.saveSchedule(accountId, timesSpec, nil, content)
}

// saveSchedule deactivates the account's active schedule, then inserts a new
// one from list, or from single if list is empty. With both empty the account
// is left without an active schedule.
func (repo *Repo) saveSchedule(accountId int64, timesSpec string, list []string, single string) error {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	err := repo.inTx(func(tx *sql.Tx) error {
		ok, err := accountExists(tx, accountId)
		if err != nil {
			return err
		}
		if !ok {
			return NewValidationError(VeScheduleAcctMissing, "id", idStr(accountId))
		}
		now := repo.clock.Now()
		_, err = tx.Exec(`UPDATE schedule_sets SET active=0, updated_at=? WHERE account_id=? AND active=1`,
			now, accountId)
		if err != nil {
			return err
		}

		var primary string
		var listVal sql.NullString
		if len(list) != 0 {
			primary = list[0]
			listVal = sql.NullString{String: EncodeStrings(list), Valid: true}
		} else if single != "" {
			primary = single
		} else {
			return nil
		}
		_, err = tx.Exec(`INSERT INTO schedule_sets
			(account_id, primary_content, content_list, cursor, times_spec, active, created_at, updated_at)
			VALUES(?, ?, ?, 0, ?, 1, ?, ?)`,
			accountId, primary, listVal, timesSpec, now, now)
		return err
	})
	if err != nil {
		return fmt.Errorf("save schedule for %d: %w", accountId, err)
	}
	return nil
}

// AdvanceSchedule moves the cursor of the account's active schedule to the next
// list item, wrapping at the end, and returns the updated schedule. Schedules
// without a content list are returned unchanged.
func (repo *Repo) AdvanceSchedule(accountId int64) (*ScheduleSet, error) {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	var res *ScheduleSet
	err := repo.inTx(func(tx *sql.Tx) error {
		ss, err := repo.getActiveSchedule(tx, accountId)
		if err != nil {
			return err
		}
		res = ss
		if len(ss.ContentList) == 0 {
			return nil
		}
		ss.Cursor = nextCursor(ss.Cursor, len(ss.ContentList))
		ss.UpdatedAt = repo.clock.Now()
		_, err = tx.Exec(`UPDATE schedule_sets SET cursor=?, updated_at=? WHERE id=?`,
			ss.Cursor, ss.UpdatedAt, ss.Id)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("advance schedule for %d: %w", accountId, err)
	}
	return res, nil
}

// nextCursor steps past cursor, wrapping at n. A stored cursor outside [0, n)
// counts as 0, matching CurrentContent.
func nextCursor(cursor, n int) int {
	if cursor < 0 || cursor >= n {
		cursor = 0
	}
	return (cursor + 1) % n
}

func (repo *Repo) GetActiveSchedule(accountId int64) (*ScheduleSet, error) {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	return repo.getActiveSchedule(repo.db, accountId)
}

func (repo *Repo) getActiveSchedule(q dbtx, accountId int64) (*ScheduleSet, error) {
	rows, err := readScheduleRows(q, `WHERE account_id=? AND active=1 ORDER BY id DESC LIMIT 1`, accountId)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return repo.toSchedule(rows[0]), nil
}

// GetActiveSchedules returns active schedules, newest first, for one account or
// for all of them when accountId is nil.
func (repo *Repo) GetActiveSchedules(accountId *int64) ([]*ScheduleSet, error) {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	var rows []*scheduleRow
	var err error
	if accountId == nil {
		rows, err = readScheduleRows(repo.db, `WHERE active=1 ORDER BY created_at DESC, id DESC`)
	} else {
		rows, err = readScheduleRows(repo.db, `WHERE active=1 AND account_id=? ORDER BY created_at DESC, id DESC`,
			*accountId)
	}
	if err != nil {
		return nil, fmt.Errorf("get active schedules: %w", err)
	}
	res := make([]*ScheduleSet, 0, len(rows))
	for _, sr := range rows {
		res = append(res, repo.toSchedule(sr))
	}
	return res, nil
}

func (repo *Repo) GetScheduleHistory(accountId int64) ([]*ScheduleSet, error) {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	rows, err := readScheduleRows(repo.db, `WHERE account_id=? ORDER BY created_at DESC, id DESC`, accountId)
	if err != nil {
		return nil, fmt.Errorf("get schedule history for %d: %w", accountId, err)
	}
	res := make([]*ScheduleSet, 0, len(rows))
	for _, sr := range rows {
		res = append(res, repo.toSchedule(sr))
	}
	return res, nil
}
