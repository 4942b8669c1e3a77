package dal

import (
	"bot_manager/shared"
	"fmt"
	"strings"
)

const defaultLogLimit = 100

func (repo *Repo) AddExecutionLog(entry *ExecutionLog) (int64, error) {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	entry.CreatedAt = repo.clock.Now()
	entry.PostContent = shared.TruncateWithEllipsis(entry.PostContent, shared.MaxLogContentLen)
	res, err := repo.db.Exec(`INSERT INTO execution_logs
		(account_id, log_type, message, post_id, post_content, status, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		entry.AccountId, entry.LogType, entry.Message, entry.PostId, entry.PostContent, entry.Status, entry.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("add execution log: %w", err)
	}
	if entry.Id, err = res.LastInsertId(); err != nil {
		return 0, fmt.Errorf("add execution log: %w", err)
	}
	return entry.Id, nil
}

// GetExecutionLogs returns the newest log entries, all accounts or one.
func (repo *Repo) GetExecutionLogs(accountId *int64, limit int) ([]*ExecutionLog, error) {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	if limit <= 0 {
		limit = defaultLogLimit
	}
	query := `SELECT id, account_id, log_type, message, post_id, post_content, status, created_at
		FROM execution_logs`
	var args []any
	if accountId != nil {
		query += ` WHERE account_id=?`
		args = append(args, *accountId)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := repo.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("get execution logs: %w", err)
	}
	defer rows.Close()

	var res []*ExecutionLog
	for rows.Next() {
		e := ExecutionLog{}
		err = rows.Scan(&e.Id, &e.AccountId, &e.LogType, &e.Message, &e.PostId, &e.PostContent, &e.Status, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("get execution logs: %w", err)
		}
		res = append(res, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("get execution logs: %w", err)
	}
	return res, nil
}

// GetDashboardStats counts accounts and posting outcomes. day is a date in the
// form 2006-01-02 and selects the entries counted as today's.
func (repo *Repo) GetDashboardStats(day string) (*DashboardStats, error) {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	dayPattern := strings.ReplaceAll(day, "%", "") + "%"
	var res DashboardStats
	counters := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&res.TotalAccounts, `SELECT COUNT(*) FROM accounts`, nil},
		{&res.ActiveAccounts, `SELECT COUNT(*) FROM accounts WHERE status=?`, []any{StatusActive}},
		{&res.TodayPosts, `SELECT COUNT(*) FROM execution_logs WHERE log_type=? AND created_at LIKE ?`,
			[]any{LogTypePost, dayPattern}},
		{&res.TotalPosts, `SELECT COUNT(*) FROM execution_logs WHERE log_type=?`, []any{LogTypePost}},
		{&res.TodayErrors, `SELECT COUNT(*) FROM execution_logs WHERE log_type=? AND created_at LIKE ?`,
			[]any{LogTypeError, dayPattern}},
	}
	for _, c := range counters {
		if err := repo.db.QueryRow(c.query, c.args...).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("get dashboard stats: %w", err)
		}
	}
	return &res, nil
}
