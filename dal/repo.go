package dal

import (
	"bot_manager/shared"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"github.com/mattn/go-sqlite3"
	"sync"
)

const schemaVer = 2

//go:embed scripts/*
var scripts embed.FS

type IRepo interface {
	InitUpdateDb() error
	Close() error

	AddAccount(acct *Account) (int64, error)
	UpdateAccount(acct *Account) error
	GetAccount(id int64) (*Account, error)
	GetAccounts() ([]*Account, error)
	DoesAccountExist(id int64) (bool, error)
	DeleteAccount(id int64) error
	GetBotConfig(accountId int64) (*BotConfig, error)
	UpdateBotConfig(bc *BotConfig) error
	GetUserSettings() (*UserSettings, error)
	UpdateUserSettings(us *UserSettings) error

	SaveReply(replier int64, targets []int64, content string) (int64, error)
	GetActiveReplies() ([]*ReplyRelationship, error)
	GetReplyHistory(replier int64) ([]*ReplyRelationship, error)
	CountActiveReplies() (int, error)
	DeleteReply(id int64) error
	RecordLastSeen(replier, target int64, value string) error
	Reclaim() (*ReclaimStats, error)

	SaveScheduleList(accountId int64, timesSpec string, contentList []string) error
	SaveScheduleSingle(accountId int64, timesSpec, content string) error
	AdvanceSchedule(accountId int64) (*ScheduleSet, error)
	GetActiveSchedule(accountId int64) (*ScheduleSet, error)
	GetActiveSchedules(accountId *int64) ([]*ScheduleSet, error)
	GetScheduleHistory(accountId int64) ([]*ScheduleSet, error)

	AddExecutionLog(entry *ExecutionLog) (int64, error)
	GetExecutionLogs(accountId *int64, limit int) ([]*ExecutionLog, error)
	GetDashboardStats(day string) (*DashboardStats, error)
}

// Repo serializes every logical operation through muDb. Operations that issue
// more than one statement also run inside a single transaction.
type Repo struct {
	logger shared.ILogger
	clock  shared.IClock
	db     *sql.DB
	muDb   sync.Mutex
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func NewRepo(cfg *shared.Config, logger shared.ILogger, clock shared.IClock) (IRepo, error) {

	// _synchronous=1 is "normal"
	// Single connection: a statement issued on repo.db while a transaction is open would block.
	cstr := "file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_synchronous=1&_busy_timeout=5000&_foreign_keys=1"
	db, err := sql.Open("sqlite3", fmt.Sprintf(cstr, cfg.DbFile))
	if err != nil {
		logger.Errorf("Failed to open/create DB file: %s: %v", cfg.DbFile, err)
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", cfg.DbFile, err)
	}

	repo := Repo{
		logger: logger,
		clock:  clock,
		db:     db,
	}
	return &repo, nil
}

func (repo *Repo) Close() error {
	return repo.db.Close()
}

func (repo *Repo) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := repo.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// InitUpdateDb brings any database, including one written with the legacy reply
// layout, to the current schema, then sweeps orphaned reply relationships.
func (repo *Repo) InitUpdateDb() error {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	if err := repo.migrateLegacyReplies(); err != nil {
		return fmt.Errorf("migrate legacy replies: %w", err)
	}
	if err := repo.runScripts(); err != nil {
		return err
	}
	if err := repo.upgradeScheduleColumns(); err != nil {
		return fmt.Errorf("upgrade schedule columns: %w", err)
	}
	if err := repo.ensureSettingsRows(); err != nil {
		return fmt.Errorf("create settings rows: %w", err)
	}

	var stats *ReclaimStats
	err := repo.inTx(func(tx *sql.Tx) error {
		var err error
		stats, err = repo.reclaim(tx)
		return err
	})
	if err != nil {
		return fmt.Errorf("startup reclaim: %w", err)
	}
	repo.logger.Infof("Startup reclaim: %d deleted by owner, %d deleted by targets, %d shrunk",
		stats.DeletedByOwner, stats.DeletedByTargets, stats.Shrunk)
	return nil
}

func (repo *Repo) runScripts() error {

	dbVer := 0
	sysParamsExists, err := hasTable(repo.db, "sys_params")
	if err != nil {
		repo.logger.Errorf("Failed to check if 'sys_params' table exists: %v", err)
		return err
	}
	if !sysParamsExists {
		repo.logger.Printf("Database appears to be empty; current schema version is %d", schemaVer)
	} else {
		row := repo.db.QueryRow("SELECT val FROM sys_params WHERE name='schema_ver'")
		if err = row.Scan(&dbVer); err != nil {
			repo.logger.Errorf("Failed to query schema version: %v", err)
			return err
		}
		repo.logger.Printf("Database is at version %d; current schema version is %d", dbVer, schemaVer)
	}
	for i := dbVer; i < schemaVer; i += 1 {
		nextVer := i + 1
		fn := fmt.Sprintf("scripts/create-%02d.sql", nextVer)
		repo.logger.Printf("Running %s", fn)
		var sqlBytes []byte
		if sqlBytes, err = scripts.ReadFile(fn); err != nil {
			return fmt.Errorf("read init script %s: %w", fn, err)
		}
		if _, err = repo.db.Exec(string(sqlBytes)); err != nil {
			return fmt.Errorf("execute init script %s: %w", fn, err)
		}
		_, err = repo.db.Exec("UPDATE sys_params SET val=? WHERE name='schema_ver'", nextVer)
		if err != nil {
			return fmt.Errorf("update schema_ver to %d: %w", nextVer, err)
		}
	}
	return nil
}

func hasTable(q dbtx, name string) (bool, error) {
	row := q.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count != 0, nil
}

func tableColumns(q dbtx, table string) (map[string]bool, error) {
	rows, err := q.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := make(map[string]bool)
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, err
		}
		res[name] = true
	}
	return res, rows.Err()
}

func isConstraintErr(err error, extCode sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrConstraint && sqliteErr.ExtendedCode == extCode
}

func isUniqueViolation(err error) bool {
	// 19 / 2067
	return isConstraintErr(err, sqlite3.ErrConstraintUnique)
}

func isForeignKeyViolation(err error) bool {
	// 19 / 787
	return isConstraintErr(err, sqlite3.ErrConstraintForeignKey)
}

func collectIds(rows *sql.Rows) ([]int64, error) {
	defer rows.Close()
	var res []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, rows.Err()
}

func deleteByIds(q dbtx, table string, ids []int64) error {
	for _, id := range ids {
		if _, err := q.Exec(fmt.Sprintf("DELETE FROM %s WHERE id=?", table), id); err != nil {
			return err
		}
	}
	return nil
}
