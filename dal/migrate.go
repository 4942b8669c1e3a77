package dal

import (
	"database/sql"
	"fmt"
)

// Same layout as reply_relationships in scripts/create-01.sql.
const replyTableDDL = `CREATE TABLE %s (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    targets    TEXT    NOT NULL,
    replier    INTEGER NOT NULL,
    content    TEXT    NOT NULL,
    active     INTEGER NOT NULL DEFAULT 1,
    last_seen  TEXT,
    created_at TEXT    NOT NULL,
    updated_at TEXT    NOT NULL
)`

const migratedReplyTable = "reply_relationships_migrated"

const replyIndexDDL = `CREATE INDEX IF NOT EXISTS idx_reply_relationships_replier ON reply_relationships (replier)`

type legacyReplyRow struct {
	id         int64
	target     int64
	repliers   string
	content    string
	lastSeenId sql.NullString
	createdAt  sql.NullString
}

type scheduleColumn struct {
	name string
	ddl  string
}

// Columns that older schedule tables may lack, in the order they are added.
var scheduleUpgradeCols = []scheduleColumn{
	{"content_list", "content_list TEXT"},
	{"cursor", "cursor INTEGER NOT NULL DEFAULT 0"},
	{"times_spec", "times_spec TEXT NOT NULL DEFAULT ''"},
	{"active", "active INTEGER NOT NULL DEFAULT 1"},
}

// migrateLegacyReplies rewrites a reply table in the legacy layout, one row per
// (target, list of repliers), into one row per replier. It does nothing unless
// the table exists without a targets column.
func (repo *Repo) migrateLegacyReplies() error {

	exists, err := hasTable(repo.db, "reply_relationships")
	if err != nil || !exists {
		return err
	}
	cols, err := tableColumns(repo.db, "reply_relationships")
	if err != nil {
		return err
	}
	if cols["targets"] {
		return nil
	}
	repo.logger.Info("Reply relationships are in the legacy layout; migrating")

	var legacyCount, insertedCount, skippedCount int
	var demoted int64
	err = repo.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(fmt.Sprintf(replyTableDDL, migratedReplyTable)); err != nil {
			return err
		}

		legacy, err := readLegacyReplies(tx)
		if err != nil {
			return err
		}
		legacyCount = len(legacy)

		now := repo.clock.Now()
		for _, lr := range legacy {
			repliers, err := DecodeIds(lr.repliers)
			if err != nil {
				repo.logger.Warnf("Legacy reply row %d: unreadable replier list, skipping: %v", lr.id, err)
				skippedCount++
				continue
			}
			seen := map[int64]string{}
			if lr.lastSeenId.Valid && lr.lastSeenId.String != "" {
				seen[lr.target] = lr.lastSeenId.String
			}
			createdAt := now
			if lr.createdAt.Valid && lr.createdAt.String != "" {
				createdAt = lr.createdAt.String
			}
			for _, replier := range uniqueIds(repliers) {
				_, err = tx.Exec(`INSERT INTO `+migratedReplyTable+`
					(targets, replier, content, active, last_seen, created_at, updated_at)
					VALUES(?, ?, ?, 1, ?, ?, ?)`,
					EncodeIds([]int64{lr.target}), replier, lr.content, EncodeLastSeen(seen), createdAt, now)
				if err != nil {
					return err
				}
				insertedCount++
			}
		}

		if _, err = tx.Exec(`DROP TABLE reply_relationships`); err != nil {
			return err
		}
		if _, err = tx.Exec(`ALTER TABLE ` + migratedReplyTable + ` RENAME TO reply_relationships`); err != nil {
			return err
		}
		// Dropping the legacy table took its indexes along
		if _, err = tx.Exec(replyIndexDDL); err != nil {
			return err
		}

		// One active row per replier: the newest survives
		res, err := tx.Exec(`UPDATE reply_relationships SET active=0, updated_at=?
			WHERE active=1 AND id NOT IN (SELECT MAX(id) FROM reply_relationships WHERE active=1 GROUP BY replier)`,
			now)
		if err != nil {
			return err
		}
		demoted, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return err
	}
	repo.logger.Infof("Migrated %d legacy reply rows into %d rows; %d skipped, %d deactivated as duplicates",
		legacyCount, insertedCount, skippedCount, demoted)
	return nil
}

// Only active legacy rows carry over.
func readLegacyReplies(q dbtx) ([]*legacyReplyRow, error) {
	rows, err := q.Query(`SELECT id, target, repliers, content, last_seen_id, created_at
		FROM reply_relationships WHERE active=1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []*legacyReplyRow
	for rows.Next() {
		lr := legacyReplyRow{}
		if err = rows.Scan(&lr.id, &lr.target, &lr.repliers, &lr.content, &lr.lastSeenId, &lr.createdAt); err != nil {
			return nil, err
		}
		res = append(res, &lr)
	}
	return res, rows.Err()
}

// upgradeScheduleColumns adds the columns older schedule tables lack.
func (repo *Repo) upgradeScheduleColumns() error {

	exists, err := hasTable(repo.db, "schedule_sets")
	if err != nil || !exists {
		return err
	}
	cols, err := tableColumns(repo.db, "schedule_sets")
	if err != nil {
		return err
	}
	return repo.inTx(func(tx *sql.Tx) error {
		for _, col := range scheduleUpgradeCols {
			if cols[col.name] {
				continue
			}
			repo.logger.Infof("Adding column %s to schedule_sets", col.name)
			if _, err := tx.Exec(`ALTER TABLE schedule_sets ADD COLUMN ` + col.ddl); err != nil {
				return err
			}
		}
		return nil
	})
}
