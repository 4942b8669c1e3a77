package dal

import (
	"bot_manager/shared"
	"database/sql"
	"errors"
	"fmt"
)

const replyCols = `id, targets, replier, content, active, last_seen, created_at, updated_at`

type replyRow struct {
	ReplyRelationship
	targetsRaw  string
	lastSeenRaw sql.NullString
}

func readReplyRows(q dbtx, where string, args ...any) ([]*replyRow, error) {
	rows, err := q.Query(`SELECT `+replyCols+` FROM reply_relationships `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []*replyRow
	for rows.Next() {
		rr := replyRow{}
		err = rows.Scan(&rr.Id, &rr.targetsRaw, &rr.Replier, &rr.Content, &rr.Active, &rr.lastSeenRaw,
			&rr.CreatedAt, &rr.UpdatedAt)
		if err != nil {
			return nil, err
		}
		res = append(res, &rr)
	}
	return res, rows.Err()
}

func (repo *Repo) decodeLastSeenLenient(rr *replyRow) map[int64]string {
	seen, err := DecodeLastSeen(rr.lastSeenRaw.String)
	if err != nil {
		repo.logger.Warnf("Reply relationship %d: unreadable last-seen map, starting empty: %v", rr.Id, err)
		return map[int64]string{}
	}
	return seen
}

// SaveReply supersedes the replier's active relationship with a new one.
func (repo *Repo) SaveReply(replier int64, targets []int64, content string) (int64, error) {

	if shared.IsBlank(content) {
		return 0, NewValidationError(VeReplyContentEmpty)
	}
	if len(targets) == 0 {
		return 0, NewValidationError(VeReplyTargetsEmpty)
	}
	targets = uniqueIds(targets)

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	var newId int64
	err := repo.inTx(func(tx *sql.Tx) error {
		ok, err := accountExists(tx, replier)
		if err != nil {
			return err
		}
		if !ok {
			return NewValidationError(VeReplierMissing, "id", idStr(replier))
		}
		for _, target := range targets {
			if ok, err = accountExists(tx, target); err != nil {
				return err
			}
			if !ok {
				return NewValidationError(VeReplyTargetMissing, "id", idStr(target))
			}
		}
		now := repo.clock.Now()
		_, err = tx.Exec(`UPDATE reply_relationships SET active=0, updated_at=? WHERE replier=? AND active=1`,
			now, replier)
		if err != nil {
			return err
		}
		res, err := tx.Exec(`INSERT INTO reply_relationships
			(targets, replier, content, active, last_seen, created_at, updated_at)
			VALUES(?, ?, ?, 1, ?, ?, ?)`,
			EncodeIds(targets), replier, content, EncodeLastSeen(nil), now, now)
		if err != nil {
			return err
		}
		newId, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("save reply for %d: %w", replier, err)
	}
	return newId, nil
}

// GetActiveReplies returns active relationships whose replier exists, newest
// first. Targets that no longer resolve are dropped from the result and from
// the stored row; rows left without targets are deleted instead of returned.
func (repo *Repo) GetActiveReplies() ([]*ReplyRelationship, error) {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	var res []*ReplyRelationship
	err := repo.inTx(func(tx *sql.Tx) error {
		existing, err := allAccountIds(tx)
		if err != nil {
			return err
		}
		rows, err := readReplyRows(tx, `WHERE active=1 ORDER BY created_at DESC, id DESC`)
		if err != nil {
			return err
		}

		now := repo.clock.Now()
		var toDelete []int64
		toShrink := make(map[int64][]int64)
		for _, rr := range rows {
			if !existing[rr.Replier] {
				continue
			}
			targets, err := DecodeIds(rr.targetsRaw)
			if err != nil {
				repo.logger.Warnf("Reply relationship %d: dropping row with unreadable targets: %v", rr.Id, err)
				toDelete = append(toDelete, rr.Id)
				continue
			}
			valid := filterIds(targets, func(id int64) bool { return existing[id] })
			if len(valid) == 0 {
				toDelete = append(toDelete, rr.Id)
				continue
			}
			rel := rr.ReplyRelationship
			if len(valid) < len(targets) {
				toShrink[rel.Id] = valid
				rel.UpdatedAt = now
			}
			rel.Targets = valid
			rel.LastSeen = repo.decodeLastSeenLenient(rr)
			res = append(res, &rel)
		}

		if err = deleteByIds(tx, "reply_relationships", toDelete); err != nil {
			return err
		}
		for id, targets := range toShrink {
			_, err = tx.Exec(`UPDATE reply_relationships SET targets=?, updated_at=? WHERE id=?`,
				EncodeIds(targets), now, id)
			if err != nil {
				return err
			}
		}
		if len(toDelete) != 0 || len(toShrink) != 0 {
			repo.logger.Infof("Active reply read repaired rows: %d deleted, %d shrunk", len(toDelete), len(toShrink))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get active replies: %w", err)
	}
	return res, nil
}

// GetReplyHistory returns every row of a replier, superseded ones included,
// newest first, exactly as stored.
func (repo *Repo) GetReplyHistory(replier int64) ([]*ReplyRelationship, error) {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	rows, err := readReplyRows(repo.db, `WHERE replier=? ORDER BY created_at DESC, id DESC`, replier)
	if err != nil {
		return nil, fmt.Errorf("get reply history for %d: %w", replier, err)
	}
	res := make([]*ReplyRelationship, 0, len(rows))
	for _, rr := range rows {
		rel := rr.ReplyRelationship
		rel.Targets, _ = DecodeIds(rr.targetsRaw)
		rel.LastSeen = repo.decodeLastSeenLenient(rr)
		res = append(res, &rel)
	}
	return res, nil
}

func (repo *Repo) CountActiveReplies() (int, error) {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	return countActiveReplies(repo.db)
}

func countActiveReplies(q dbtx) (int, error) {
	row := q.QueryRow(`SELECT COUNT(*) FROM reply_relationships WHERE active=1`)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteReply removes the row whether or not it is active. Deleting a missing
// id is not an error.
func (repo *Repo) DeleteReply(id int64) error {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	if _, err := repo.db.Exec(`DELETE FROM reply_relationships WHERE id=?`, id); err != nil {
		return fmt.Errorf("delete reply %d: %w", id, err)
	}
	return nil
}

// RecordLastSeen stores the id of the last processed post of target in the
// replier's active relationship. An empty value clears the entry.
func (repo *Repo) RecordLastSeen(replier, target int64, value string) error {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	err := repo.inTx(func(tx *sql.Tx) error {
		rows, err := readReplyRows(tx, `WHERE replier=? AND active=1 ORDER BY id DESC LIMIT 1`, replier)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return ErrNotFound
		}
		rr := rows[0]
		seen := repo.decodeLastSeenLenient(rr)
		if value == "" {
			delete(seen, target)
		} else {
			seen[target] = value
		}
		_, err = tx.Exec(`UPDATE reply_relationships SET last_seen=?, updated_at=? WHERE id=?`,
			EncodeLastSeen(seen), repo.clock.Now(), rr.Id)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("record last seen for %d: %w", replier, err)
	}
	return nil
}
