package dal

import (
	"database/sql"
	"errors"
	"fmt"
)

// DeleteAccount removes an account together with everything that refers to it:
// relationships it owns, its membership in other relationships' target sets,
// its schedules and its execution logs. A reclaim sweep runs in the same
// transaction before commit.
func (repo *Repo) DeleteAccount(id int64) error {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	var owned int64
	var pruned, emptied int
	var stats *ReclaimStats
	err := repo.inTx(func(tx *sql.Tx) error {
		ok, err := accountExists(tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		res, err := tx.Exec(`DELETE FROM reply_relationships WHERE replier=?`, id)
		if err != nil {
			return err
		}
		owned, _ = res.RowsAffected()

		if pruned, emptied, err = repo.removeTarget(tx, id); err != nil {
			return err
		}

		// Schedules and execution logs follow through ON DELETE CASCADE
		if _, err = tx.Exec(`DELETE FROM accounts WHERE id=?`, id); err != nil {
			return err
		}

		stats, err = repo.reclaim(tx)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete account %d: %w", id, err)
	}
	repo.logger.Infof("Deleted account %d: %d owned relationships, %d pruned, %d emptied; reclaim removed %d",
		id, owned, pruned, emptied, stats.Total())
	return nil
}

// removeTarget strips id from the target set of every active relationship.
// Rows with undecodable targets are left for the reclaim sweep.
func (repo *Repo) removeTarget(q dbtx, id int64) (pruned, emptied int, err error) {
	rows, err := readReplyRows(q, `WHERE active=1`)
	if err != nil {
		return 0, 0, err
	}
	now := repo.clock.Now()
	var toDelete []int64
	for _, rr := range rows {
		targets, decErr := DecodeIds(rr.targetsRaw)
		if decErr != nil {
			continue
		}
		rest := filterIds(targets, func(t int64) bool { return t != id })
		if len(rest) == len(targets) {
			continue
		}
		if len(rest) == 0 {
			toDelete = append(toDelete, rr.Id)
			continue
		}
		_, err = q.Exec(`UPDATE reply_relationships SET targets=?, updated_at=? WHERE id=?`,
			EncodeIds(rest), now, rr.Id)
		if err != nil {
			return 0, 0, err
		}
		pruned++
	}
	if err = deleteByIds(q, "reply_relationships", toDelete); err != nil {
		return 0, 0, err
	}
	return pruned, len(toDelete), nil
}
