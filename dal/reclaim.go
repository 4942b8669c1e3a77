package dal

import (
	"database/sql"
	"fmt"
)

// Reclaim deletes relationships owned by missing accounts, then repairs the
// target sets of the remaining active rows. Running it twice in a row leaves
// the second run with nothing to do.
func (repo *Repo) Reclaim() (*ReclaimStats, error) {

	repo.muDb.Lock()
	defer repo.muDb.Unlock()

	var stats *ReclaimStats
	err := repo.inTx(func(tx *sql.Tx) error {
		var err error
		stats, err = repo.reclaim(tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reclaim: %w", err)
	}
	if stats.Total() != 0 || stats.Shrunk != 0 {
		repo.logger.Infof("Reclaimed orphans: %d deleted by owner, %d deleted by targets, %d shrunk",
			stats.DeletedByOwner, stats.DeletedByTargets, stats.Shrunk)
	}
	return stats, nil
}

func (repo *Repo) reclaim(q dbtx) (*ReclaimStats, error) {

	stats := ReclaimStats{}

	// Pass 1: owner gone, active or not
	res, err := q.Exec(`DELETE FROM reply_relationships WHERE replier NOT IN (SELECT id FROM accounts)`)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	stats.DeletedByOwner = int(n)

	// Pass 2: targets of active rows
	existing, err := allAccountIds(q)
	if err != nil {
		return nil, err
	}
	rows, err := readReplyRows(q, `WHERE active=1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var toDelete []int64
	toShrink := make(map[int64][]int64)
	for _, rr := range rows {
		targets, err := DecodeIds(rr.targetsRaw)
		if err != nil {
			repo.logger.Warnf("Reply relationship %d: unreadable targets, deleting: %v", rr.Id, err)
			toDelete = append(toDelete, rr.Id)
			continue
		}
		valid := filterIds(targets, func(id int64) bool { return existing[id] })
		if len(valid) == 0 {
			toDelete = append(toDelete, rr.Id)
		} else if len(valid) < len(targets) {
			toShrink[rr.Id] = valid
		}
	}

	if err = deleteByIds(q, "reply_relationships", toDelete); err != nil {
		return nil, err
	}
	now := repo.clock.Now()
	for id, targets := range toShrink {
		_, err = q.Exec(`UPDATE reply_relationships SET targets=?, updated_at=? WHERE id=?`,
			EncodeIds(targets), now, id)
		if err != nil {
			return nil, err
		}
	}
	stats.DeletedByTargets = len(toDelete)
	stats.Shrunk = len(toShrink)
	return &stats, nil
}
