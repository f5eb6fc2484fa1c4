package models

import (
	"fmt"

	"gorm.io/gorm"
)

// acquirePartAllocationLock serializes item identifier allocation per part
// across instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that will do the allocation transaction.
func acquirePartAllocationLock(tx *gorm.DB, partId int) error {
	lockName := fmt.Sprintf("item_alloc:%d", partId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire allocation lock for part_id=%d", partId)
	}
	return nil
}

func releasePartAllocationLock(tx *gorm.DB, partId int) {
	lockName := fmt.Sprintf("item_alloc:%d", partId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
