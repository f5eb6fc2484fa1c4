package workflow

import (
	"context"

	"bitbucket.org/frotanube/fleet_backend/config"
	"bitbucket.org/frotanube/fleet_backend/models"
	"github.com/sirupsen/logrus"
)

// LedgerMismatch is one item whose stored status disagrees with the status
// its ledger replays to.
type LedgerMismatch struct {
	InventoryItemId int                        `json:"inventory_item_id"`
	PartId          int                        `json:"part_id"`
	StoredStatus    models.InventoryItemStatus `json:"stored_status"`
	ReplayedStatus  models.InventoryItemStatus `json:"replayed_status"`
	ReplayError     string                     `json:"replay_error,omitempty"`
}

// VerifyLedgerConsistency replays every item's ledger for the org and
// reports items whose stored status does not match. Intended to run on a
// schedule (nightly) or via an admin trigger.
func VerifyLedgerConsistency(ctx context.Context, logger *logrus.Logger, organizationId int) ([]LedgerMismatch, error) {
	db := config.GetDB()

	var items []*models.InventoryItem
	if err := db.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}

	var transactions []*models.InventoryTransaction
	if err := db.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		Order("id ASC").Find(&transactions).Error; err != nil {
		return nil, err
	}

	byItem := make(map[int][]*models.InventoryTransaction, len(items))
	for _, t := range transactions {
		byItem[t.InventoryItemId] = append(byItem[t.InventoryItemId], t)
	}

	var mismatches []LedgerMismatch
	for _, item := range items {
		replayed, err := models.ReplayItemStatus(byItem[item.ID])
		if err != nil {
			mismatches = append(mismatches, LedgerMismatch{
				InventoryItemId: item.ID,
				PartId:          item.PartId,
				StoredStatus:    item.Status,
				ReplayError:     err.Error(),
			})
			continue
		}
		if replayed != item.Status {
			mismatches = append(mismatches, LedgerMismatch{
				InventoryItemId: item.ID,
				PartId:          item.PartId,
				StoredStatus:    item.Status,
				ReplayedStatus:  replayed,
			})
		}
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"field":           "LedgerVerify",
			"organization_id": organizationId,
			"items":           len(items),
			"mismatches":      len(mismatches),
		}).Info("ledger consistency check completed")
	}
	return mismatches, nil
}
