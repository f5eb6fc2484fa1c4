package models

import (
	"context"
	"sort"
	"time"

	"bitbucket.org/frotanube/fleet_backend/config"
	"bitbucket.org/frotanube/fleet_backend/utils"
	"gorm.io/gorm"
)

// InventoryTransaction is the append-only ledger. Rows are never updated and
// only removed together with their part when it leaves the catalog; an item's
// current status must always be reproducible by replaying its entries in
// order. RelatedUserId names a second person involved in the movement, such
// as the driver a part was handed to.
type InventoryTransaction struct {
	ID              int                      `gorm:"primary_key" json:"id"`
	OrganizationId  int                      `gorm:"index;not null" json:"organization_id"`
	PartId          int                      `gorm:"index;not null" json:"part_id"`
	InventoryItemId int                      `gorm:"index;not null" json:"inventory_item_id"`
	Type            InventoryTransactionType `gorm:"size:30;not null" json:"type"`
	Quantity        int                      `gorm:"not null;default:1" json:"quantity"`
	VehicleId       *int                     `gorm:"index" json:"vehicle_id"`
	UserId          *int                     `json:"user_id"`
	RelatedUserId   *int                     `json:"related_user_id"`
	Notes           string                   `gorm:"size:500" json:"notes"`
	TransactionDate time.Time                `gorm:"not null" json:"transaction_date"`
	CreatedAt       time.Time                `gorm:"autoCreateTime" json:"created_at"`

	Vehicle *Vehicle `gorm:"foreignKey:VehicleId" json:"vehicle,omitempty"`
}

func (t InventoryTransaction) GetOrganizationId() int {
	return t.OrganizationId
}

// logTransaction appends a ledger entry inside the caller's transaction.
func logTransaction(tx *gorm.DB, ctx context.Context, record *InventoryTransaction) error {
	if record.TransactionDate.IsZero() {
		record.TransactionDate = time.Now().UTC()
	}
	if record.UserId == nil {
		if userId, ok := utils.GetUserIdFromContext(ctx); ok && userId != 0 {
			record.UserId = &userId
		}
	}
	return tx.WithContext(ctx).Create(record).Error
}

// GetTransactionsByPartId lists a part's ledger entries, newest first.
func GetTransactionsByPartId(ctx context.Context, partId int, limit int, offset int) ([]*InventoryTransaction, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	if err := utils.ValidateResourceId[Part](ctx, organizationId, partId); err != nil {
		return nil, utils.NewNotFoundError("part not found")
	}

	if limit <= 0 || limit > config.SearchLimit {
		limit = config.SearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	db := config.GetDB()
	var transactions []*InventoryTransaction
	if err := db.WithContext(ctx).
		Where("organization_id = ? AND part_id = ?", organizationId, partId).
		Order("id DESC").Limit(limit).Offset(offset).
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// GetTransactionsByVehicleId lists the ledger entries recorded against a
// vehicle (installations, end-of-life while installed), newest first.
func GetTransactionsByVehicleId(ctx context.Context, vehicleId int, limit int, offset int) ([]*InventoryTransaction, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	if err := utils.ValidateResourceId[Vehicle](ctx, organizationId, vehicleId); err != nil {
		return nil, utils.NewNotFoundError("vehicle not found")
	}

	if limit <= 0 || limit > config.SearchLimit {
		limit = config.SearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	db := config.GetDB()
	var transactions []*InventoryTransaction
	if err := db.WithContext(ctx).
		Where("organization_id = ? AND vehicle_id = ?", organizationId, vehicleId).
		Order("id DESC").Limit(limit).Offset(offset).
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// ReplayItemStatus folds an item's ledger entries into its resulting status.
// Pure; entries may arrive in any order, they are replayed by id.
func ReplayItemStatus(transactions []*InventoryTransaction) (InventoryItemStatus, error) {
	ordered := make([]*InventoryTransaction, len(transactions))
	copy(ordered, transactions)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var status InventoryItemStatus
	for _, t := range ordered {
		switch t.Type {
		case TransactionTypeEntry, TransactionTypeInitialAdjustment:
			if status != "" {
				return "", utils.NewValidationError("ledger has an entry after the item already exists")
			}
			status = ItemStatusAvailable
		case TransactionTypeInstallation:
			if status != ItemStatusAvailable {
				return "", utils.NewValidationError("ledger installs an item that is not available")
			}
			status = ItemStatusInUse
		case TransactionTypeEndOfLife, TransactionTypeDiscard:
			if status == "" || status.IsTerminal() {
				return "", utils.NewValidationError("ledger retires an item that cannot be retired")
			}
			status = ItemStatusEndOfLife
		default:
			return "", utils.NewValidationError("unknown ledger entry type")
		}
	}
	if status == "" {
		return "", utils.NewValidationError("ledger has no entries for the item")
	}
	return status, nil
}
