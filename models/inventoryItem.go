package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/frotanube/fleet_backend/config"
	"bitbucket.org/frotanube/fleet_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryItem is one serialized unit of a part. ItemIdentifier is the
// sequential serial within the part; allocation serializes on a per-part
// advisory lock and the composite unique index is the hard guard underneath.
type InventoryItem struct {
	ID             int                 `gorm:"primary_key" json:"id"`
	OrganizationId int                 `gorm:"index;not null" json:"organization_id"`
	PartId         int                 `gorm:"uniqueIndex:idx_part_item;not null" json:"part_id"`
	ItemIdentifier int                 `gorm:"uniqueIndex:idx_part_item;not null" json:"item_identifier"`
	Status         InventoryItemStatus `gorm:"size:20;not null;index" json:"status"`
	VehicleId      *int                `gorm:"index" json:"vehicle_id,omitempty"`
	InstalledAt    *time.Time          `json:"installed_at,omitempty"`
	IsActive       *bool               `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"autoUpdateTime" json:"updated_at"`

	Part *Part `gorm:"foreignKey:PartId;constraint:OnDelete:CASCADE" json:"part,omitempty"`
}

func (i InventoryItem) GetOrganizationId() int {
	return i.OrganizationId
}

// createInventoryItems allocates quantity sequential item identifiers for
// the part and writes one ledger entry per item, all inside the caller's
// transaction. Callers racing on an existing part must hold the part's
// allocation lock across commit; CreatePart skips it because nobody else
// can see the new part id yet.
func createInventoryItems(tx *gorm.DB, ctx context.Context, part *Part, quantity int, transactionType InventoryTransactionType, notes string) ([]*InventoryItem, error) {
	if quantity <= 0 {
		return nil, utils.NewValidationError("quantity must be positive")
	}

	var maxIdentifier int
	if err := tx.WithContext(ctx).Model(&InventoryItem{}).
		Where("part_id = ?", part.ID).
		Select("COALESCE(MAX(item_identifier), 0)").
		Scan(&maxIdentifier).Error; err != nil {
		return nil, err
	}

	items := make([]*InventoryItem, 0, quantity)
	for i := 1; i <= quantity; i++ {
		item := InventoryItem{
			OrganizationId: part.OrganizationId,
			PartId:         part.ID,
			ItemIdentifier: maxIdentifier + i,
			Status:         ItemStatusAvailable,
			IsActive:       utils.NewTrue(),
		}
		if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
			return nil, err
		}
		if err := logTransaction(tx, ctx, &InventoryTransaction{
			OrganizationId:  part.OrganizationId,
			PartId:          part.ID,
			InventoryItemId: item.ID,
			Type:            transactionType,
			Quantity:        1,
			Notes:           notes,
		}); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, nil
}

type NewInventoryItems struct {
	PartId   int    `json:"part_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
	Notes    string `json:"notes"`
}

// AddInventoryItems receives stock: quantity new AVAILABLE items with ENTRY
// ledger entries.
func AddInventoryItems(ctx context.Context, input *NewInventoryItems) ([]*InventoryItem, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	part, err := utils.FetchModel[Part](ctx, organizationId, input.PartId)
	if err != nil {
		return nil, err
	}

	// Pin one connection so the advisory lock is held across the commit;
	// GET_LOCK is connection-scoped and does not expire with the transaction.
	db := config.GetDB()
	var items []*InventoryItem
	err = db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := acquirePartAllocationLock(conn, part.ID); err != nil {
			return err
		}
		defer releasePartAllocationLock(conn, part.ID)

		return conn.Transaction(func(tx *gorm.DB) error {
			items, err = createInventoryItems(tx, ctx, part, input.Quantity, TransactionTypeEntry, input.Notes)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ItemTransition describes one requested status change. Discard marks an
// END_OF_LIFE transition as a component discard, which changes the ledger
// entry type recorded for it.
type ItemTransition struct {
	NewStatus     InventoryItemStatus `json:"new_status" binding:"required"`
	VehicleId     int                 `json:"vehicle_id"`
	RelatedUserId int                 `json:"related_user_id"`
	Date          time.Time           `json:"date"`
	Notes         string              `json:"notes"`
	Discard       bool                `json:"discard"`
}

// LockNextAvailableItem picks the AVAILABLE item with the lowest identifier
// (FIFO) and row-locks it for the transaction. An exhausted part is a
// business rule violation, not a missing resource.
func LockNextAvailableItem(tx *gorm.DB, ctx context.Context, organizationId int, partId int) (*InventoryItem, error) {
	var item InventoryItem
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND part_id = ? AND status = ?", organizationId, partId, ItemStatusAvailable).
		Order("item_identifier ASC").
		First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NewValidationError("insufficient stock")
		}
		return nil, err
	}
	return &item, nil
}

// LockItemById row-locks one item of the org for the transaction.
func LockItemById(tx *gorm.DB, ctx context.Context, organizationId int, id int) (*InventoryItem, error) {
	var item InventoryItem
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND id = ?", organizationId, id).
		First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NewNotFoundError("inventory item not found")
		}
		return nil, err
	}
	return &item, nil
}

// TransitionItem is the lifecycle engine core. It validates the transition,
// updates the item, appends the ledger entry and, depending on the target
// status, registers the vehicle component, projects the cost onto the
// vehicle and queues a low stock notification. The caller owns the
// transaction and must hold a row lock on the item.
func TransitionItem(tx *gorm.DB, ctx context.Context, item *InventoryItem, input *ItemTransition) (*InventoryTransaction, error) {
	if !CanTransition(item.Status, input.NewStatus) {
		return nil, utils.NewValidationError(
			fmt.Sprintf("cannot change item status from %s to %s", item.Status, input.NewStatus))
	}

	transactionType, err := transactionTypeForTransition(item.Status, input.NewStatus)
	if err != nil {
		return nil, utils.NewValidationError(err.Error())
	}
	if input.Discard {
		if input.NewStatus != ItemStatusEndOfLife {
			return nil, utils.NewValidationError("only end of life transitions can be discards")
		}
		transactionType = TransactionTypeDiscard
	}

	part, err := utils.FetchModel[Part](ctx, item.OrganizationId, item.PartId)
	if err != nil {
		return nil, err
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	previousStatus := item.Status
	updates := map[string]interface{}{"Status": input.NewStatus}
	if input.NewStatus == ItemStatusInUse && input.VehicleId != 0 {
		updates["VehicleId"] = input.VehicleId
		updates["InstalledAt"] = date
	}
	if err := tx.WithContext(ctx).Model(item).Updates(updates).Error; err != nil {
		return nil, err
	}
	item.Status = input.NewStatus
	if input.NewStatus == ItemStatusInUse && input.VehicleId != 0 {
		item.VehicleId = &input.VehicleId
		item.InstalledAt = &date
	}

	record := InventoryTransaction{
		OrganizationId:  item.OrganizationId,
		PartId:          item.PartId,
		InventoryItemId: item.ID,
		Type:            transactionType,
		Quantity:        1,
		Notes:           input.Notes,
		TransactionDate: date,
	}
	if input.VehicleId != 0 {
		record.VehicleId = &input.VehicleId
	}
	if input.RelatedUserId != 0 {
		if err := utils.ValidateResourceId[User](ctx, item.OrganizationId, input.RelatedUserId); err != nil {
			return nil, utils.NewNotFoundError("related user not found")
		}
		record.RelatedUserId = &input.RelatedUserId
	}
	if err := logTransaction(tx, ctx, &record); err != nil {
		return nil, err
	}

	switch input.NewStatus {
	case ItemStatusInUse:
		if input.VehicleId == 0 {
			return nil, utils.NewValidationError("vehicle id is required to install an item")
		}
		if err := utils.ValidateResourceId[Vehicle](ctx, item.OrganizationId, input.VehicleId); err != nil {
			return nil, utils.NewNotFoundError("vehicle not found")
		}
		if err := registerComponentInstallation(tx, ctx, part, item, &record, input.VehicleId, date); err != nil {
			return nil, err
		}
	case ItemStatusEndOfLife:
		if previousStatus == ItemStatusInUse {
			if err := deactivateComponent(tx, ctx, item, date); err != nil {
				return nil, err
			}
		}
	}

	// stock only shrinks when an AVAILABLE item leaves the shelf
	if previousStatus == ItemStatusAvailable {
		if err := checkLowStock(tx, ctx, part); err != nil {
			return nil, err
		}
	}

	return &record, nil
}

// ChangeInventoryItemStatus applies one transition to a specific item.
func ChangeInventoryItemStatus(ctx context.Context, id int, input *ItemTransition) (*InventoryItem, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}
	if _, err := ParseInventoryItemStatus(string(input.NewStatus)); err != nil {
		return nil, utils.NewValidationError("invalid inventory item status")
	}

	db := config.GetDB()
	var item *InventoryItem
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		item, err = LockItemById(tx, ctx, organizationId, id)
		if err != nil {
			return err
		}
		_, err = TransitionItem(tx, ctx, item, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// checkLowStock queues one low stock notification when the part's available
// count drops below its minimum. Runs inside the caller's transaction so the
// outbox record commits atomically with the stock movement.
func checkLowStock(tx *gorm.DB, ctx context.Context, part *Part) error {
	if part.MinimumStock <= 0 {
		return nil
	}

	var available int64
	if err := tx.WithContext(ctx).Model(&InventoryItem{}).
		Where("organization_id = ? AND part_id = ? AND status = ?", part.OrganizationId, part.ID, ItemStatusAvailable).
		Count(&available).Error; err != nil {
		return err
	}
	if available >= int64(part.MinimumStock) {
		return nil
	}

	return queueNotification(tx, ctx, &NotificationRecord{
		OrganizationId:   part.OrganizationId,
		NotificationType: NotificationTypeLowStock,
		Message: fmt.Sprintf("Estoque baixo: %s (%d de %d)",
			part.Name, available, part.MinimumStock),
		RelatedEntityType: "Part",
		RelatedEntityId:   part.ID,
		SendToManagers:    utils.NewTrue(),
	})
}

// ListInventoryItems lists a part's items, optionally filtered by status,
// ordered by identifier.
func ListInventoryItems(ctx context.Context, partId int, status *InventoryItemStatus) ([]*InventoryItem, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	if err := utils.ValidateResourceId[Part](ctx, organizationId, partId); err != nil {
		return nil, utils.NewNotFoundError("part not found")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Where("organization_id = ? AND part_id = ?", organizationId, partId)
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}

	var items []*InventoryItem
	if err := dbCtx.Order("item_identifier ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ItemHistory is an item together with its full ledger, oldest entry first.
type ItemHistory struct {
	Item         *InventoryItem          `json:"item"`
	Transactions []*InventoryTransaction `json:"transactions"`
}

func GetItemWithHistory(ctx context.Context, id int) (*ItemHistory, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	item, err := utils.FetchModel[InventoryItem](ctx, organizationId, id, "Part")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var transactions []*InventoryTransaction
	if err := db.WithContext(ctx).
		Where("organization_id = ? AND inventory_item_id = ?", organizationId, id).
		Order("id ASC").Find(&transactions).Error; err != nil {
		return nil, err
	}

	return &ItemHistory{Item: item, Transactions: transactions}, nil
}
